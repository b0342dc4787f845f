package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/application/receiptimport"
	"github.com/restoledger/backend/internal/infrastructure/config"
	"github.com/restoledger/backend/internal/infrastructure/reporting"
)

// NewRedisClient connects to redis and checks the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Factory builds the token store and day locker the configuration asks for,
// sharing one redis client between them.
type Factory struct {
	redisConfig config.RedisConfig
	logger      *zap.Logger
	client      *redis.Client
}

// NewFactory creates a factory; redis is dialed lazily on first use
func NewFactory(cfg config.RedisConfig, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{redisConfig: cfg, logger: logger}
}

func (f *Factory) redis(ctx context.Context) (*redis.Client, error) {
	if f.client != nil {
		return f.client, nil
	}
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, err
	}
	f.client = client
	return client, nil
}

// TokenStore returns the store named by reporting.token_store
func (f *Factory) TokenStore(ctx context.Context, kind string) (reporting.TokenStore, error) {
	if kind != "redis" {
		return NewMemoryTokenStore(), nil
	}
	client, err := f.redis(ctx)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Using Redis token store")
	return NewRedisTokenStore(client, ""), nil
}

// DayLocker returns the redis locker when locking is enabled, otherwise an in-process locker
func (f *Factory) DayLocker(ctx context.Context, cfg config.ImportConfig) (receiptimport.DayLocker, error) {
	if !cfg.LockEnabled {
		return NewMemoryDayLocker(), nil
	}
	client, err := f.redis(ctx)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Using Redis day locks", zap.Duration("ttl", cfg.LockTTL))
	return NewRedisDayLocker(client, cfg.LockTTL), nil
}

// Close releases the shared redis client
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}

var (
	_ reporting.TokenStore    = (*MemoryTokenStore)(nil)
	_ reporting.TokenStore    = (*RedisTokenStore)(nil)
	_ receiptimport.DayLocker = (*RedisDayLocker)(nil)
	_ receiptimport.DayLocker = (*MemoryDayLocker)(nil)
)
