package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTokenKeyPrefix = "reporting:token:"

// RedisTokenStore shares upstream session tokens between importer instances,
// so a server and a CLI run reuse one upstream session.
type RedisTokenStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisTokenStore creates a token store on an existing client
func NewRedisTokenStore(client redis.UniversalClient, keyPrefix string) *RedisTokenStore {
	if keyPrefix == "" {
		keyPrefix = defaultTokenKeyPrefix
	}
	return &RedisTokenStore{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached token for key; ok is false when absent or expired
func (s *RedisTokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read token: %w", err)
	}
	return token, true, nil
}

// Set stores token for ttl
func (s *RedisTokenStore) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Delete drops the token for key
func (s *RedisTokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
