package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/restoledger/backend/internal/application/receiptimport"
	"github.com/restoledger/backend/internal/domain/receipt"
)

const dayLockPrefix = "receipt-import:"

// DayLockKey is the lock key guarding one business day
func DayLockKey(day time.Time) string {
	return dayLockPrefix + receipt.Day(day).Format(receipt.DateLayout)
}

// RedisDayLocker holds a redis lock per business day for the duration of an import.
type RedisDayLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewRedisDayLocker creates a locker whose locks expire after ttl if never released
func NewRedisDayLocker(client redis.UniversalClient, ttl time.Duration) *RedisDayLocker {
	return &RedisDayLocker{locker: redislock.New(client), ttl: ttl}
}

// Lock obtains the day's lock without waiting.
func (l *RedisDayLocker) Lock(ctx context.Context, day time.Time) (func(context.Context) error, error) {
	key := DayLockKey(day)
	lock, err := l.locker.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: redislock.NoRetry()})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", receiptimport.ErrImportInProgress, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

// MemoryDayLocker serializes imports of one day inside a single process,
// e.g. the daily trigger and an admin request hitting the same day.
type MemoryDayLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryDayLocker creates an in-process day locker
func NewMemoryDayLocker() *MemoryDayLocker {
	return &MemoryDayLocker{held: make(map[string]struct{})}
}

// Lock claims the day or fails with receiptimport.ErrImportInProgress
func (l *MemoryDayLocker) Lock(_ context.Context, day time.Time) (func(context.Context) error, error) {
	key := DayLockKey(day)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, fmt.Errorf("%w: %s", receiptimport.ErrImportInProgress, key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
