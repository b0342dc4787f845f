package reporting

import (
	"context"
	"time"
)

// TokenStore caches the upstream session token between requests and processes
type TokenStore interface {
	// Get returns the token for key; ok is false when none is cached
	Get(ctx context.Context, key string) (token string, ok bool, err error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
