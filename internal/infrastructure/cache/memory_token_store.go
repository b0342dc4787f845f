package cache

import (
	"context"
	"sync"
	"time"
)

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryTokenStore keeps upstream session tokens in process memory.
// Suitable for a single importer process; tokens are lost on restart.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	entries map[string]tokenEntry
	now     func() time.Time
}

// NewMemoryTokenStore creates an empty in-memory token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]tokenEntry), now: time.Now}
}

// Get returns the cached token for key; ok is false when absent or expired
func (s *MemoryTokenStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || !s.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.token, true, nil
}

// Set stores token for ttl
func (s *MemoryTokenStore) Set(_ context.Context, key, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = tokenEntry{token: token, expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete drops the token for key
func (s *MemoryTokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
