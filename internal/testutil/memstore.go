package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/nft-harvester/pkg/cache"
)

// MemStore is an in-memory cache.Store for unit tests. TTLs are recorded,
// not enforced; tests manipulate them directly to simulate staleness.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
	ttls    map[string]time.Duration
	closed  bool

	// GetErr, when set, is returned by every Get (store outage).
	GetErr error
	// SetErr, when set, is returned by every Set.
	SetErr error
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[string]*cache.Entry),
		ttls:    make(map[string]time.Duration),
	}
}

// Get implements cache.Store.
func (s *MemStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return entry, nil
}

// Set implements cache.Store.
func (s *MemStore) Set(ctx context.Context, key string, entry *cache.Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.entries[key] = entry
	s.ttls[key] = ttl
	return nil
}

// RefreshTTL implements cache.Store.
func (s *MemStore) RefreshTTL(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return cache.ErrCacheMiss
	}
	s.ttls[key] = ttl
	return nil
}

// TTLRemaining implements cache.Store.
func (s *MemStore) TTLRemaining(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ttl, ok := s.ttls[key]
	if !ok {
		return 0, cache.ErrCacheMiss
	}
	return ttl, nil
}

// Close implements cache.Store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MemStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SetTTL overrides the recorded TTL for a key, simulating store-side decay.
func (s *MemStore) SetTTL(key string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls[key] = ttl
}

// Entry returns the stored entry for a key, or nil.
func (s *MemStore) Entry(key string) *cache.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key]
}

// Keys returns all stored keys.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}
