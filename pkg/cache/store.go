package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the TTL-capable key/value capability the HTTP cache client
// depends on. Implementations must tolerate concurrent access from
// multiple client instances sharing one backing store; key namespacing
// prevents cross-purpose collisions. Eviction after TTL expiry is the
// store's own responsibility.
type Store interface {
	// Get returns the entry for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set writes an entry under key with the given TTL, replacing any
	// previous entry wholesale.
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// RefreshTTL resets the remaining TTL of an existing key without
	// touching the stored entry.
	RefreshTTL(ctx context.Context, key string, ttl time.Duration) error

	// TTLRemaining returns the remaining TTL for key, or ErrCacheMiss.
	TTLRemaining(ctx context.Context, key string) (time.Duration, error)

	// Close releases the store connection.
	Close() error
}

// RedisStore implements Store on top of a Redis connection. Entries are
// JSON documents; Redis expiry handles eviction.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed Store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores a cache entry under key with the given TTL.
// Zero or negative TTLs are not written.
func (s *RedisStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// RefreshTTL resets the expiry of an existing key. The stored document is
// untouched, which keeps the 304 revalidation path body-preserving.
func (s *RedisStore) RefreshTTL(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.redis.Expire(ctx, key, ttl).Result()
	if err != nil {
		CacheErrors.WithLabelValues("refresh_ttl").Inc()
		return fmt.Errorf("redis expire: %w", err)
	}
	if !ok {
		return ErrCacheMiss
	}
	return nil
}

// TTLRemaining returns the remaining TTL for key.
func (s *RedisStore) TTLRemaining(ctx context.Context, key string) (time.Duration, error) {
	remaining, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		CacheErrors.WithLabelValues("ttl").Inc()
		return 0, fmt.Errorf("redis ttl: %w", err)
	}
	// Redis reports -2 for a missing key and -1 for a key without expiry.
	if remaining < 0 {
		return 0, ErrCacheMiss
	}
	return remaining, nil
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
