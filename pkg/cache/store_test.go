package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a Redis client against a local instance.
// Tests skip when Redis is unavailable; the container-backed end-to-end
// suite lives in tests/integration.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))
	ctx := context.Background()

	entry := &Entry{
		StatusCode:   200,
		URL:          "https://example.com/x",
		Method:       "GET",
		Proto:        "HTTP/1.1",
		CacheControl: "max-age=60",
		ETag:         `"abc123"`,
		MaxAge:       60,
		TTL:          60,
		Body:         []byte(`{"test": "data"}`),
	}

	if err := store.Set(ctx, "test:v1:key", entry, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "test:v1:key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %v, want %v", got.ETag, entry.ETag)
	}
	if string(got.Body) != string(entry.Body) {
		t.Errorf("Body = %s, want %s", got.Body, entry.Body)
	}
	if got.TTL != 60 {
		t.Errorf("TTL = %d, want 60", got.TTL)
	}
}

func TestRedisStore_GetMiss(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))

	_, err := store.Get(context.Background(), "test:v1:absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisStore_ZeroTTLNotWritten(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))
	ctx := context.Background()

	if err := store.Set(ctx, "test:v1:zero", &Entry{Body: []byte("x")}, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := store.Get(ctx, "test:v1:zero"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("zero-TTL entry was written, Get() error = %v", err)
	}
}

func TestRedisStore_RefreshTTL(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))
	ctx := context.Background()

	entry := &Entry{Body: []byte(`{"a": 1}`), TTL: 10}
	if err := store.Set(ctx, "test:v1:refresh", entry, 10*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := store.RefreshTTL(ctx, "test:v1:refresh", time.Minute); err != nil {
		t.Fatalf("RefreshTTL() error = %v", err)
	}

	remaining, err := store.TTLRemaining(ctx, "test:v1:refresh")
	if err != nil {
		t.Fatalf("TTLRemaining() error = %v", err)
	}
	if remaining <= 10*time.Second {
		t.Errorf("TTLRemaining = %v, want > 10s after refresh", remaining)
	}

	// The body must survive a TTL refresh untouched.
	got, err := store.Get(ctx, "test:v1:refresh")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Body) != `{"a": 1}` {
		t.Errorf("body changed across RefreshTTL: %s", got.Body)
	}
}

func TestRedisStore_RefreshTTLMissing(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))

	err := store.RefreshTTL(context.Background(), "test:v1:absent", time.Minute)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("RefreshTTL() error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisStore_TTLRemainingMissing(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))

	_, err := store.TTLRemaining(context.Background(), "test:v1:absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("TTLRemaining() error = %v, want ErrCacheMiss", err)
	}
}
