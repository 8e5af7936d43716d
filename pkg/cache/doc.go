// Package cache provides HTTP response caching with a Redis backend.
//
// The store implements Cache-Control driven caching with the following features:
//
// - TTLs computed from max-age and stale-while-revalidate directives
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - TTL-only refresh on 304 Not Modified revalidations
// - Prometheus metrics for observability
// - Deterministic, namespaced, versioned cache keys
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create the store
//	store := cache.NewRedisStore(redisClient)
//
//	// Build a cache key
//	key, err := cache.BuildKey("opensea", url, headers)
//	if err != nil {
//		return err
//	}
//
//	// Get from cache
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - fetch from the network
//	}
//
// # HTTP Response Caching
//
//	// Convert an HTTP response to a cache entry
//	entry, err := cache.EntryFromResponse(resp, maxTTL)
//	if err != nil {
//		return err
//	}
//
//	// Store unless the response forbids it
//	if cache.IsCacheable(entry.CacheControl) {
//		ttl := cache.ComputeTTL(entry.CacheControl, maxTTL)
//		if err := store.Set(ctx, key, entry, ttl); err != nil {
//			return err
//		}
//	}
//
// # Staleness
//
// An entry is stale once the remaining store TTL has fallen into its
// staleness window (ttl minus max-age):
//
//	remaining, err := store.TTLRemaining(ctx, key)
//	if err == nil && entry.IsStale(remaining) {
//		// revalidate with cache.ConditionalHeaders(entry)
//	}
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - harvester_cache_hits_total{layer="redis"} - Cache hits
//   - harvester_cache_misses_total - Cache misses
//   - harvester_cache_size_bytes{layer="redis"} - Bytes written
//   - harvester_304_responses_total - Revalidation successes
//   - harvester_conditional_requests_total - Conditional requests sent
//   - harvester_cache_errors_total{operation} - Store operation errors
package cache
