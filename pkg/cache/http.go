package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EntryFromResponse converts an HTTP response into a cache Entry, computing
// the store TTL from the Cache-Control header: max-age seconds plus
// stale-while-revalidate seconds if present; a zero result or one exceeding
// maxTTL is clamped to maxTTL. The response body is restored for the caller.
func EntryFromResponse(resp *http.Response, maxTTL time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	cacheControl := resp.Header.Get("Cache-Control")
	maxAge := directiveSeconds(cacheControl, "max-age")

	entry := &Entry{
		StatusCode:   resp.StatusCode,
		Method:       http.MethodGet,
		Proto:        resp.Proto,
		CacheControl: cacheControl,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		MaxAge:       maxAge,
		TTL:          int(ComputeTTL(cacheControl, maxTTL).Seconds()),
		Body:         body,
	}
	if resp.Request != nil {
		entry.URL = resp.Request.URL.String()
		entry.Method = resp.Request.Method
	}

	return entry, nil
}

// ComputeTTL derives the store TTL from a Cache-Control header:
// max-age + stale-while-revalidate, clamped to maxTTL when zero or above
// the ceiling.
func ComputeTTL(cacheControl string, maxTTL time.Duration) time.Duration {
	seconds := directiveSeconds(cacheControl, "max-age") +
		directiveSeconds(cacheControl, "stale-while-revalidate")

	ttl := time.Duration(seconds) * time.Second
	if ttl == 0 || ttl > maxTTL {
		return maxTTL
	}
	return ttl
}

// IsCacheable reports whether a freshly fetched response may be persisted:
// everything except no-store.
func IsCacheable(cacheControl string) bool {
	return !hasDirective(cacheControl, "no-store")
}

// ConditionalHeaders builds the validator headers for a revalidation
// request. ETag is preferred over Last-Modified. Returns an empty map when
// the entry carries no validators.
func ConditionalHeaders(entry *Entry) map[string]string {
	headers := make(map[string]string)
	if entry == nil {
		return headers
	}
	if entry.ETag != "" {
		headers["If-None-Match"] = entry.ETag
	} else if entry.LastModified != "" {
		headers["If-Modified-Since"] = entry.LastModified
	}
	return headers
}
