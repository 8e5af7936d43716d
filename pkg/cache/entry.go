package cache

import (
	"strconv"
	"strings"
	"time"
)

// Entry is a cached HTTP response snapshot. Entries are immutable once
// written: a 304 revalidation refreshes only the store TTL, a 200
// revalidation replaces the whole entry. The body is never mutated in
// place.
type Entry struct {
	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// URL is the request URL the entry was fetched from.
	URL string `json:"url"`

	// Method is the HTTP method of the originating request.
	Method string `json:"method"`

	// Proto is the protocol version of the response (e.g. "HTTP/1.1").
	Proto string `json:"http_version"`

	// CacheControl is the raw Cache-Control response header.
	CacheControl string `json:"cache_control"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag"`

	// LastModified is the raw Last-Modified header (If-Modified-Since).
	LastModified string `json:"last_modified"`

	// MaxAge is the max-age directive in seconds (0 if absent).
	MaxAge int `json:"max_age"`

	// TTL is the store TTL in seconds computed at write time:
	// max-age plus stale-while-revalidate, clamped to the client ceiling.
	TTL int `json:"ttl"`

	// Body is the response body.
	Body []byte `json:"body"`
}

// StalenessWindow is the span between the entry's store expiry and its
// max-age expiry. While the remaining store TTL is inside this window the
// entry is stale but still servable under stale-while-revalidate.
func (e *Entry) StalenessWindow() time.Duration {
	window := e.TTL - e.MaxAge
	if window < 0 {
		window = 0
	}
	return time.Duration(window) * time.Second
}

// IsStale reports whether the entry is stale given the remaining store TTL
// for its key: stale once the remaining TTL has fallen into the staleness
// window.
func (e *Entry) IsStale(remaining time.Duration) bool {
	return remaining <= e.StalenessWindow()
}

// HasValidators reports whether the entry carries an ETag or Last-Modified
// usable for a conditional request.
func (e *Entry) HasValidators() bool {
	return e.ETag != "" || e.LastModified != ""
}

// NeedsRevalidation decides whether a cache hit must be revalidated with
// the origin: no-cache always revalidates, must-revalidate revalidates
// once stale, and staleness by itself also triggers revalidation.
func (e *Entry) NeedsRevalidation(stale bool) bool {
	return hasDirective(e.CacheControl, "no-cache") ||
		(hasDirective(e.CacheControl, "must-revalidate") && stale) ||
		stale
}

// AllowsStaleWhileRevalidate reports whether the entry may be served stale
// while a background revalidation proceeds.
func (e *Entry) AllowsStaleWhileRevalidate() bool {
	return hasDirective(e.CacheControl, "stale-while-revalidate")
}

// directiveSeconds extracts the integer argument of a Cache-Control
// directive such as "max-age=60". Returns 0 when the directive is absent
// or malformed.
func directiveSeconds(cacheControl, directive string) int {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), directive) {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || seconds < 0 {
			return 0
		}
		return seconds
	}
	return 0
}

// hasDirective reports whether a Cache-Control header contains the named
// directive, matching case-insensitively on the directive token.
func hasDirective(cacheControl, directive string) bool {
	for _, part := range strings.Split(cacheControl, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), "=")
		if strings.EqualFold(strings.TrimSpace(name), directive) {
			return true
		}
	}
	return false
}
