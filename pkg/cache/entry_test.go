package cache

import (
	"testing"
	"time"
)

func TestEntry_StalenessWindow(t *testing.T) {
	tests := []struct {
		name   string
		ttl    int
		maxAge int
		want   time.Duration
	}{
		{name: "ttl exceeds max-age", ttl: 90, maxAge: 60, want: 30 * time.Second},
		{name: "ttl equals max-age", ttl: 60, maxAge: 60, want: 0},
		{name: "clamped ttl below max-age", ttl: 30, maxAge: 60, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{TTL: tt.ttl, MaxAge: tt.maxAge}
			if got := entry.StalenessWindow(); got != tt.want {
				t.Errorf("StalenessWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_IsStale(t *testing.T) {
	// ttl=90, max_age=60: 30s staleness window.
	entry := &Entry{TTL: 90, MaxAge: 60}

	if !entry.IsStale(25 * time.Second) {
		t.Error("remaining 25s inside 30s window, want stale")
	}
	if entry.IsStale(45 * time.Second) {
		t.Error("remaining 45s outside 30s window, want fresh")
	}
	if !entry.IsStale(30 * time.Second) {
		t.Error("remaining equal to window, want stale")
	}
}

func TestEntry_HasValidators(t *testing.T) {
	if (&Entry{}).HasValidators() {
		t.Error("entry without validators reported validators")
	}
	if !(&Entry{ETag: `"abc"`}).HasValidators() {
		t.Error("entry with etag reported no validators")
	}
	if !(&Entry{LastModified: "Mon, 02 Jan 2006 15:04:05 GMT"}).HasValidators() {
		t.Error("entry with last-modified reported no validators")
	}
}

func TestEntry_NeedsRevalidation(t *testing.T) {
	tests := []struct {
		name         string
		cacheControl string
		stale        bool
		want         bool
	}{
		{name: "no-cache always revalidates", cacheControl: "no-cache", stale: false, want: true},
		{name: "must-revalidate fresh", cacheControl: "max-age=60, must-revalidate", stale: false, want: false},
		{name: "must-revalidate stale", cacheControl: "max-age=60, must-revalidate", stale: true, want: true},
		{name: "staleness alone triggers", cacheControl: "max-age=60", stale: true, want: true},
		{name: "fresh without directives", cacheControl: "max-age=60", stale: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{CacheControl: tt.cacheControl}
			if got := entry.NeedsRevalidation(tt.stale); got != tt.want {
				t.Errorf("NeedsRevalidation(%v) = %v, want %v", tt.stale, got, tt.want)
			}
		})
	}
}

func TestEntry_AllowsStaleWhileRevalidate(t *testing.T) {
	entry := &Entry{CacheControl: "max-age=60, stale-while-revalidate=30"}
	if !entry.AllowsStaleWhileRevalidate() {
		t.Error("stale-while-revalidate directive not detected")
	}
	if (&Entry{CacheControl: "max-age=60"}).AllowsStaleWhileRevalidate() {
		t.Error("stale-while-revalidate detected where absent")
	}
}

func TestDirectiveSeconds(t *testing.T) {
	tests := []struct {
		name         string
		cacheControl string
		directive    string
		want         int
	}{
		{name: "max-age", cacheControl: "max-age=60", directive: "max-age", want: 60},
		{name: "with other directives", cacheControl: "public, max-age=60, must-revalidate", directive: "max-age", want: 60},
		{name: "stale-while-revalidate", cacheControl: "max-age=60, stale-while-revalidate=30", directive: "stale-while-revalidate", want: 30},
		{name: "absent", cacheControl: "no-cache", directive: "max-age", want: 0},
		{name: "malformed value", cacheControl: "max-age=soon", directive: "max-age", want: 0},
		{name: "negative value", cacheControl: "max-age=-5", directive: "max-age", want: 0},
		{name: "case insensitive", cacheControl: "Max-Age=60", directive: "max-age", want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := directiveSeconds(tt.cacheControl, tt.directive); got != tt.want {
				t.Errorf("directiveSeconds(%q, %q) = %d, want %d", tt.cacheControl, tt.directive, got, tt.want)
			}
		})
	}
}

func TestHasDirective(t *testing.T) {
	cc := "public, no-cache, max-age=60"
	if !hasDirective(cc, "no-cache") {
		t.Error("no-cache not found")
	}
	if !hasDirective(cc, "max-age") {
		t.Error("max-age not found")
	}
	if hasDirective(cc, "no-store") {
		t.Error("no-store found where absent")
	}
	// "no-cache" must not match inside "no-store" style prefixes.
	if hasDirective("no-store", "no") {
		t.Error("partial directive token matched")
	}
}
