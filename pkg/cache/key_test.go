package cache

import (
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "lower-cases scheme and host",
			raw:  "HTTPS://API.OpenSea.IO/api/v2/collections/test",
			want: "https://api.opensea.io/api/v2/collections/test",
		},
		{
			name: "sorts query parameters by key",
			raw:  "https://example.com/nfts?next=abc&limit=200",
			want: "https://example.com/nfts?limit=200&next=abc",
		},
		{
			name: "sorts repeated keys by value",
			raw:  "https://example.com/nfts?id=9&id=1",
			want: "https://example.com/nfts?id=1&id=9",
		},
		{
			name: "drops fragment",
			raw:  "https://example.com/nfts?limit=200#section",
			want: "https://example.com/nfts?limit=200",
		},
		{
			name: "path case preserved",
			raw:  "https://example.com/NFTs/Token",
			want: "https://example.com/NFTs/Token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.raw)
			if err != nil {
				t.Fatalf("NormalizeURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_QueryOrderIndependent(t *testing.T) {
	a, err := NormalizeURL("https://example.com/x?b=2&a=1")
	if err != nil {
		t.Fatalf("NormalizeURL() error = %v", err)
	}
	b, err := NormalizeURL("https://example.com/x?a=1&b=2")
	if err != nil {
		t.Fatalf("NormalizeURL() error = %v", err)
	}
	if a != b {
		t.Errorf("query order changed normalization: %v != %v", a, b)
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	once, err := NormalizeURL("HTTPS://Example.COM/x?b=2&a=1#frag")
	if err != nil {
		t.Fatalf("NormalizeURL() error = %v", err)
	}
	twice, err := NormalizeURL(once)
	if err != nil {
		t.Fatalf("NormalizeURL() error = %v", err)
	}
	if once != twice {
		t.Errorf("not idempotent: %v != %v", once, twice)
	}
}

func TestBuildKey_Deterministic(t *testing.T) {
	headers := map[string]string{"Accept": "application/json"}

	first, err := BuildKey("opensea", "https://example.com/x?a=1&b=2", headers)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		key, err := BuildKey("opensea", "https://example.com/x?b=2&a=1", headers)
		if err != nil {
			t.Fatalf("BuildKey() error = %v", err)
		}
		if key != first {
			t.Errorf("key[%d] = %v, want %v (not deterministic)", i, key, first)
		}
	}
}

func TestBuildKey_Format(t *testing.T) {
	key, err := BuildKey("opensea", "https://example.com/x", nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}

	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		t.Fatalf("key = %v, want namespace:version:digest", key)
	}
	if parts[0] != "opensea" {
		t.Errorf("namespace = %v, want opensea", parts[0])
	}
	if parts[1] != KeyVersion {
		t.Errorf("version = %v, want %v", parts[1], KeyVersion)
	}
	if len(parts[2]) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(parts[2]))
	}
}

func TestBuildKey_HeaderAllowList(t *testing.T) {
	base, err := BuildKey("ns", "https://example.com/x", map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}

	// Non-allow-listed headers never change the key.
	noisy, err := BuildKey("ns", "https://example.com/x", map[string]string{
		"Accept":        "application/json",
		"X-Api-Key":     "secret",
		"User-Agent":    "harvester/1.0",
		"Authorization": "Bearer token",
	})
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	if noisy != base {
		t.Errorf("non-allow-listed headers fragmented the cache: %v != %v", noisy, base)
	}

	// Allow-listed headers do.
	accept, err := BuildKey("ns", "https://example.com/x", map[string]string{
		"Accept": "text/html",
	})
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	if accept == base {
		t.Error("changing an allow-listed header did not change the key")
	}

	// Header name case is irrelevant.
	lower, err := BuildKey("ns", "https://example.com/x", map[string]string{
		"accept": "application/json",
	})
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	if lower != base {
		t.Errorf("header name case changed the key: %v != %v", lower, base)
	}
}

func TestBuildKey_NamespaceScoped(t *testing.T) {
	a, err := BuildKey("opensea", "https://example.com/x", nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	b, err := BuildKey("metadata", "https://example.com/x", nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	if a == b {
		t.Error("different namespaces produced the same key")
	}
}

func TestBuildKey_InvalidURL(t *testing.T) {
	if _, err := BuildKey("ns", "://not a url", nil); err == nil {
		t.Error("expected error for invalid URL")
	}
}
