package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyVersion is embedded in every cache key. Bumping it invalidates the
// entire key space without touching the backing store.
const KeyVersion = "v1"

// headerAllowList is the set of request headers that participate in the
// cache key. Everything else (api keys, user agents, tracing headers) is
// noise that must never fragment the cache.
var headerAllowList = map[string]struct{}{
	"accept":       {},
	"content-type": {},
}

// NormalizeURL canonicalizes a URL for cache key generation:
// scheme and host are lower-cased, query parameters are sorted by key then
// value, and the fragment is dropped. The path is left unchanged.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = normalizeQuery(u.RawQuery)

	return u.String(), nil
}

// normalizeQuery re-encodes a query string with its key/value pairs sorted
// by key, then by value for repeated keys.
func normalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable queries pass through untouched; the key is still
		// deterministic for identical inputs.
		return rawQuery
	}

	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(values))
	for k, vs := range values {
		for _, v := range vs {
			pairs = append(pairs, pair{k, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.v))
	}
	return sb.String()
}

// relevantHeaders filters request headers down to the allow-list,
// lower-casing the names.
func relevantHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	for k, v := range headers {
		lower := strings.ToLower(k)
		if _, ok := headerAllowList[lower]; ok {
			filtered[lower] = v
		}
	}
	return filtered
}

// keyPayload is the canonical request shape that gets hashed. Field order
// matters: encoding/json emits struct fields in declaration order and map
// keys sorted, so identical inputs always serialize identically.
type keyPayload struct {
	Headers map[string]string `json:"headers"`
	URL     string            `json:"url"`
}

// BuildKey derives the deterministic cache key for a request:
// "namespace:version:sha256hex" over the normalized URL and the
// allow-listed headers. Query parameter order and non-allow-listed headers
// never change the result.
func BuildKey(namespace, rawURL string, headers map[string]string) (string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(keyPayload{
		Headers: relevantHeaders(headers),
		URL:     normalized,
	})
	if err != nil {
		return "", fmt.Errorf("marshal key payload: %w", err)
	}

	digest := sha256.Sum256(payload)
	return fmt.Sprintf("%s:%s:%s", namespace, KeyVersion, hex.EncodeToString(digest[:])), nil
}
