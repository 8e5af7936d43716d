// Package metrics provides the centralized Prometheus metrics reference
// for the harvester. All metrics are defined in their respective packages
// (client, cache) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the harvester.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - harvester_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - harvester_cache_misses_total (Counter): Cache misses
//   - harvester_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - harvester_304_responses_total (Counter): 304 Not Modified revalidations
//   - harvester_conditional_requests_total (Counter): Conditional requests sent
//   - harvester_cache_errors_total{operation} (Counter): Store operation errors
//
// Request Metrics (pkg/client):
//   - harvester_requests_total{host, status} (Counter): Upstream requests by host and HTTP status
//   - harvester_request_duration_seconds{host} (Histogram): Request duration by host
//   - harvester_errors_total{class} (Counter): Errors by class (client, server, network)
//
// Retry Metrics (pkg/client):
//   - harvester_retries_total{error_class} (Counter): Retry attempts by error class
//   - harvester_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - harvester_retry_exhausted_total{error_class} (Counter): Requests that hit a configured attempt ceiling
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(harvester_cache_hits_total[5m])) /
//   (sum(rate(harvester_cache_hits_total[5m])) + sum(rate(harvester_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(harvester_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(harvester_request_duration_seconds_bucket[5m]))
//
//   # Revalidation Effectiveness
//   rate(harvester_304_responses_total[5m]) / rate(harvester_conditional_requests_total[5m])
