// Package stats holds the shared request counters mutated concurrently by
// every cache client instance and the collection pipeline, and read by the
// status reporter. Each counter is updated atomically so concurrent
// increments are never lost.
package stats

import "sync/atomic"

// Stats is the process-wide counter aggregate. One instance is shared by
// all cache client instances via the registry.
type Stats struct {
	responses       atomic.Int64
	cacheHits       atomic.Int64
	networkRequests atomic.Int64
	errors          atomic.Int64
	retries         atomic.Int64
	queueDepth      atomic.Int64
	elapsedSeconds  atomic.Int64
}

// New creates an empty Stats aggregate.
func New() *Stats {
	return &Stats{}
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Responses       int64
	CacheHits       int64
	NetworkRequests int64
	Errors          int64
	Retries         int64
	QueueDepth      int64
	ElapsedSeconds  int64
}

// AddResponse counts one served response, cached or fetched.
func (s *Stats) AddResponse() { s.responses.Add(1) }

// AddCacheHit counts one response served from cache.
func (s *Stats) AddCacheHit() { s.cacheHits.Add(1) }

// AddNetworkRequest counts one response fetched over the network.
func (s *Stats) AddNetworkRequest() { s.networkRequests.Add(1) }

// AddError counts one failed request attempt.
func (s *Stats) AddError() { s.errors.Add(1) }

// AddRetry counts one retry attempt.
func (s *Stats) AddRetry() { s.retries.Add(1) }

// SetQueueDepth records the current pipeline queue depth.
func (s *Stats) SetQueueDepth(depth int64) { s.queueDepth.Store(depth) }

// AddElapsed accumulates seconds of status-reporter runtime.
func (s *Stats) AddElapsed(seconds int64) { s.elapsedSeconds.Add(seconds) }

// Snapshot returns a consistent-enough copy for display. Individual loads
// are atomic; the set as a whole is advisory.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Responses:       s.responses.Load(),
		CacheHits:       s.cacheHits.Load(),
		NetworkRequests: s.networkRequests.Load(),
		Errors:          s.errors.Load(),
		Retries:         s.retries.Load(),
		QueueDepth:      s.queueDepth.Load(),
		ElapsedSeconds:  s.elapsedSeconds.Load(),
	}
}
