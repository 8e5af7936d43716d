// Package registry tracks every cache client instance created during a run
// and owns the single shared status-reporting goroutine, so that startup
// and teardown are coordinated in one place instead of hidden globals.
package registry

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/nft-harvester/pkg/cache"
	"github.com/Sternrassler/nft-harvester/pkg/stats"
)

// statusInterval is the refresh rate of the interactive status line.
// Non-interactive runs (e.g. inside a container) log every 30s instead.
const (
	statusInterval        = 1 * time.Second
	statusIntervalBatched = 30 * time.Second
)

// Registry owns the lifecycle of all registered cache client instances,
// the shared cache store, and the single background status task. The
// status task starts exactly once, on first registration, and stops
// exactly once, in CleanupAll.
type Registry struct {
	mu        sync.Mutex
	closers   []io.Closer
	store     cache.Store
	stats     *stats.Stats
	logger    zerolog.Logger
	statusOut *os.File

	statusCancel context.CancelFunc
	statusDone   chan struct{}
	cleaned      bool
}

// New creates a registry that will close store during CleanupAll and feed
// the status line from st.
func New(store cache.Store, st *stats.Stats, logger zerolog.Logger) *Registry {
	return &Registry{
		store:     store,
		stats:     st,
		logger:    logger.With().Str("component", "registry").Logger(),
		statusOut: os.Stdout,
	}
}

// Stats returns the shared counter aggregate.
func (r *Registry) Stats() *stats.Stats {
	return r.stats
}

// Store returns the shared cache store.
func (r *Registry) Store() cache.Store {
	return r.store
}

// Register adds a client instance for coordinated teardown. The first
// registration lazily starts the shared status task.
func (r *Registry) Register(c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closers = append(r.closers, c)

	if r.statusDone == nil && !r.cleaned {
		ctx, cancel := context.WithCancel(context.Background())
		r.statusCancel = cancel
		r.statusDone = make(chan struct{})
		go r.statusLoop(ctx)
	}
}

// CleanupAll tears down everything the registry tracks: it stops the
// status task and awaits its termination, closes the shared store, and
// closes every registered instance even if some fail. Safe to call more
// than once and after a partially completed run; only the first call does
// work.
func (r *Registry) CleanupAll() {
	r.mu.Lock()
	if r.cleaned {
		r.mu.Unlock()
		return
	}
	r.cleaned = true
	cancel := r.statusCancel
	done := r.statusDone
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to close cache store")
		}
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to close client instance")
		}
	}
}

// statusLoop periodically reports the shared counters. On a TTY it rewrites
// a single console line; otherwise it emits a structured log event at a
// slower cadence.
func (r *Registry) statusLoop(ctx context.Context) {
	defer close(r.statusDone)

	interactive := isatty.IsTerminal(r.statusOut.Fd())
	interval := statusInterval
	if !interactive {
		interval = statusIntervalBatched
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if interactive {
				fmt.Fprintln(r.statusOut)
			}
			return
		case <-ticker.C:
			snap := r.stats.Snapshot()
			if interactive {
				fmt.Fprintf(r.statusOut,
					"\rAPI Requests: %d | Cached: %d | Network: %d | Errors: %d | Retries: %d | Queue: %d | Elapsed: %.2f minutes",
					snap.Responses, snap.CacheHits, snap.NetworkRequests,
					snap.Errors, snap.Retries, snap.QueueDepth,
					float64(snap.ElapsedSeconds)/60)
			} else {
				r.logger.Info().
					Int64("responses", snap.Responses).
					Int64("cache_hits", snap.CacheHits).
					Int64("network_requests", snap.NetworkRequests).
					Int64("errors", snap.Errors).
					Int64("retries", snap.Retries).
					Int64("queue", snap.QueueDepth).
					Int64("elapsed_seconds", snap.ElapsedSeconds).
					Msg("Harvest status")
			}
			r.stats.AddElapsed(int64(interval.Seconds()))
		}
	}
}
