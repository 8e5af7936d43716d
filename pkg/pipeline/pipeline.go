// Package pipeline implements the bounded producer/consumer collection
// pipeline: a pagination producer feeding a fixed worker pool through a
// bounded queue, with sentinel-based deterministic shutdown.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/nft-harvester/pkg/stats"
)

// Item is a raw catalog item flowing through the pipeline. Items are
// produced once, consumed by exactly one worker, and either appended to
// the result collection or dropped on enrichment failure.
type Item = map[string]any

// Producer pages through a listing endpoint. NextPage returns the items of
// one page and the opaque cursor for the next; an empty cursor ends
// pagination.
type Producer interface {
	NextPage(ctx context.Context, cursor string) (items []Item, next string, err error)
}

// Enricher performs the per-item secondary fetch, returning the enriched
// item.
type Enricher interface {
	Enrich(ctx context.Context, item Item) (Item, error)
}

// Config holds pipeline tuning knobs.
type Config struct {
	// QueueSize is the bounded queue capacity; a full queue suspends the
	// producer (backpressure). Default 500.
	QueueSize int

	// Workers is the fixed worker pool size. Default 15.
	Workers int

	// Identity extracts a loggable identity from an item for failure
	// reports. Optional.
	Identity func(Item) string
}

// Pipeline wires a producer and an enricher together.
type Pipeline struct {
	producer Producer
	enricher Enricher
	cfg      Config
	stats    *stats.Stats
	logger   zerolog.Logger
}

// queueItem is a tagged queue variant: either one unit of work or a
// shutdown sentinel. Exactly one sentinel is enqueued per worker; a worker
// receiving one exits immediately.
type queueItem struct {
	item     Item
	sentinel bool
}

// New creates a pipeline.
func New(producer Producer, enricher Enricher, cfg Config, st *stats.Stats) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 15
	}
	if cfg.Identity == nil {
		cfg.Identity = func(Item) string { return "unknown" }
	}
	return &Pipeline{
		producer: producer,
		enricher: enricher,
		cfg:      cfg,
		stats:    st,
		logger:   log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the collection: the producer pages the listing into the
// bounded queue while workers enrich items concurrently. Once the producer
// finishes, one sentinel per worker is enqueued and Run blocks until every
// enqueued value (items and sentinels) has been processed, so no worker is
// left blocked and every unit is accounted for exactly once. The returned
// collection is unordered.
//
// A producer failure aborts the run with no results; per-item enrichment
// failures are logged and dropped without stopping the run.
func (p *Pipeline) Run(ctx context.Context) ([]Item, error) {
	queue := make(chan queueItem, p.cfg.QueueSize)

	// pending counts every enqueued value until its worker marks it
	// processed; waiting on it is the drain barrier.
	var pending sync.WaitGroup

	var mu sync.Mutex
	var results []Item
	var produced, dropped atomic.Int64

	var workers sync.WaitGroup
	for id := 0; id < p.cfg.Workers; id++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			p.worker(ctx, id, queue, &pending, &mu, &results, &dropped)
		}(id)
	}

	prodErr := p.produce(ctx, queue, &pending, &produced)

	// Sentinels are enqueued even after a producer failure so the drain
	// stays deterministic.
	for i := 0; i < p.cfg.Workers; i++ {
		pending.Add(1)
		queue <- queueItem{sentinel: true}
	}
	pending.Wait()
	workers.Wait()

	if prodErr != nil {
		return nil, prodErr
	}

	p.logger.Info().
		Int64("produced", produced.Load()).
		Int("enriched", len(results)).
		Int64("dropped", dropped.Load()).
		Msg("Collection drained")
	return results, nil
}

// produce pages the listing endpoint, enqueuing every item. Enqueue blocks
// once the queue is full, which is the backpressure that keeps memory
// bounded.
func (p *Pipeline) produce(ctx context.Context, queue chan<- queueItem, pending *sync.WaitGroup, produced *atomic.Int64) error {
	cursor := ""
	for {
		items, next, err := p.producer.NextPage(ctx, cursor)
		if err != nil {
			return err
		}

		for _, item := range items {
			pending.Add(1)
			select {
			case queue <- queueItem{item: item}:
				produced.Add(1)
				p.stats.SetQueueDepth(int64(len(queue)))
			case <-ctx.Done():
				pending.Done()
				return ctx.Err()
			}
		}

		if next == "" {
			p.logger.Debug().Int64("items", produced.Load()).Msg("Finished paging listing endpoint")
			return nil
		}
		cursor = next
	}
}

// worker dequeues until it receives a sentinel. Every dequeued value is
// marked processed regardless of outcome; enrichment failures are caught
// here, logged with the item identity, and the item is dropped without
// retry.
func (p *Pipeline) worker(ctx context.Context, id int, queue <-chan queueItem, pending *sync.WaitGroup, mu *sync.Mutex, results *[]Item, dropped *atomic.Int64) {
	for {
		qi := <-queue
		if qi.sentinel {
			pending.Done()
			p.logger.Debug().Int("worker_id", id).Msg("Worker done")
			return
		}

		p.process(ctx, qi.item, mu, results, dropped)
		pending.Done()
		p.stats.SetQueueDepth(int64(len(queue)))
	}
}

func (p *Pipeline) process(ctx context.Context, item Item, mu *sync.Mutex, results *[]Item, dropped *atomic.Int64) {
	enriched, err := p.enricher.Enrich(ctx, item)
	if err != nil {
		dropped.Add(1)
		p.logger.Warn().
			Err(err).
			Str("item", p.cfg.Identity(item)).
			Msg("Enrichment failed - dropping item")
		return
	}

	mu.Lock()
	*results = append(*results, enriched)
	mu.Unlock()
}
