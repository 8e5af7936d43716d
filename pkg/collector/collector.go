// Package collector harvests an NFT collection: it resolves the
// collection's contract, pages every token through the listing client, and
// enriches each token with its trait metadata through a second, more
// parallel client instance.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/nft-harvester/pkg/client"
	"github.com/Sternrassler/nft-harvester/pkg/pipeline"
	"github.com/Sternrassler/nft-harvester/pkg/registry"
)

// DefaultBaseURL is the catalog service root.
const DefaultBaseURL = "https://api.opensea.io"

// Config holds collector configuration.
type Config struct {
	// BaseURL of the catalog service (default DefaultBaseURL).
	BaseURL string

	// APIKey for the listing endpoint (x-api-key).
	APIKey string

	// PageLimit is the page size requested from the listing endpoint.
	PageLimit int

	// ListingConcurrency bounds the listing client (the catalog service
	// rate-limits aggressively; default 2).
	ListingConcurrency int

	// MetadataConcurrency bounds the enrichment client (default 15).
	MetadataConcurrency int

	// MaxTTL is the cache TTL ceiling applied by both clients.
	MaxTTL time.Duration

	// Retry is the network fetch retry policy for both clients.
	Retry client.RetryConfig

	// Pipeline tunes the queue and worker pool.
	Pipeline pipeline.Config
}

// Collector drives a full harvest run. The listing and metadata clients
// are separate instances with independent namespaces and concurrency
// budgets, sharing one cache store through the registry.
type Collector struct {
	listing  *client.Client
	metadata *client.Client
	registry *registry.Registry
	cfg      Config
	logger   zerolog.Logger
}

// New creates a collector and its two cache client instances.
func New(reg *registry.Registry, cfg Config) (*Collector, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 200
	}
	if cfg.ListingConcurrency <= 0 {
		cfg.ListingConcurrency = 2
	}
	if cfg.MetadataConcurrency <= 0 {
		cfg.MetadataConcurrency = 15
	}

	listing, err := client.New(client.Config{
		Namespace:      "opensea",
		MaxConcurrency: cfg.ListingConcurrency,
		MaxTTL:         cfg.MaxTTL,
		APIKey:         cfg.APIKey,
		Retry:          cfg.Retry,
	}, reg)
	if err != nil {
		return nil, fmt.Errorf("listing client: %w", err)
	}

	metadata, err := client.New(client.Config{
		Namespace:      "metadata",
		MaxConcurrency: cfg.MetadataConcurrency,
		MaxTTL:         cfg.MaxTTL,
		Retry:          cfg.Retry,
	}, reg)
	if err != nil {
		return nil, fmt.Errorf("metadata client: %w", err)
	}

	return &Collector{
		listing:  listing,
		metadata: metadata,
		registry: reg,
		cfg:      cfg,
		logger:   log.With().Str("component", "collector").Logger(),
	}, nil
}

// CollectionMetadata fetches the collection document for a slug.
func (c *Collector) CollectionMetadata(ctx context.Context, slug string) (pipeline.Item, error) {
	url := fmt.Sprintf("%s/api/v2/collections/%s", c.cfg.BaseURL, slug)
	body, err := c.listing.Get(ctx, url, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch collection metadata: %w", err)
	}

	var metadata pipeline.Item
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("decode collection metadata: %w", err)
	}
	return metadata, nil
}

// Harvest collects every token of the collection, enriched with traits.
// A missing contract is a structural failure: the run aborts with no
// results. Per-token enrichment failures are dropped inside the pipeline.
func (c *Collector) Harvest(ctx context.Context, slug string) ([]pipeline.Item, error) {
	metadata, err := c.CollectionMetadata(ctx, slug)
	if err != nil {
		return nil, err
	}

	contracts, ok := metadata["contracts"].([]any)
	if !ok || len(contracts) == 0 {
		c.logger.Error().Str("slug", slug).Msg("No contract found for collection")
		return nil, fmt.Errorf("no contract found for %s", slug)
	}

	contract, ok := contracts[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("malformed contract entry for %s", slug)
	}
	address, _ := contract["address"].(string)
	chain, _ := contract["chain"].(string)
	if address == "" || chain == "" {
		return nil, fmt.Errorf("contract for %s is missing address or chain", slug)
	}

	producer := &listingProducer{
		client: c.listing,
		url:    fmt.Sprintf("%s/api/v2/chain/%s/contract/%s/nfts", c.cfg.BaseURL, chain, address),
		limit:  c.cfg.PageLimit,
	}
	enricher := &traitEnricher{client: c.metadata, logger: c.logger}

	pipeCfg := c.cfg.Pipeline
	pipeCfg.Identity = func(item pipeline.Item) string {
		return fmt.Sprint(item["identifier"])
	}

	pipe := pipeline.New(producer, enricher, pipeCfg, c.registry.Stats())
	return pipe.Run(ctx)
}

// listingProducer pages the tokens of one contract using the server's
// opaque cursor.
type listingProducer struct {
	client *client.Client
	url    string
	limit  int
}

func (p *listingProducer) NextPage(ctx context.Context, cursor string) ([]pipeline.Item, string, error) {
	params := map[string]string{"limit": fmt.Sprintf("%d", p.limit)}
	if cursor != "" {
		params["next"] = cursor
	}

	body, err := p.client.Get(ctx, p.url, params, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch listing page: %w", err)
	}

	var page struct {
		NFTs []pipeline.Item `json:"nfts"`
		Next string          `json:"next"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("decode listing page: %w", err)
	}
	return page.NFTs, page.Next, nil
}

// traitEnricher resolves each token's metadata_url and merges the
// document's attributes into the item as traits.
type traitEnricher struct {
	client *client.Client
	logger zerolog.Logger
}

func (e *traitEnricher) Enrich(ctx context.Context, item pipeline.Item) (pipeline.Item, error) {
	metadataURL, _ := item["metadata_url"].(string)
	if metadataURL == "" {
		e.logger.Warn().
			Str("collection", fmt.Sprint(item["collection"])).
			Msg("No metadata url found - passing item through unenriched")
		return item, nil
	}

	body, err := e.client.Get(ctx, metadataURL, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch token metadata: %w", err)
	}

	var doc struct {
		Attributes any `json:"attributes"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode token metadata: %w", err)
	}

	item["traits"] = doc.Attributes
	return item, nil
}
