package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/nft-harvester/internal/config"
	"github.com/Sternrassler/nft-harvester/pkg/cache"
	"github.com/Sternrassler/nft-harvester/pkg/client"
	"github.com/Sternrassler/nft-harvester/pkg/collector"
	"github.com/Sternrassler/nft-harvester/pkg/logging"
	"github.com/Sternrassler/nft-harvester/pkg/pipeline"
	"github.com/Sternrassler/nft-harvester/pkg/registry"
	"github.com/Sternrassler/nft-harvester/pkg/stats"
	"github.com/Sternrassler/nft-harvester/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	slug := flag.String("slug", "", "collection slug to harvest (overrides config)")
	flag.Parse()

	if *slug != "" {
		os.Setenv("HARVESTER_CATALOG_SLUG", *slug)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "nft-harvester: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		File:   cfg.Logging.File,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	reg := registry.New(cache.NewRedisStore(redisClient), stats.New(), logger)
	// Cleanup runs exactly once however the run ends: success, structural
	// failure, or interrupt.
	defer reg.CleanupAll()

	coll, err := collector.New(reg, collector.Config{
		BaseURL:             cfg.Catalog.BaseURL,
		APIKey:              cfg.Catalog.APIKey,
		PageLimit:           cfg.Catalog.PageLimit,
		ListingConcurrency:  cfg.Clients.ListingConcurrency,
		MetadataConcurrency: cfg.Clients.MetadataConcurrency,
		MaxTTL:              cfg.Clients.MaxTTL(),
		Retry: client.RetryConfig{
			MaxAttempts:       cfg.Retry.MaxAttempts,
			InitialBackoff:    time.Duration(cfg.Retry.BackoffInitialMs) * time.Millisecond,
			MaxBackoff:        time.Duration(cfg.Retry.BackoffMaxMs) * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
		Pipeline: pipeline.Config{
			QueueSize: cfg.Pipeline.QueueSize,
			Workers:   cfg.Pipeline.Workers,
		},
	})
	if err != nil {
		return err
	}

	start := time.Now()
	items, err := coll.Harvest(ctx, cfg.Catalog.Slug)
	if err != nil {
		return fmt.Errorf("harvest %s: %w", cfg.Catalog.Slug, err)
	}

	path, err := store.WriteJSON(items, cfg.Catalog.Slug, cfg.Output.Dir)
	if err != nil {
		return err
	}

	logger.Info().
		Str("slug", cfg.Catalog.Slug).
		Str("artifact", path).
		Int("items", len(items)).
		Float64("elapsed_minutes", time.Since(start).Minutes()).
		Msg("Harvest complete")
	return nil
}
