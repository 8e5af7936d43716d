// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all harvester configuration knobs loaded via Viper.
type Config struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Clients  ClientsConfig  `mapstructure:"clients"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RedisConfig controls the shared cache store connection.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// CatalogConfig identifies the collection to harvest.
type CatalogConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Slug      string `mapstructure:"slug"`
	PageLimit int    `mapstructure:"page_limit"`
}

// ClientsConfig sets the per-instance concurrency budgets and the cache
// TTL ceiling.
type ClientsConfig struct {
	ListingConcurrency  int `mapstructure:"listing_concurrency"`
	MetadataConcurrency int `mapstructure:"metadata_concurrency"`
	MaxTTLSeconds       int `mapstructure:"max_ttl_seconds"`
}

// PipelineConfig governs the bounded queue and worker pool.
type PipelineConfig struct {
	QueueSize int `mapstructure:"queue_size"`
	Workers   int `mapstructure:"workers"`
}

// RetryConfig configures network fetch retry behavior. MaxAttempts zero
// means unbounded.
type RetryConfig struct {
	MaxAttempts      int `mapstructure:"max_attempts"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// OutputConfig sets the artifact destination.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

// MaxTTL returns the cache TTL ceiling as a duration.
func (c ClientsConfig) MaxTTL() time.Duration {
	return time.Duration(c.MaxTTLSeconds) * time.Second
}

// Load builds a Config from disk/environment. Environment variables use
// the HARVESTER prefix with underscores (e.g. HARVESTER_REDIS_ADDR).
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("catalog.base_url", "https://api.opensea.io")
	// Empty defaults register the keys so AutomaticEnv can fill them
	// during Unmarshal.
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.slug", "")
	v.SetDefault("catalog.page_limit", 200)
	v.SetDefault("clients.listing_concurrency", 2)
	v.SetDefault("clients.metadata_concurrency", 15)
	v.SetDefault("clients.max_ttl_seconds", 86400)
	v.SetDefault("pipeline.queue_size", 500)
	v.SetDefault("pipeline.workers", 15)
	v.SetDefault("retry.max_attempts", 0)
	v.SetDefault("retry.backoff_initial_ms", 1000)
	v.SetDefault("retry.backoff_max_ms", 300000)
	v.SetDefault("output.dir", "output")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
	v.SetDefault("logging.file", "")
}

// Validate rejects configurations the harvester cannot run with.
func (c Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.Catalog.Slug == "" {
		return fmt.Errorf("catalog.slug is required")
	}
	if c.Catalog.PageLimit <= 0 {
		return fmt.Errorf("catalog.page_limit must be positive (got %d)", c.Catalog.PageLimit)
	}
	if c.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("pipeline.queue_size must be positive (got %d)", c.Pipeline.QueueSize)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive (got %d)", c.Pipeline.Workers)
	}
	if c.Clients.MaxTTLSeconds <= 0 {
		return fmt.Errorf("clients.max_ttl_seconds must be positive (got %d)", c.Clients.MaxTTLSeconds)
	}
	return nil
}
