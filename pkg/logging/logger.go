// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// File, when set, additionally writes JSON logs to this path. The file
	// is started fresh on every run.
	File string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	if cfg.File != "" {
		if file := openLogFile(cfg.File); file != nil {
			output = zerolog.MultiLevelWriter(output, file)
		}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// openLogFile truncates and opens the log file, creating its directory.
// Returns nil when the file cannot be opened; console logging continues.
func openLogFile(path string) io.Writer {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil
	}
	return file
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Request flow (conditional requests, ETags, revalidations)
//   - Worker lifecycle and retry backoffs
//
// Info: Normal operation events
//   - Harvest start/finish and artifact writes
//   - Periodic status lines in non-interactive runs
//   - Requests succeeding after retries
//
// Warn: Warning conditions that don't prevent operation
//   - Enrichment failures (item dropped, run continues)
//   - Background revalidation failures
//   - Cleanup failures for individual resources
//
// Error: Error conditions requiring attention
//   - Structural catalog failures (missing contract, failed listing)
//   - Artifact write failures
//
// Context Fields:
//   - namespace: cache client namespace (opensea, metadata)
//   - url / host: request target
//   - status: HTTP status code
//   - attempt / wait / elapsed: retry progress
//   - item: dropped item identity
//   - queue: current pipeline queue depth
