package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvester_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_retry_exhausted_total",
		Help: "Total number of times a retry attempt ceiling was hit by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the attempt ceiling including the initial request.
	// Zero or negative means unbounded: retry until success or a
	// non-retryable error.
	MaxAttempts int

	// InitialBackoff is the first backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration: unbounded
// attempts, 1s initial backoff doubling up to a 300s ceiling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       0,
		InitialBackoff:    1 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        300 * time.Second,
	}
}

// retryWithBackoff executes fn with exponential backoff until it succeeds,
// returns a non-retryable error, or (when MaxAttempts > 0) the attempt
// ceiling is hit. Each retry records the target host, the attempt number,
// the wait duration, and the cumulative time spent waiting, and bumps the
// shared retry/error counters. The backoff sleep honors ctx cancellation.
func (c *Client) retryWithBackoff(ctx context.Context, host string, fn func() error) error {
	config := c.retry
	backoff := config.InitialBackoff
	var waited time.Duration

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				c.logger.Info().
					Str("host", host).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		errClass := classifyError(err)
		if config.MaxAttempts > 0 && attempt >= config.MaxAttempts {
			retryExhaustedTotal.WithLabelValues(string(errClass)).Inc()
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		c.stats.AddRetry()
		c.stats.AddError()
		retriesTotal.WithLabelValues(string(errClass)).Inc()

		// Jitter (±20%) keeps concurrent callers from retrying in lockstep.
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(errClass)).Observe(wait.Seconds())

		c.logger.Debug().
			Err(err).
			Str("host", host).
			Int("attempt", attempt).
			Dur("wait", wait).
			Dur("elapsed", waited).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			c.logger.Warn().
				Str("host", host).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-c.sleep(wait):
		}
		waited += wait

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}
}

// sleep returns a channel that fires after d. Tests shrink waits by
// swapping the sleep function.
func (c *Client) sleep(d time.Duration) <-chan time.Time {
	if c.sleepFn != nil {
		return c.sleepFn(d)
	}
	return time.After(d)
}
