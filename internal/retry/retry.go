package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int           // Maximum number of attempts (default: 3)
	InitialDelay    time.Duration // Delay before first retry (default: 100ms)
	MaxDelay        time.Duration // Maximum delay between retries (default: 5s)
	Multiplier      float64       // Exponential backoff multiplier (default: 2.0)
	RetryableErrors []string      // Error substrings that are retryable
}

// DefaultConfig returns default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"connection lost",
			"timeout",
			"network is unreachable",
			"no such host",
			"temporary failure",
			"unexpected EOF",
			"status 429", // archive throttling
			"status 500",
			"status 502",
			"status 503",
			"status 504",
			"code: 999", // ClickHouse: connection lost
			"code: 241", // ClickHouse: memory limit exceeded
			"code: 159", // ClickHouse: timeout exceeded
			"code: 160", // ClickHouse: unknown packet from server
		},
	}
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error, cfg Config) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Permanent conditions: a missing file or a malformed request will not
	// get better with another attempt.
	if strings.Contains(errStr, "status 404") || strings.Contains(errStr, "status 400") {
		return false
	}

	for _, pattern := range cfg.RetryableErrors {
		if strings.Contains(errStr, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}

// Do executes a function with retry logic
func Do(ctx context.Context, cfg Config, operation func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// DoWithResult executes a function that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		result, err := operation()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Operation succeeded after retry")
			}
			return result, nil
		}

		lastErr = err

		if !IsRetryableError(err, cfg) {
			log.Debug().
				Err(err).
				Int("attempt", attempt).
				Msg("Error is not retryable, aborting")
			return zero, err
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("retry_delay", delay).
			Msg("Operation failed, retrying")

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
