package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/leofalp/aigw/providers/backend"
)

// RetryConfig holds the tuning parameters for the retry middleware. Zero
// values are replaced with the defaults documented per field.
type RetryConfig struct {
	// MaxAttempts is the total number of times the call may run, first
	// try included. A value of 4 allows 3 retries. Default: 4.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier
	// (backoff = min(InitialBackoff * BackoffFactor^retry, MaxBackoff)).
	// Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise in [0, JitterFraction*backoff] to
	// avoid thundering herds. Default: 0.1.
	JitterFraction float64

	// RetryableFunc decides whether an error warrants another attempt.
	// The default retries rate-limit, timeout, and transient classes and
	// never retries configuration, authentication, or circuit-open
	// failures.
	RetryableFunc func(error) bool
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 4
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = retryable
	}
}

// computeBackoff returns the wait before retry number retry (0-indexed).
func computeBackoff(config RetryConfig, retry int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(retry))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// retryDelay picks the wait before the next attempt: a vendor retry-after
// hint wins over the computed backoff.
func retryDelay(config RetryConfig, retry int, lastErr error) time.Duration {
	var rateLimited *backend.RateLimitError
	if errors.As(lastErr, &rateLimited) && rateLimited.RetryAfter > 0 {
		return rateLimited.RetryAfter
	}
	return computeBackoff(config, retry)
}

// NewRetryMiddleware constructs a Config that retries failed calls
// according to config. Zero-valued fields get safe defaults.
//
// The Stream field of the returned Config is nil: a stream that fails
// mid-flight has already delivered chunks and cannot be transparently
// replayed. Pre-stream failures are retried by the gateway falling back to
// the buffered path.
//
// On exhaustion the returned error wraps both [ErrRetryExhausted] and the
// last backend error.
func NewRetryMiddleware(config RetryConfig) Config {
	applyRetryDefaults(&config)

	call := Middleware(func(next CallFunc) CallFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Result, error) {
			var lastErr error

			for attempt := 0; attempt < config.MaxAttempts; attempt++ {
				if attempt > 0 {
					// Respect caller cancellation between attempts.
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(retryDelay(config, attempt-1, lastErr)):
					}
				}

				recordAttempt(ctx, attempt)

				result, err := next(ctx, request)
				if err == nil {
					return result, nil
				}

				lastErr = err

				if !config.RetryableFunc(err) {
					return nil, err
				}
			}

			return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
		}
	})

	return Config{Call: call}
}
