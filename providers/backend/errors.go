package backend

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors adapters use to classify failures. The resilience layer
// keys its retry decisions off these via errors.Is; anything that does not
// match a fatal sentinel is treated as transient.
var (
	// ErrConfiguration marks an invalid or missing backend configuration
	// (unknown model, malformed base URL). Never retried.
	ErrConfiguration = errors.New("backend: configuration error")

	// ErrAuthentication marks a rejected credential. Never retried.
	ErrAuthentication = errors.New("backend: authentication error")

	// ErrRateLimit marks a vendor quota rejection. Retried per policy;
	// prefer returning a [RateLimitError] so the retry-after hint is kept.
	ErrRateLimit = errors.New("backend: rate limited")

	// ErrTimeout marks a call that exceeded its deadline. Retried per policy.
	ErrTimeout = errors.New("backend: timeout")

	// ErrTransient marks a generic recoverable network failure. Retried
	// per policy.
	ErrTransient = errors.New("backend: transient failure")
)

// RateLimitError is a rate-limit rejection carrying the vendor's retry-after
// hint. It matches ErrRateLimit under errors.Is, so callers that only care
// about the class need no type assertion.
type RateLimitError struct {
	// RetryAfter is the wait the vendor asked for; zero when the vendor
	// gave no hint.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("backend: rate limited, retry after %s", e.RetryAfter)
	}
	return "backend: rate limited"
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimit
}

// Fatal reports whether err belongs to a class that must never be retried.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrAuthentication)
}
