package middleware

import (
	"context"
	"errors"

	"github.com/leofalp/aigw/providers/backend"
)

// ErrRetryExhausted is returned when every retry attempt has been consumed
// without a successful backend response. The returned error also wraps the
// last underlying failure, so errors.Is / errors.As reach the root cause.
var ErrRetryExhausted = errors.New("aigw: all retry attempts exhausted")

// ErrCircuitOpen is returned when the circuit breaker rejects a call without
// a network attempt. It fails fast and does not consume retry budget.
var ErrCircuitOpen = errors.New("aigw: circuit open")

// retryable reports whether err belongs to a class worth another attempt:
// rate limits, timeouts, and transient network failures. Configuration and
// authentication failures, circuit-open rejections, and caller cancellation
// are final.
func retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case backend.Fatal(err):
		return false
	case errors.Is(err, ErrCircuitOpen):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, backend.ErrRateLimit),
		errors.Is(err, backend.ErrTimeout),
		errors.Is(err, backend.ErrTransient):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		// A single attempt running out of time is a timeout-class failure.
		return true
	default:
		// Unclassified adapter errors are treated as transient.
		return true
	}
}

// countsAgainstBreaker reports whether a failure should advance the
// breaker's consecutive-failure counter. Fatal classes indicate caller or
// configuration problems, not backend health; circuit-open rejections never
// reach the wrapped call at all.
func countsAgainstBreaker(err error) bool {
	if err == nil {
		return false
	}
	if backend.Fatal(err) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
