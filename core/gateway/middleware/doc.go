// Package middleware implements the resilience layer wrapped around every
// backend adapter call: retry with backoff, per-backend circuit breaking,
// token-bucket rate limiting, per-call deadlines, and structured call
// logging.
//
// Each middleware is constructed by a New* function returning a [Config]
// ready to be registered on a gateway backend. Middlewares execute
// outermost-first: the first entry in the slice runs first on the way in and
// last on the way out.
//
// # Available middleware
//
//   - [NewRetryMiddleware]: retries transient failures with exponential
//     backoff and multiplicative jitter; honours vendor retry-after hints;
//     never retries configuration or authentication failures; circuit-open
//     rejections pass through without consuming the budget.
//
//   - [NewBreakerMiddleware]: per-backend circuit breaker. After N
//     consecutive transient failures inside a rolling window the circuit
//     opens and calls fail fast with [ErrCircuitOpen] until a cooldown
//     elapses, then one half-open trial decides whether to close or reopen.
//
//   - [NewRateLimitMiddleware]: token bucket per backend; over-quota calls
//     wait for a refill (bounded by the request deadline) or are rejected,
//     per configuration.
//
//   - [NewTimeoutMiddleware]: bounds each call with context.WithTimeout;
//     for streams the deadline covers the full life of the stream, not just
//     the first byte.
//
//   - [NewLoggingMiddleware]: slog records before and after every call.
//
// # Ordering
//
// The stack produced by [DefaultStack] is
//
//	retry → breaker → ratelimit → timeout → logging → adapter
//
// so a single caller-visible attempt may internally retry, each retry is
// vetted by the breaker, then pays the rate limit, and runs under its own
// deadline. With this ordering rate-limit rejections and timeouts count as
// failures on the breaker, which is what keeps a misbehaving backend from
// being hammered.
//
// Breaker and rate-limit middlewares carry per-backend state; construct a
// fresh instance per backend and never share one Config across backends.
package middleware
