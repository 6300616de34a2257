package middleware

import "github.com/leofalp/aigw/providers/observability"

// StackConfig collects the per-middleware settings for one backend's
// default resilience stack. Zero-valued sections use each middleware's own
// defaults.
type StackConfig struct {
	Backend       string
	Retry         RetryConfig
	Breaker       BreakerConfig
	RateLimit     RateLimitConfig
	Timeout       TimeoutConfig
	Observability observability.Provider
}

// DefaultStack builds the standard resilience chain for one backend:
//
//	retry → breaker → ratelimit → timeout → logging
//
// The returned slice carries per-backend state (breaker, bucket); build a
// fresh stack for every backend registration.
func DefaultStack(config StackConfig) []Config {
	if config.Observability == nil {
		config.Observability = observability.Noop()
	}
	config.Breaker.Backend = config.Backend
	if config.Breaker.Observability == nil {
		config.Breaker.Observability = config.Observability
	}

	return []Config{
		NewRetryMiddleware(config.Retry),
		NewBreakerMiddleware(config.Breaker),
		NewRateLimitMiddleware(config.RateLimit),
		NewTimeoutMiddleware(config.Timeout),
		NewLoggingMiddleware(LoggingConfig{
			Backend:       config.Backend,
			Observability: config.Observability,
		}),
	}
}
