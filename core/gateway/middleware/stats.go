package middleware

import "context"

// CallStats accumulates per-call resilience counters. The gateway attaches
// one to the context before invoking a chain; the retry middleware fills it
// in so the final result can report how hard the call was to complete.
type CallStats struct {
	// Attempts is the number of times the wrapped call was invoked.
	Attempts int

	// Retries is Attempts minus the first try; zero for a clean call.
	Retries int
}

type statsKey struct{}

// WithStats returns a context carrying stats for the duration of one call.
func WithStats(ctx context.Context, stats *CallStats) context.Context {
	return context.WithValue(ctx, statsKey{}, stats)
}

// StatsFromContext returns the stats carrier, or nil when absent.
func StatsFromContext(ctx context.Context) *CallStats {
	stats, _ := ctx.Value(statsKey{}).(*CallStats)
	return stats
}

func recordAttempt(ctx context.Context, attempt int) {
	if stats := StatsFromContext(ctx); stats != nil {
		stats.Attempts = attempt + 1
		stats.Retries = attempt
	}
}
