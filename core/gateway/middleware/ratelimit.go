package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/leofalp/aigw/providers/backend"
)

// RateLimitConfig tunes the per-backend token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained refill rate. Default: 10.
	RequestsPerSecond float64

	// Burst is the bucket capacity, i.e. how many calls may pass
	// back-to-back after an idle period. Default: 1, which spaces
	// admissions at 1/RequestsPerSecond so no one-second window ever sees
	// more than RequestsPerSecond calls. Setting it higher buys burst
	// tolerance at the price of that per-window bound: a window opening on
	// a full bucket can admit up to Burst-1 extra calls.
	Burst int

	// WaitForSlot makes over-quota calls block until a token refills,
	// bounded by the request deadline. When false they fail immediately
	// with a [backend.RateLimitError] carrying the wait as RetryAfter.
	WaitForSlot bool

	// now is swapped in tests.
	now func() time.Time
}

func applyRateLimitDefaults(config *RateLimitConfig) {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.now == nil {
		config.now = time.Now
	}
}

// bucket is a lazily-refilled token bucket. Tokens accrue continuously at
// rate per second up to burst; each admitted call spends one.
type bucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
	now    func() time.Time
}

func newBucket(config RateLimitConfig) *bucket {
	return &bucket{
		rate:   config.RequestsPerSecond,
		burst:  float64(config.Burst),
		tokens: float64(config.Burst),
		last:   config.now(),
		now:    config.now,
	}
}

// take spends a token if one is available, otherwise returns how long until
// the next token accrues.
func (b *bucket) take() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
	return wait, false
}

// acquire admits the call, blocking when configured to do so. The wait is
// bounded by ctx.
func (b *bucket) acquire(ctx context.Context, waitForSlot bool) error {
	for {
		wait, ok := b.take()
		if ok {
			return nil
		}

		if !waitForSlot {
			return &backend.RateLimitError{RetryAfter: wait}
		}

		if deadline, ok := ctx.Deadline(); ok && b.now().Add(wait).After(deadline) {
			// The token will not refill in time; fail now instead of
			// burning the rest of the deadline.
			return &backend.RateLimitError{RetryAfter: wait}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// NewRateLimitMiddleware constructs a token-bucket Config limiting how fast
// one backend may be called. Buffered and streaming calls draw from the same
// bucket. The instance carries mutable state, so never register the same
// Config on two backends.
func NewRateLimitMiddleware(config RateLimitConfig) Config {
	applyRateLimitDefaults(&config)
	b := newBucket(config)

	call := Middleware(func(next CallFunc) CallFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Result, error) {
			if err := b.acquire(ctx, config.WaitForSlot); err != nil {
				return nil, err
			}
			return next(ctx, request)
		}
	})

	stream := StreamMiddleware(func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Stream, error) {
			if err := b.acquire(ctx, config.WaitForSlot); err != nil {
				return nil, err
			}
			return next(ctx, request)
		}
	})

	return Config{Call: call, Stream: stream}
}
