package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/observability"
)

// BreakerConfig tunes the per-backend circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive counted failures that
	// opens the circuit. Default: 5.
	FailureThreshold int

	// FailureWindow bounds how far apart consecutive failures may be and
	// still count as a streak. A success, or a gap longer than the window,
	// resets the counter. Default: 1m.
	FailureWindow time.Duration

	// Cooldown is how long an open circuit rejects calls before allowing
	// a single half-open trial. Default: 30s.
	Cooldown time.Duration

	// Observability receives circuit state-change events. Defaults to the
	// noop provider.
	Observability observability.Provider

	// Backend names the protected backend in events and logs.
	Backend string

	// now is swapped in tests.
	now func() time.Time
}

func applyBreakerDefaults(config *BreakerConfig) {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.FailureWindow == 0 {
		config.FailureWindow = time.Minute
	}
	if config.Cooldown == 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.Observability == nil {
		config.Observability = observability.Noop()
	}
	if config.now == nil {
		config.now = time.Now
	}
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// breaker holds the mutable circuit state shared by the call and stream
// sides of one middleware instance.
type breaker struct {
	config BreakerConfig

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
	openedAt    time.Time
	trialActive bool
}

// admit decides whether a call may proceed. In the open state it transitions
// to half-open once the cooldown has elapsed, admitting exactly one trial.
func (b *breaker) admit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return nil
	case breakerOpen:
		if b.config.now().Sub(b.openedAt) < b.config.Cooldown {
			return ErrCircuitOpen
		}
		b.transition(ctx, breakerHalfOpen)
		b.trialActive = true
		return nil
	default: // half-open
		if b.trialActive {
			// The single trial slot is taken; everyone else fails fast.
			return ErrCircuitOpen
		}
		b.trialActive = true
		return nil
	}
}

// report feeds the outcome of an admitted call back into the state machine.
func (b *breaker) report(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.trialActive = false
		if err == nil {
			b.failures = 0
			b.transition(ctx, breakerClosed)
			return
		}
		if countsAgainstBreaker(err) {
			b.openedAt = b.config.now()
			b.transition(ctx, breakerOpen)
		}
		return
	}

	if err == nil {
		b.failures = 0
		return
	}
	if !countsAgainstBreaker(err) {
		return
	}

	now := b.config.now()
	if b.failures > 0 && now.Sub(b.lastFailure) > b.config.FailureWindow {
		// Too stale to continue the streak; this failure starts a new one.
		b.failures = 0
	}
	b.failures++
	b.lastFailure = now

	if b.state == breakerClosed && b.failures >= b.config.FailureThreshold {
		b.openedAt = now
		b.transition(ctx, breakerOpen)
	}
}

// transition must be called with b.mu held.
func (b *breaker) transition(ctx context.Context, next breakerState) {
	previous := b.state
	b.state = next
	if previous == next {
		return
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrBackend, b.config.Backend),
		observability.String(observability.AttrCircuitState, next.String()),
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		switch next {
		case breakerOpen:
			span.AddEvent(observability.EventCircuitOpened, attrs...)
		case breakerClosed:
			span.AddEvent(observability.EventCircuitClosed, attrs...)
		}
	}

	switch next {
	case breakerOpen:
		b.config.Observability.Warn(ctx, "circuit opened", attrs...)
	case breakerClosed:
		b.config.Observability.Info(ctx, "circuit closed", attrs...)
	default:
		b.config.Observability.Debug(ctx, "circuit half-open", attrs...)
	}
}

// State returns the current state name, for status endpoints and tests.
func (b *breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

// NewBreakerMiddleware constructs a circuit breaker Config protecting one
// backend. Rejected calls fail immediately with [ErrCircuitOpen] and never
// reach the network.
//
// Both the buffered and the streaming path share the same circuit: a
// failing stream open counts against the same streak as a failing call.
// The instance carries mutable state, so never register the same Config on
// two backends.
func NewBreakerMiddleware(config BreakerConfig) Config {
	applyBreakerDefaults(&config)
	b := &breaker{config: config}

	call := Middleware(func(next CallFunc) CallFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Result, error) {
			if err := b.admit(ctx); err != nil {
				return nil, err
			}
			result, err := next(ctx, request)
			b.report(ctx, err)
			return result, err
		}
	})

	stream := StreamMiddleware(func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Stream, error) {
			if err := b.admit(ctx); err != nil {
				return nil, err
			}
			// Only the open of the stream is judged; a later mid-stream
			// failure has already proven the backend reachable.
			stream, err := next(ctx, request)
			b.report(ctx, err)
			return stream, err
		}
	})

	return Config{Call: call, Stream: stream}
}
