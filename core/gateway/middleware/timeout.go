package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/aigw/providers/backend"
)

// TimeoutConfig bounds the duration of one backend call.
type TimeoutConfig struct {
	// CallTimeout is the ceiling for a single buffered call. Default: 60s.
	CallTimeout time.Duration

	// StreamTimeout is the ceiling for the full life of a stream, from
	// open to the done sentinel. Default: 5m.
	StreamTimeout time.Duration
}

func applyTimeoutDefaults(config *TimeoutConfig) {
	if config.CallTimeout == 0 {
		config.CallTimeout = 60 * time.Second
	}
	if config.StreamTimeout == 0 {
		config.StreamTimeout = 5 * time.Minute
	}
}

// NewTimeoutMiddleware constructs a Config that runs each call under its
// own deadline. A deadline hit surfaces as an error wrapping
// [backend.ErrTimeout], which the retry middleware treats as retryable.
//
// For streams the deadline covers every chunk, not just the open: the
// derived context stays alive while the consumer iterates and is cancelled
// when the stream finishes or is abandoned.
func NewTimeoutMiddleware(config TimeoutConfig) Config {
	applyTimeoutDefaults(&config)

	call := Middleware(func(next CallFunc) CallFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Result, error) {
			callCtx, cancel := context.WithTimeout(ctx, config.CallTimeout)
			defer cancel()

			result, err := next(callCtx, request)
			if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("%w: call exceeded %s: %w", backend.ErrTimeout, config.CallTimeout, err)
			}
			return result, err
		}
	})

	stream := StreamMiddleware(func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Stream, error) {
			streamCtx, cancel := context.WithTimeout(ctx, config.StreamTimeout)

			inner, err := next(streamCtx, request)
			if err != nil {
				cancel()
				if errors.Is(streamCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
					return nil, fmt.Errorf("%w: stream open exceeded %s: %w", backend.ErrTimeout, config.StreamTimeout, err)
				}
				return nil, err
			}

			return wrapStreamWithCancel(inner, streamCtx, cancel, config.StreamTimeout), nil
		}
	})

	return Config{Call: call, Stream: stream}
}

// wrapStreamWithCancel keeps the deadline context alive for the life of the
// stream and releases it when iteration stops for any reason.
func wrapStreamWithCancel(inner *backend.Stream, ctx context.Context, cancel context.CancelFunc, limit time.Duration) *backend.Stream {
	return backend.NewStream(func(yield func(backend.Chunk, error) bool) {
		defer cancel()

		for chunk, err := range inner.Iter() {
			if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				yield(backend.Chunk{}, fmt.Errorf("%w: stream exceeded %s", backend.ErrTimeout, limit))
				return
			}
			if !yield(chunk, err) {
				return
			}
			if err != nil || chunk.Type == backend.ChunkDone {
				return
			}
		}
	})
}
