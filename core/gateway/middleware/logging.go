package middleware

import (
	"context"
	"time"

	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/observability"
)

// LoggingConfig names the backend in call logs and picks the telemetry
// provider.
type LoggingConfig struct {
	Backend       string
	Observability observability.Provider
}

// NewLoggingMiddleware constructs a Config that records every call and
// stream open through the configured observability provider: a debug record
// going in, and an info or error record with the duration coming out.
//
// Place it innermost so each individual retry attempt is logged, not just
// the caller-visible outcome.
func NewLoggingMiddleware(config LoggingConfig) Config {
	obs := config.Observability
	if obs == nil {
		obs = observability.Noop()
	}

	call := Middleware(func(next CallFunc) CallFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Result, error) {
			obs.Debug(ctx, "backend call",
				observability.String(observability.AttrBackend, config.Backend),
				observability.String(observability.AttrModel, request.Model),
			)

			start := time.Now()
			result, err := next(ctx, request)
			duration := time.Since(start)

			if err != nil {
				obs.Error(ctx, "backend call failed",
					observability.String(observability.AttrBackend, config.Backend),
					observability.String(observability.AttrModel, request.Model),
					observability.Duration(observability.AttrDuration, duration),
					observability.Error(err),
				)
				return nil, err
			}

			obs.Info(ctx, "backend call completed",
				observability.String(observability.AttrBackend, config.Backend),
				observability.String(observability.AttrModel, result.Model),
				observability.String(observability.AttrFinishReason, result.FinishReason),
				observability.Duration(observability.AttrDuration, duration),
			)
			return result, nil
		}
	})

	stream := StreamMiddleware(func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request backend.Request) (*backend.Stream, error) {
			obs.Debug(ctx, "backend stream open",
				observability.String(observability.AttrBackend, config.Backend),
				observability.String(observability.AttrModel, request.Model),
			)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				obs.Error(ctx, "backend stream open failed",
					observability.String(observability.AttrBackend, config.Backend),
					observability.Duration(observability.AttrDuration, time.Since(start)),
					observability.Error(err),
				)
				return nil, err
			}

			obs.Info(ctx, "backend stream opened",
				observability.String(observability.AttrBackend, config.Backend),
				observability.Duration(observability.AttrDuration, time.Since(start)),
			)
			return stream, nil
		}
	})

	return Config{Call: call, Stream: stream}
}
