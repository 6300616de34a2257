package middleware

import (
	"context"

	"github.com/leofalp/aigw/providers/backend"
)

// CallFunc performs one buffered generation call against a backend. It is
// the base unit threaded through the call middleware chain.
type CallFunc func(ctx context.Context, request backend.Request) (*backend.Result, error)

// StreamFunc performs one streaming generation call. It is the base unit
// threaded through the stream middleware chain.
type StreamFunc func(ctx context.Context, request backend.Request) (*backend.Stream, error)

// Middleware wraps a CallFunc. Each middleware receives the next CallFunc
// in the chain and returns a new one around it.
type Middleware func(next CallFunc) CallFunc

// StreamMiddleware is the streaming counterpart of Middleware. A nil value
// in a Config means streaming calls skip that entry.
type StreamMiddleware func(next StreamFunc) StreamFunc

// Config pairs a call middleware with its optional streaming counterpart.
// Call is required; Stream may be nil when the middleware cannot meaningfully
// wrap a stream (retry, for example: a mid-stream failure is not
// transparently retryable).
type Config struct {
	Call   Middleware
	Stream StreamMiddleware
}

// BuildCallChain constructs the call chain over adapter. Middlewares are
// applied in reverse so that configs[0] is the outermost wrapper, i.e. the
// first to run on an incoming request.
func BuildCallChain(adapter backend.Adapter, configs []Config) CallFunc {
	chain := CallFunc(adapter.Generate)

	for i := len(configs) - 1; i >= 0; i-- {
		if configs[i].Call != nil {
			chain = configs[i].Call(chain)
		}
	}
	return chain
}

// BuildStreamChain constructs the stream chain over adapter. The base
// function uses the adapter's native stream when it implements
// backend.StreamAdapter; otherwise it buffers one Generate call and chunks
// the result synthetically with chunkSize. Entries with a nil Stream field
// are skipped.
func BuildStreamChain(adapter backend.Adapter, chunkSize int, configs []Config) StreamFunc {
	var chain StreamFunc = func(ctx context.Context, request backend.Request) (*backend.Stream, error) {
		if streamer, ok := adapter.(backend.StreamAdapter); ok {
			return streamer.Stream(ctx, request)
		}

		result, err := adapter.Generate(ctx, request)
		if err != nil {
			return nil, err
		}
		return backend.NewSyntheticStream(result, chunkSize), nil
	}

	for i := len(configs) - 1; i >= 0; i-- {
		if configs[i].Stream != nil {
			chain = configs[i].Stream(chain)
		}
	}
	return chain
}

// Streams reports whether adapter exposes a native incremental channel.
func Streams(adapter backend.Adapter) bool {
	_, ok := adapter.(backend.StreamAdapter)
	return ok
}
