package backend

import "context"

// Adapter is the interface every vendor backend must satisfy. It covers one
// complete generation call: the adapter sends the canonical request, waits
// for the vendor response, and translates it back to a canonical [Result].
//
// Adapters classify their failures using the sentinel errors in this package
// (wrap with fmt.Errorf("...: %w", ErrTransient) or return a
// [RateLimitError]); unclassified errors are treated as transient by the
// resilience layer.
type Adapter interface {
	// Generate performs one blocking generation call. It returns an error
	// if the vendor call fails, the context is cancelled, or the response
	// cannot be decoded.
	Generate(ctx context.Context, request Request) (*Result, error)
}

// StreamAdapter is an optional interface adapters implement when the vendor
// exposes a native incremental channel. Callers detect support via type
// assertion: adapter.(StreamAdapter). Absence forces synthetic streaming.
type StreamAdapter interface {
	Adapter

	// Stream performs one generation call and returns a Stream that yields
	// chunks in arrival order. Pre-stream errors (auth, bad request,
	// network) are returned as a normal error; mid-stream errors are
	// yielded through the iterator.
	Stream(ctx context.Context, request Request) (*Stream, error)
}
