// Package stub provides a deterministic, in-process backend adapter. It
// replays a scripted sequence of results and errors, optionally over a
// native chunk stream, and is the reference implementation used by the
// gateway tests and examples.
package stub

import (
	"context"
	"sync"

	"github.com/leofalp/aigw/providers/backend"
)

// Step is one scripted outcome. When Err is non-nil the call fails with it;
// otherwise Result is returned (a nil Result yields an empty one).
type Step struct {
	Result *backend.Result
	Err    error
}

// Backend replays its script in order, one step per Generate or Stream
// call. Once the script is exhausted the last step repeats. The zero value
// is usable and answers every call with an empty result.
//
// Backend is safe for concurrent use.
type Backend struct {
	// Script is the ordered list of outcomes to replay.
	Script []Step

	// StreamChunkSize controls how the scripted content is cut into
	// chunks on the native streaming path ([Streamer]). Defaults to 8 bytes.
	StreamChunkSize int

	mu       sync.Mutex
	requests []backend.Request
}

var _ backend.Adapter = (*Backend)(nil)

// Calls reports how many Generate/Stream calls reached the adapter.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Requests returns a copy of every request the adapter received, in order.
func (b *Backend) Requests() []backend.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	requests := make([]backend.Request, len(b.requests))
	copy(requests, b.requests)
	return requests
}

func (b *Backend) next(request backend.Request) Step {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, request)

	if len(b.Script) == 0 {
		return Step{Result: &backend.Result{}}
	}

	index := len(b.requests) - 1
	if index >= len(b.Script) {
		index = len(b.Script) - 1
	}
	step := b.Script[index]
	if step.Err == nil && step.Result == nil {
		step.Result = &backend.Result{}
	}
	return step
}

// Generate replays the next scripted step.
func (b *Backend) Generate(ctx context.Context, request backend.Request) (*backend.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	step := b.next(request)
	if step.Err != nil {
		return nil, step.Err
	}

	result := *step.Result
	return &result, nil
}

// Streamer wraps a Backend so that it also satisfies backend.StreamAdapter.
// Tests use it to exercise the native streaming path with the same script.
type Streamer struct {
	*Backend
}

var _ backend.StreamAdapter = Streamer{}

// Stream replays the next scripted step as a native chunk sequence.
func (s Streamer) Stream(ctx context.Context, request backend.Request) (*backend.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	step := s.next(request)
	if step.Err != nil {
		return nil, step.Err
	}

	size := s.StreamChunkSize
	if size <= 0 {
		size = 8
	}
	return backend.NewSyntheticStream(step.Result, size), nil
}
