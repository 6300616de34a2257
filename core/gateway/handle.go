package gateway

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/aigw/core/analytics"
	"github.com/leofalp/aigw/core/evaluation"
	"github.com/leofalp/aigw/core/gateway/middleware"
	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/observability"
	"github.com/leofalp/aigw/providers/tool"
)

// Generation is the handle for one streaming generation: the chunk
// sequence plus two independently awaitable deferred values. Usage and
// evaluation resolve on their own goroutines after the content finishes;
// neither blocks chunk delivery.
type Generation struct {
	// ID is the unique generation identifier.
	ID string

	// Backend and Model identify what serves the request.
	Backend string
	Model   string

	// Native reports whether chunks come from the backend's own
	// incremental channel rather than a buffered synthetic split.
	Native bool

	gateway *Gateway
	stream  *backend.Stream
	prompt  string
	records []tool.CallRecord

	resolveOnce sync.Once

	usageDone chan struct{}
	usage     analytics.UsageRecord

	evalDone chan struct{}
	verdict  *evaluation.Verdict
}

// Stream starts one streaming generation. Native incremental delivery is
// used whenever the selected adapter supports it; otherwise, and whenever
// tools are enabled (tool dispatch needs a materialized response), the
// result is buffered and split synthetically.
//
// The caller must consume [Generation.Chunks]; abandoning the loop tears
// down the underlying call and resolves usage as incomplete.
func (g *Gateway) Stream(ctx context.Context, request Request) (*Generation, error) {
	name, err := g.selectBackend(request.Backend)
	if err != nil {
		return nil, err
	}
	normalized, err := g.normalize(request)
	if err != nil {
		return nil, err
	}

	chains := g.chainsFor(name)
	id := uuid.NewString()

	generation := &Generation{
		ID:        id,
		Backend:   name,
		Model:     request.Model,
		gateway:   g,
		prompt:    request.Prompt,
		usageDone: make(chan struct{}),
		evalDone:  make(chan struct{}),
	}

	useTools := request.EnableTools && g.registry.Size() > 0
	if useTools {
		// Tool dispatch needs the complete response before any chunk can
		// be trusted as final, so the loop runs buffered and the result
		// is chunked synthetically.
		stats := &middleware.CallStats{}
		loopCtx := middleware.WithStats(ctx, stats)

		final, records, err := g.runToolLoop(loopCtx, chains.call, normalized)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", name, err)
		}
		generation.records = records
		generation.stream = backend.NewSyntheticStream(final, g.chunkSize)
		return generation, nil
	}

	stream, err := chains.stream(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", name, err)
	}
	generation.Native = chains.native
	generation.stream = stream
	return generation, nil
}

// Chunks returns the ordered chunk sequence. Within one generation, chunks
// are never duplicated or re-ordered, and the done sentinel appears exactly
// once. Breaking out of the loop early aborts the underlying call
// best-effort and resolves the deferred values with what was seen so far.
func (gen *Generation) Chunks() iter.Seq2[backend.Chunk, error] {
	return func(yield func(backend.Chunk, error) bool) {
		var content strings.Builder
		var rawUsage map[string]any
		var streamErr error
		completed := false

		defer func() {
			gen.resolve(content.String(), rawUsage, completed, streamErr)
		}()

		for chunk, err := range gen.stream.Iter() {
			if err != nil {
				streamErr = err
				yield(backend.Chunk{}, err)
				return
			}

			switch chunk.Type {
			case backend.ChunkContent:
				content.WriteString(chunk.Content)
			case backend.ChunkUsage:
				rawUsage = chunk.RawUsage
			case backend.ChunkDone:
				completed = true
			}

			if !yield(chunk, nil) {
				return
			}
			if chunk.Type == backend.ChunkDone {
				return
			}
		}
	}
}

// resolve kicks off the deferred usage and evaluation computations exactly
// once, on their own goroutines.
func (gen *Generation) resolve(content string, rawUsage map[string]any, completed bool, streamErr error) {
	gen.resolveOnce.Do(func() {
		g := gen.gateway
		ctx := context.Background()

		go func() {
			gen.usage = g.collector.Derive(ctx, gen.Backend, gen.Model, gen.ID, rawUsage)
			if !completed {
				// Abandoned or failed streams never have trustworthy
				// usage, even if a usage chunk slipped through.
				gen.usage.Incomplete = true
			}
			close(gen.usageDone)
			g.collector.Record(ctx, gen.usage)
		}()

		go func() {
			defer close(gen.evalDone)
			if g.evaluator == nil || !completed || streamErr != nil {
				return
			}
			verdict, err := g.evaluator.Evaluate(ctx, gen.prompt, content)
			if err != nil {
				g.obs.Warn(ctx, "evaluation failed", observability.Error(err))
				return
			}
			gen.verdict = verdict
		}()
	})
}

// Usage blocks until the usage record resolves or ctx is done. It becomes
// available shortly after the chunk sequence finishes, independent of
// evaluation.
func (gen *Generation) Usage(ctx context.Context) (analytics.UsageRecord, error) {
	select {
	case <-ctx.Done():
		return analytics.UsageRecord{}, ctx.Err()
	case <-gen.usageDone:
		return gen.usage, nil
	}
}

// Evaluation blocks until the evaluation resolves or ctx is done. The
// verdict is nil when no evaluator is configured, the stream did not
// complete, or the evaluation failed.
func (gen *Generation) Evaluation(ctx context.Context) (*evaluation.Verdict, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-gen.evalDone:
		return gen.verdict, nil
	}
}

// ToolCalls returns the audit records of the tool invocations performed
// before streaming began. Populated only on the buffered tool path.
func (gen *Generation) ToolCalls() []tool.CallRecord {
	return gen.records
}

// Collect drains the chunk sequence and returns the assembled result, for
// callers that started a stream but want buffered semantics after all.
func (gen *Generation) Collect(ctx context.Context) (*Result, error) {
	start := time.Now()
	var content strings.Builder
	var finishReason string

	for chunk, err := range gen.Chunks() {
		if err != nil {
			return nil, err
		}
		switch chunk.Type {
		case backend.ChunkContent:
			content.WriteString(chunk.Content)
		case backend.ChunkDone:
			finishReason = chunk.FinishReason
		}
	}

	usage, err := gen.Usage(ctx)
	if err != nil {
		return nil, err
	}
	verdict, err := gen.Evaluation(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{
		ID:           gen.ID,
		Backend:      gen.Backend,
		Model:        gen.Model,
		Content:      content.String(),
		FinishReason: finishReason,
		Usage:        usage,
		ToolCalls:    gen.records,
		Evaluation:   verdict,
		Duration:     time.Since(start),
	}, nil
}
