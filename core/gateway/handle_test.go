package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/leofalp/aigw/core/analytics"
	"github.com/leofalp/aigw/core/evaluation"
	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/backend/stub"
)

// TestStreamSyntheticFallback verifies that a non-streaming backend still
// yields an ordered chunk sequence with exactly one done sentinel, and that
// usage resolves after consumption.
func TestStreamSyntheticFallback(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{
			Content:      "hello streaming world",
			FinishReason: "stop",
			RawUsage:     usageBlock(5, 5),
		}},
	}}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		WithChunkSize(4),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	generation, err := gw.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if generation.Native {
		t.Error("buffered backend reported native streaming")
	}

	var content string
	doneCount := 0
	chunkCount := 0
	for chunk, err := range generation.Chunks() {
		if err != nil {
			t.Fatal(err)
		}
		switch chunk.Type {
		case backend.ChunkContent:
			content += chunk.Content
			chunkCount++
		case backend.ChunkDone:
			doneCount++
		}
	}

	if content != "hello streaming world" {
		t.Errorf("reassembled %q", content)
	}
	if chunkCount < 2 {
		t.Errorf("content arrived in %d chunk(s), expected a split", chunkCount)
	}
	if doneCount != 1 {
		t.Errorf("done sentinel seen %d times", doneCount)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	usage, err := generation.Usage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if usage.Incomplete || usage.TotalUnits != 10 {
		t.Errorf("usage %+v", usage)
	}
	if usage.TotalUnits != usage.InputUnits+usage.OutputUnits {
		t.Error("usage sum invariant violated")
	}
}

// gatedStreamer yields one chunk immediately, then blocks until released.
// It proves chunks are observable before the full response exists.
type gatedStreamer struct {
	release chan struct{}
}

func (s *gatedStreamer) Generate(ctx context.Context, _ backend.Request) (*backend.Result, error) {
	return &backend.Result{Content: "first rest"}, nil
}

func (s *gatedStreamer) Stream(ctx context.Context, _ backend.Request) (*backend.Stream, error) {
	return backend.NewStream(func(yield func(backend.Chunk, error) bool) {
		if !yield(backend.Chunk{Type: backend.ChunkContent, Content: "first"}, nil) {
			return
		}
		select {
		case <-s.release:
		case <-ctx.Done():
			return
		}
		if !yield(backend.Chunk{Type: backend.ChunkContent, Content: " rest"}, nil) {
			return
		}
		yield(backend.Chunk{Type: backend.ChunkDone, FinishReason: "stop"}, nil)
	}), nil
}

// TestStreamNativeFirstChunkBeforeCompletion verifies the no-full-buffering
// property of native streaming: the first chunk arrives while the rest of
// the response is still unavailable.
func TestStreamNativeFirstChunkBeforeCompletion(t *testing.T) {
	adapter := &gatedStreamer{release: make(chan struct{})}

	gw, err := New(WithBackend("gated", adapter), fastResilience())
	if err != nil {
		t.Fatal(err)
	}

	generation, err := gw.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if !generation.Native {
		t.Fatal("streaming adapter not detected as native")
	}

	var first string
	released := false
	for chunk, err := range generation.Chunks() {
		if err != nil {
			t.Fatal(err)
		}
		if chunk.Type == backend.ChunkContent && first == "" {
			first = chunk.Content
			if released {
				t.Fatal("first chunk arrived only after the full response")
			}
			// The rest of the response becomes available only now.
			released = true
			close(adapter.release)
		}
	}

	if first != "first" {
		t.Errorf("first chunk %q", first)
	}
}

// TestStreamAbandonedMarksUsageIncomplete verifies that breaking out of
// the chunk loop early still resolves usage, marked incomplete.
func TestStreamAbandonedMarksUsageIncomplete(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{Content: "a very long response body", RawUsage: usageBlock(5, 5)}},
	}}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		WithChunkSize(4),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	generation, err := gw.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	for chunk, err := range generation.Chunks() {
		if err != nil {
			t.Fatal(err)
		}
		if chunk.Type == backend.ChunkContent {
			break // abandon after the first chunk
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	usage, err := generation.Usage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !usage.Incomplete {
		t.Error("abandoned stream produced a complete usage record")
	}
}

// TestStreamWithToolsBuffersInternally verifies that tool-enabled requests
// run the buffered loop and then chunk the final result synthetically.
func TestStreamWithToolsBuffersInternally(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{
			ToolCalls: []backend.ToolCall{{ID: "c1", Name: "echo", Arguments: `{"text": "hi"}`}},
		}},
		{Result: &backend.Result{Content: "final answer", FinishReason: "stop", RawUsage: usageBlock(2, 2)}},
	}}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		WithTools(echoTool()),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	generation, err := gw.Stream(context.Background(), Request{Prompt: "hi", EnableTools: true})
	if err != nil {
		t.Fatal(err)
	}
	if generation.Native {
		t.Error("tool-enabled stream claimed native delivery")
	}
	if len(generation.ToolCalls()) != 1 {
		t.Fatalf("tool records %+v", generation.ToolCalls())
	}

	var content string
	for chunk, err := range generation.Chunks() {
		if err != nil {
			t.Fatal(err)
		}
		if chunk.Type == backend.ChunkContent {
			content += chunk.Content
		}
	}
	if content != "final answer" {
		t.Errorf("content %q", content)
	}
}

// TestStreamDeferredEvaluation verifies that the evaluation promise
// resolves independently after the chunk sequence completes.
func TestStreamDeferredEvaluation(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{Content: "answer", FinishReason: "stop", RawUsage: usageBlock(1, 1)}},
	}}
	judge, err := evaluation.New(evaluation.Config{
		Adapter: &stub.Backend{Script: []stub.Step{
			{Result: &backend.Result{Content: `{"score": 0.7, "reasoning": "ok"}`}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		WithEvaluator(judge),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	generation, err := gw.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	for chunk, err := range generation.Chunks() {
		if err != nil {
			t.Fatal(err)
		}
		_ = chunk
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	verdict, err := generation.Evaluation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if verdict == nil || verdict.Score != 0.7 {
		t.Errorf("verdict %+v", verdict)
	}

	usage, err := generation.Usage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if usage.Incomplete {
		t.Error("usage incomplete after full consumption")
	}
}

// TestStreamCollect verifies the convenience drain path.
func TestStreamCollect(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{Content: "collected", FinishReason: "stop", RawUsage: usageBlock(2, 3)}},
	}}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	generation, err := gw.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	result, err := generation.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Content != "collected" || result.FinishReason != "stop" {
		t.Errorf("result %+v", result)
	}
	if result.Usage.TotalUnits != 5 {
		t.Errorf("usage %+v", result.Usage)
	}
}
