package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leofalp/aigw/core/analytics"
	"github.com/leofalp/aigw/core/evaluation"
	"github.com/leofalp/aigw/core/gateway/middleware"
	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/backend/stub"
	"github.com/leofalp/aigw/providers/observability"
	"github.com/leofalp/aigw/providers/tool"
)

// fastResilience keeps retry backoffs out of test wall-clock time.
func fastResilience() Option {
	return WithResilience(middleware.StackConfig{
		Retry: middleware.RetryConfig{
			MaxAttempts:    4,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
		RateLimit: middleware.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	})
}

func usageBlock(input, output int) map[string]any {
	return map[string]any{
		"prompt_tokens":     float64(input),
		"completion_tokens": float64(output),
	}
}

/// TestGenerate verifies the buffered happy path: content, identifiers, and
// a usage record satisfying the sum invariant.
func TestGenerate(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{
			Content:      "hello",
			Model:        "stub-1",
			FinishReason: "stop",
			RawUsage:     usageBlock(10, 5),
		}},
	}}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	result, err := gw.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	if result.Content != "hello" {
		t.Errorf("content %q", result.Content)
	}
	if result.ID == "" {
		t.Error("missing generation ID")
	}
	if result.Backend != "stub" || result.Model != "stub-1" {
		t.Errorf("identifiers %q/%q", result.Backend, result.Model)
	}
	if result.Usage.Incomplete {
		t.Error("usage marked incomplete")
	}
	if result.Usage.TotalUnits != result.Usage.InputUnits+result.Usage.OutputUnits {
		t.Error("usage sum invariant violated")
	}
	if result.Usage.TotalUnits != 15 {
		t.Errorf("total units %d", result.Usage.TotalUnits)
	}
	if result.Retries != 0 {
		t.Errorf("clean call reported %d retries", result.Retries)
	}
}

// TestGenerateRetriesThenSucceeds verifies that three timeouts followed by
// a success complete under a four-attempt ceiling, report three retries,
// and leave the circuit closed.
func TestGenerateRetriesThenSucceeds(t *testing.T) {
	timeout := fmt.Errorf("%w: simulated", backend.ErrTimeout)
	adapter := &stub.Backend{Script: []stub.Step{
		{Err: timeout},
		{Err: timeout},
		{Err: timeout},
		{Result: &backend.Result{Content: "recovered", RawUsage: usageBlock(1, 1)}},
	}}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	result, err := gw.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("expected recovery on attempt 4, got %v", err)
	}
	if result.Retries != 3 {
		t.Errorf("retries %d, want 3", result.Retries)
	}
	if adapter.Calls() != 4 {
		t.Errorf("adapter saw %d calls, want 4", adapter.Calls())
	}

	// Circuit stayed closed: the next call flows straight through.
	if _, err := gw.Generate(context.Background(), Request{Prompt: "again"}); err != nil {
		t.Fatalf("circuit should be closed after recovery, got %v", err)
	}
}

// TestGenerateExhaustsRetries verifies the caller sees one typed error
// carrying the attempt count and the root cause.
func TestGenerateExhaustsRetries(t *testing.T) {
	transient := fmt.Errorf("%w: down", backend.ErrTransient)
	adapter := &stub.Backend{Script: []stub.Step{{Err: transient}}}

	gw, err := New(WithBackend("stub", adapter), fastResilience())
	if err != nil {
		t.Fatal(err)
	}

	_, err = gw.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, middleware.ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, backend.ErrTransient) {
		t.Errorf("root cause not reachable: %v", err)
	}
}

// TestBackendSelection covers explicit, auto, and unknown identifiers.
func TestBackendSelection(t *testing.T) {
	a := &stub.Backend{Script: []stub.Step{{Result: &backend.Result{Content: "from-a"}}}}
	b := &stub.Backend{Script: []stub.Step{{Result: &backend.Result{Content: "from-b"}}}}

	gw, err := New(
		WithBackend("a", a),
		WithBackend("b", b),
		WithDefaultBackend("b"),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	result, err := gw.Generate(context.Background(), Request{Prompt: "hi", Backend: "a"})
	if err != nil || result.Content != "from-a" {
		t.Fatalf("explicit selection: %v / %+v", err, result)
	}

	result, err = gw.Generate(context.Background(), Request{Prompt: "hi", Backend: "auto"})
	if err != nil || result.Content != "from-b" {
		t.Fatalf("auto selection: %v / %+v", err, result)
	}

	if _, err := gw.Generate(context.Background(), Request{Prompt: "hi", Backend: "ghost"}); !errors.Is(err, backend.ErrConfiguration) {
		t.Fatalf("unknown backend: %v", err)
	}
}

// TestAutoSelectionAmbiguous verifies that "auto" without a default and
// with several backends is a configuration error.
func TestAutoSelectionAmbiguous(t *testing.T) {
	gw, err := New(
		WithBackend("a", &stub.Backend{}),
		WithBackend("b", &stub.Backend{}),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := gw.Generate(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, backend.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

type echoArgs struct {
	Text string `json:"text" jsonschema:"required"`
}

func echoTool() *tool.Tool[echoArgs, string] {
	return tool.New("echo", func(ctx context.Context, input echoArgs) (string, error) {
		return strings.ToUpper(input.Text), nil
	})
}

func brokenTool(name string, options ...tool.Option) *tool.Tool[echoArgs, string] {
	return tool.New(name, func(ctx context.Context, input echoArgs) (string, error) {
		return "", errors.New("tool blew up")
	}, options...)
}

// TestGenerateToolLoop verifies the call/dispatch cycle: the backend
// requests a tool, its output is appended as a tool message, and the second
// round produces the final content.
func TestGenerateToolLoop(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{
			ToolCalls: []backend.ToolCall{
				{ID: "call-1", Name: "echo", Arguments: `{"text": "hi"}`},
			},
		}},
		{Result: &backend.Result{Content: "done", RawUsage: usageBlock(3, 2)}},
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

	result, err := gw.Generate(context.Background(), Request{Prompt: "hi", EnableTools: true})
	if err != nil {
		t.Fatal(err)
	}

	if result.Content != "done" {
		t.Errorf("content %q", result.Content)
	}
	if len(result.ToolCalls) != 1 || !result.ToolCalls[0].Success {
		t.Fatalf("tool records %+v", result.ToolCalls)
	}

	requests := adapter.Requests()
	if len(requests) != 2 {
		t.Fatalf("adapter saw %d requests", len(requests))
	}
	if len(requests[0].Tools) != 1 || requests[0].Tools[0].Name != "echo" {
		t.Errorf("first request did not advertise the tool: %+v", requests[0].Tools)
	}

	second := requests[1].Messages
	last := second[len(second)-1]
	if last.Role != backend.RoleTool || last.ToolCallID != "call-1" {
		t.Errorf("tool message not appended: %+v", last)
	}
	if !strings.Contains(last.Content, "HI") {
		t.Errorf("tool output missing from message: %q", last.Content)
	}
}

// TestGenerateToolFailureNotMandatory verifies that a failing optional
// tool leaves the generation successful with one failed record.
func TestGenerateToolFailureNotMandatory(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{
			ToolCalls: []backend.ToolCall{{ID: "c1", Name: "shaky", Arguments: `{"text": "x"}`}},
		}},
		{Result: &backend.Result{Content: "answered without the tool", RawUsage: usageBlock(2, 2)}},
	}}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		WithTools(brokenTool("shaky")),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	result, err := gw.Generate(context.Background(), Request{Prompt: "hi", EnableTools: true})
	if err != nil {
		t.Fatalf("optional tool failure aborted the generation: %v", err)
	}
	if result.Content == "" {
		t.Error("primary content lost")
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Success {
		t.Fatalf("expected one failed record, got %+v", result.ToolCalls)
	}
	if result.ToolCalls[0].Error == "" {
		t.Error("failed record missing the error")
	}
}

// TestGenerateMandatoryToolFailureAborts verifies escalation for tools
// marked mandatory.
func TestGenerateMandatoryToolFailureAborts(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{
			ToolCalls: []backend.ToolCall{{Name: "critical", Arguments: `{"text": "x"}`}},
		}},
	}}

	gw, err := New(
		WithBackend("stub", adapter),
		WithTools(brokenTool("critical", tool.WithMandatory())),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = gw.Generate(context.Background(), Request{Prompt: "hi", EnableTools: true})
	var execErr *tool.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
}

// TestGenerateEvaluationUnreachable verifies that a dead evaluator leaves
// content and usage intact with the evaluation field omitted.
func TestGenerateEvaluationUnreachable(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{Content: "fine", RawUsage: usageBlock(4, 4)}},
	}}

	deadEvaluator, err := evaluation.New(evaluation.Config{
		Adapter: &stub.Backend{Script: []stub.Step{
			{Err: fmt.Errorf("%w: unreachable", backend.ErrConfiguration)},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		WithEvaluator(deadEvaluator),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	result, err := gw.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("evaluation failure corrupted the generation: %v", err)
	}
	if result.Content != "fine" {
		t.Errorf("content %q", result.Content)
	}
	if result.Usage.Incomplete {
		t.Error("usage lost to evaluation failure")
	}
	if result.Evaluation != nil {
		t.Error("evaluation field present despite failure")
	}
}

// TestGenerateEvaluationVerdict verifies the happy evaluation path.
func TestGenerateEvaluationVerdict(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{Content: "good answer", RawUsage: usageBlock(4, 4)}},
	}}
	judge, err := evaluation.New(evaluation.Config{
		Adapter: &stub.Backend{Script: []stub.Step{
			{Result: &backend.Result{Content: `{"score": 0.8}`}},
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

	result, err := gw.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Evaluation == nil || result.Evaluation.Score != 0.8 {
		t.Errorf("evaluation %+v", result.Evaluation)
	}
}

// TestGenerateUsageShapeDeterministic verifies that replaying an identical
// request yields a usage record with the same fields populated.
func TestGenerateUsageShapeDeterministic(t *testing.T) {
	script := []stub.Step{
		{Result: &backend.Result{Content: "same", RawUsage: usageBlock(7, 3)}},
	}

	var records []analytics.UsageRecord
	for run := 0; run < 3; run++ {
		gw, err := New(
			WithBackend("stub", &stub.Backend{Script: script}),
			WithFieldMap("stub", analytics.OpenAIFieldMap),
			fastResilience(),
		)
		if err != nil {
			t.Fatal(err)
		}
		result, err := gw.Generate(context.Background(), Request{Prompt: "hi"})
		if err != nil {
			t.Fatal(err)
		}
		records = append(records, result.Usage)
	}

	for _, record := range records[1:] {
		if record.InputUnits != records[0].InputUnits ||
			record.OutputUnits != records[0].OutputUnits ||
			record.TotalUnits != records[0].TotalUnits ||
			record.Incomplete != records[0].Incomplete {
			t.Errorf("usage shape drifted: %+v vs %+v", record, records[0])
		}
	}
}

// TestGenerateRequiresPrompt verifies request validation.
func TestGenerateRequiresPrompt(t *testing.T) {
	gw, err := New(WithBackend("stub", &stub.Backend{}), fastResilience())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gw.Generate(context.Background(), Request{}); !errors.Is(err, backend.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

// TestNewRejectsBadConfig covers construction-time validation.
func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(); !errors.Is(err, backend.ErrConfiguration) {
		t.Errorf("no backends: %v", err)
	}

	if _, err := New(
		WithBackend("a", &stub.Backend{}),
		WithDefaultBackend("ghost"),
	); !errors.Is(err, backend.ErrConfiguration) {
		t.Errorf("unknown default: %v", err)
	}

	if _, err := New(
		WithBackend("a", &stub.Backend{}),
		WithTools(echoTool(), echoTool()),
	); !errors.Is(err, backend.ErrConfiguration) {
		t.Errorf("duplicate tools: %v", err)
	}
}

// spanRecorder captures span attributes keyed by span name so tests can
// assert on what the gateway reports.
type spanRecorder struct {
	observability.Provider

	mu    sync.Mutex
	spans map[string][]observability.Attribute
}

func newSpanRecorder() *spanRecorder {
	return &spanRecorder{
		Provider: observability.Noop(),
		spans:    make(map[string][]observability.Attribute),
	}
}

func (r *spanRecorder) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	return ctx, &recordedSpan{recorder: r, name: name, attrs: attrs}
}

// attr returns the last value recorded under key on the named span.
func (r *spanRecorder) attr(span, key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attrs := r.spans[span]
	for i := len(attrs) - 1; i >= 0; i-- {
		if attrs[i].Key == key {
			return attrs[i].Value, true
		}
	}
	return nil, false
}

type recordedSpan struct {
	recorder *spanRecorder
	name     string
	attrs    []observability.Attribute
}

func (s *recordedSpan) End() {
	s.recorder.mu.Lock()
	defer s.recorder.mu.Unlock()
	s.recorder.spans[s.name] = append(s.recorder.spans[s.name], s.attrs...)
}

func (s *recordedSpan) SetAttributes(attrs ...observability.Attribute) {
	s.recorder.mu.Lock()
	defer s.recorder.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *recordedSpan) SetStatus(observability.StatusCode, string)    {}
func (s *recordedSpan) RecordError(error)                             {}
func (s *recordedSpan) AddEvent(string, ...observability.Attribute)   {}

// TestGenerateSpanRetriesExcludeEvaluation verifies that the generation
// span reports the primary call's retry count even when the evaluator
// performs retries of its own under the same context.
func TestGenerateSpanRetriesExcludeEvaluation(t *testing.T) {
	adapter := &stub.Backend{Script: []stub.Step{
		{Result: &backend.Result{Content: "answer", FinishReason: "stop", RawUsage: usageBlock(1, 1)}},
	}}
	judge, err := evaluation.New(evaluation.Config{
		Adapter: &stub.Backend{Script: []stub.Step{
			{Err: fmt.Errorf("%w: blip", backend.ErrTransient)},
			{Result: &backend.Result{Content: `{"score": 0.8, "reasoning": "fine"}`}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	recorder := newSpanRecorder()
	gw, err := New(
		WithBackend("stub", adapter),
		WithFieldMap("stub", analytics.OpenAIFieldMap),
		WithEvaluator(judge),
		WithObservability(recorder),
		fastResilience(),
	)
	if err != nil {
		t.Fatal(err)
	}

	result, err := gw.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Retries != 0 {
		t.Errorf("primary retries %d, want 0", result.Retries)
	}
	if result.Evaluation == nil || result.Evaluation.Score != 0.8 {
		t.Fatalf("evaluation %+v", result.Evaluation)
	}

	value, ok := recorder.attr(observability.SpanGenerate, observability.AttrRetries)
	if !ok {
		t.Fatal("generate span has no retries attribute")
	}
	if retries, _ := value.(int); retries != 0 {
		t.Errorf("generate span reports %v retries; evaluator attempts leaked in", value)
	}
}
