package gateway

import (
	"context"
	"fmt"
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

// Request is the canonical caller-facing generation request. It is
// immutable once submitted.
type Request struct {
	// Backend selects the target backend by identifier. Empty or "auto"
	// resolves to the default backend, or to the single registered one.
	Backend string

	// Model is the model identifier passed through to the adapter.
	Model string

	// Prompt is the user input. Required.
	Prompt string

	// SystemPrompt optionally prepends a system instruction.
	SystemPrompt string

	// Temperature and MaxOutputTokens are the sampling parameters.
	Temperature     float32
	MaxOutputTokens int

	// EnableTools advertises the registered tools to the backend and
	// dispatches the calls it requests.
	EnableTools bool

	// Metadata is an opaque caller context map handed to the adapter.
	Metadata map[string]any
}

// Result is the canonical outcome of one buffered generation.
type Result struct {
	// ID is the unique generation identifier.
	ID string

	// Backend and Model identify what actually served the request.
	Backend string
	Model   string

	// Content is the produced text.
	Content string

	// FinishReason is the backend's stop reason, when reported.
	FinishReason string

	// Usage is the normalized consumption record. Always present; may be
	// marked incomplete.
	Usage analytics.UsageRecord

	// ToolCalls lists every tool invocation the generation performed.
	ToolCalls []tool.CallRecord

	// Evaluation is the optional quality verdict. Nil when no evaluator
	// is configured or the evaluation failed.
	Evaluation *evaluation.Verdict

	// Retries is how many extra attempts the resilience layer consumed.
	Retries int

	// Duration is the wall-clock time of the whole generation, tool
	// round-trips included.
	Duration time.Duration
}

// backendChains holds the lazily-built middleware chains for one backend.
type backendChains struct {
	call   middleware.CallFunc
	stream middleware.StreamFunc
	native bool
}

// Gateway aggregates AI-generation backends behind one request/response
// contract, adding resilience, streaming, tool dispatch, analytics, and
// optional evaluation. Construct it with [New]; a Gateway is safe for
// concurrent use.
type Gateway struct {
	backends       map[string]backend.Adapter
	stacks         map[string][]middleware.Config
	defaultBackend string
	resilience     middleware.StackConfig

	registry *tool.Registry
	runner   *tool.Runner

	collector *analytics.Collector
	evaluator *evaluation.Evaluator

	chunkSize         int
	maxToolIterations int
	obs               observability.Provider

	mu     sync.Mutex
	chains map[string]*backendChains
}

// New constructs a Gateway from functional options. At least one backend
// must be registered.
func New(options ...Option) (*Gateway, error) {
	cfg := &config{
		backends:  make(map[string]backend.Adapter),
		stacks:    make(map[string][]middleware.Config),
		fieldMaps: make(map[string]analytics.FieldMap),
	}
	for _, option := range options {
		option(cfg)
	}

	if len(cfg.backends) == 0 {
		return nil, fmt.Errorf("%w: at least one backend must be registered", backend.ErrConfiguration)
	}
	if cfg.defaultBackend != "" {
		if _, ok := cfg.backends[cfg.defaultBackend]; !ok {
			return nil, fmt.Errorf("%w: default backend %q is not registered", backend.ErrConfiguration, cfg.defaultBackend)
		}
	}
	for name := range cfg.stacks {
		if _, ok := cfg.backends[name]; !ok {
			return nil, fmt.Errorf("%w: middleware configured for unregistered backend %q", backend.ErrConfiguration, name)
		}
	}

	if cfg.obs == nil {
		cfg.obs = observability.Noop()
	}
	if cfg.chunkSize == 0 {
		cfg.chunkSize = 64
	}
	if cfg.maxToolIterations == 0 {
		cfg.maxToolIterations = 5
	}

	registry := tool.NewRegistry()
	if err := registry.Register(cfg.tools...); err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrConfiguration, err)
	}

	var runner *tool.Runner
	if registry.Size() > 0 {
		var err error
		runner, err = tool.NewRunner(tool.RunnerConfig{
			Registry:      registry,
			CallTimeout:   cfg.toolTimeout,
			Observability: cfg.obs,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", backend.ErrConfiguration, err)
		}
	}

	collector := cfg.collector
	if collector == nil {
		collector = analytics.NewCollector(analytics.CollectorConfig{
			FieldMaps:     cfg.fieldMaps,
			Pricing:       cfg.pricing,
			Sinks:         cfg.sinks,
			Observability: cfg.obs,
		})
	}

	return &Gateway{
		backends:          cfg.backends,
		stacks:            cfg.stacks,
		defaultBackend:    cfg.defaultBackend,
		resilience:        cfg.resilience,
		registry:          registry,
		runner:            runner,
		collector:         collector,
		evaluator:         cfg.evaluator,
		chunkSize:         cfg.chunkSize,
		maxToolIterations: cfg.maxToolIterations,
		obs:               cfg.obs,
		chains:            make(map[string]*backendChains),
	}, nil
}

// selectBackend resolves a requested backend identifier to a registered
// one. "auto" (or empty) picks the default backend, falling back to the
// single registered backend.
func (g *Gateway) selectBackend(requested string) (string, error) {
	if requested == "" || requested == "auto" {
		if g.defaultBackend != "" {
			return g.defaultBackend, nil
		}
		if len(g.backends) == 1 {
			for name := range g.backends {
				return name, nil
			}
		}
		return "", fmt.Errorf("%w: %d backends registered and no default set, cannot resolve %q",
			backend.ErrConfiguration, len(g.backends), requested)
	}

	if _, ok := g.backends[requested]; !ok {
		return "", fmt.Errorf("%w: unknown backend %q", backend.ErrConfiguration, requested)
	}
	return requested, nil
}

// chainsFor returns the middleware chains for one backend, building and
// caching them on first use. Per-backend state (breaker, rate limiter) is
// created here and never shared across identifiers.
func (g *Gateway) chainsFor(name string) *backendChains {
	g.mu.Lock()
	defer g.mu.Unlock()

	if chains, ok := g.chains[name]; ok {
		return chains
	}

	adapter := g.backends[name]
	stack, ok := g.stacks[name]
	if !ok {
		stackConfig := g.resilience
		stackConfig.Backend = name
		if stackConfig.Observability == nil {
			stackConfig.Observability = g.obs
		}
		stack = middleware.DefaultStack(stackConfig)
	}

	chains := &backendChains{
		call:   middleware.BuildCallChain(adapter, stack),
		stream: middleware.BuildStreamChain(adapter, g.chunkSize, stack),
		native: middleware.Streams(adapter),
	}
	g.chains[name] = chains
	return chains
}

// normalize converts the caller request into the canonical adapter shape.
func (g *Gateway) normalize(request Request) (backend.Request, error) {
	if request.Prompt == "" {
		return backend.Request{}, fmt.Errorf("%w: prompt is required", backend.ErrConfiguration)
	}

	normalized := backend.Request{
		Model:        request.Model,
		SystemPrompt: request.SystemPrompt,
		Messages: []backend.Message{
			{Role: backend.RoleUser, Content: request.Prompt},
		},
		Metadata: request.Metadata,
	}

	if request.Temperature != 0 || request.MaxOutputTokens != 0 {
		normalized.GenerationConfig = &backend.GenerationConfig{
			Temperature:     request.Temperature,
			MaxOutputTokens: request.MaxOutputTokens,
		}
	}

	if request.EnableTools && g.registry.Size() > 0 {
		normalized.Tools = g.registry.Descriptions()
	}
	return normalized, nil
}

// Generate performs one buffered generation: resilience-wrapped backend
// calls, the tool loop, analytics, and optional evaluation. The returned
// error is the root cause wrapped in the taxonomy's typed sentinels.
func (g *Gateway) Generate(ctx context.Context, request Request) (*Result, error) {
	start := time.Now()

	name, err := g.selectBackend(request.Backend)
	if err != nil {
		return nil, err
	}
	normalized, err := g.normalize(request)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	genCtx, span := g.obs.StartSpan(ctx, observability.SpanGenerate,
		observability.String(observability.AttrGenerationID, id),
		observability.String(observability.AttrBackend, name),
		observability.String(observability.AttrModel, request.Model),
	)
	defer span.End()

	stats := &middleware.CallStats{}
	genCtx = middleware.WithStats(genCtx, stats)

	final, records, err := g.runToolLoop(genCtx, g.chainsFor(name).call, normalized)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, err.Error())
		return nil, fmt.Errorf("backend %q: %w", name, err)
	}

	model := final.Model
	if model == "" {
		model = request.Model
	}

	usage := g.collector.Derive(genCtx, name, model, id, final.RawUsage)
	go g.collector.Record(context.WithoutCancel(genCtx), usage)

	result := &Result{
		ID:           id,
		Backend:      name,
		Model:        model,
		Content:      final.Content,
		FinishReason: final.FinishReason,
		Usage:        usage,
		ToolCalls:    records,
		Retries:      stats.Retries,
	}

	if g.evaluator != nil {
		verdict, evalErr := g.evaluator.Evaluate(genCtx, request.Prompt, final.Content)
		if evalErr != nil {
			// Evaluation is best-effort; the verdict is simply omitted.
			g.obs.Warn(genCtx, "evaluation failed", observability.Error(evalErr))
		} else {
			result.Evaluation = verdict
		}
	}

	// result.Retries was captured before the evaluation call, which runs
	// its own retry middleware against the same context-carried stats.
	span.SetStatus(observability.StatusOK, "")
	span.SetAttributes(
		observability.Int(observability.AttrRetries, result.Retries),
		observability.Int64(observability.AttrUsageTotal, usage.TotalUnits),
	)

	result.Duration = time.Since(start)
	return result, nil
}

// runToolLoop drives the call/dispatch cycle until the backend produces a
// terminal result or the iteration cap is reached.
func (g *Gateway) runToolLoop(ctx context.Context, call middleware.CallFunc, request backend.Request) (*backend.Result, []tool.CallRecord, error) {
	var records []tool.CallRecord

	for iteration := 0; ; iteration++ {
		result, err := call(ctx, request)
		if err != nil {
			return nil, records, err
		}

		if result.IsStop() || g.runner == nil {
			return result, records, nil
		}
		if iteration >= g.maxToolIterations {
			g.obs.Warn(ctx, "tool iteration cap reached",
				observability.Int("tool.iterations", iteration),
			)
			return result, records, nil
		}

		messages, callRecords, err := g.runner.ExecuteAll(ctx, result.ToolCalls)
		records = append(records, callRecords...)
		if err != nil {
			return nil, records, err
		}

		request.Messages = append(request.Messages, backend.Message{
			Role:      backend.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})
		request.Messages = append(request.Messages, messages...)
	}
}
