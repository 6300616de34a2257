// Package evaluation scores completed generations with a second model
// call. The hook runs only after primary content is fully delivered and is
// strictly best-effort: an unreachable or misbehaving evaluator can never
// fail the generation it scores.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/aigw/core/gateway/middleware"
	"github.com/leofalp/aigw/core/parse"
	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/observability"
)

// ErrEvaluation wraps every evaluator failure. Callers treat it as
// informational; the gateway logs it and omits the verdict.
var ErrEvaluation = errors.New("aigw: evaluation failed")

// Verdict is the evaluator's judgment of one generation.
type Verdict struct {
	// Score grades the response in [0, 1].
	Score float64 `json:"score"`

	// Reasoning is the evaluator's short justification.
	Reasoning string `json:"reasoning,omitempty"`
}

const systemPrompt = `You are a strict quality evaluator. Given a user request and an assistant response, grade the response.
Reply with a single JSON object: {"score": <number between 0 and 1>, "reasoning": "<one short sentence>"}.
Do not add any text outside the JSON object.`

// Config assembles an Evaluator.
type Config struct {
	// Adapter is the backend performing the scoring call.
	Adapter backend.Adapter

	// Model selects the evaluator model on that backend.
	Model string

	// MaxOutputTokens bounds the verdict size. Default: 256.
	MaxOutputTokens int

	// Temperature for the scoring call. Evaluation wants determinism, so
	// the default is 0.
	Temperature float32

	// Timeout bounds one scoring attempt. Default: 15s.
	Timeout time.Duration

	// Breaker tunes the evaluator's circuit breaker. Zero values use the
	// middleware defaults. A persistently failing evaluator trips the
	// breaker and fails fast for a cooldown instead of costing two fresh
	// network attempts on every generation.
	Breaker middleware.BreakerConfig

	// Observability defaults to the noop provider.
	Observability observability.Provider
}

// Evaluator scores generations through its own small resilience chain: one
// retry on transient failure, a circuit breaker shared across evaluations,
// each attempt under its own deadline.
type Evaluator struct {
	call  middleware.CallFunc
	model string
	cfg   Config
	obs   observability.Provider
}

// New builds an Evaluator.
func New(config Config) (*Evaluator, error) {
	if config.Adapter == nil {
		return nil, errors.New("evaluation: adapter is required")
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = 256
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.Observability == nil {
		config.Observability = observability.Noop()
	}

	breaker := config.Breaker
	if breaker.Backend == "" {
		breaker.Backend = "evaluator"
	}
	if breaker.Observability == nil {
		breaker.Observability = config.Observability
	}

	// Evaluation is auxiliary; it gets a single retry rather than the
	// primary call's full budget, and the breaker keeps a dead evaluator
	// from being probed on every generation.
	chain := middleware.BuildCallChain(config.Adapter, []middleware.Config{
		middleware.NewRetryMiddleware(middleware.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: 200 * time.Millisecond,
		}),
		middleware.NewBreakerMiddleware(breaker),
		middleware.NewTimeoutMiddleware(middleware.TimeoutConfig{
			CallTimeout: config.Timeout,
		}),
	})

	return &Evaluator{
		call:  chain,
		model: config.Model,
		cfg:   config,
		obs:   config.Observability,
	}, nil
}

// Evaluate scores the response a generation produced for userPrompt. Every
// failure path returns an error wrapping [ErrEvaluation].
func (e *Evaluator) Evaluate(ctx context.Context, userPrompt, response string) (*Verdict, error) {
	evalCtx, span := e.obs.StartSpan(ctx, observability.SpanEvaluation,
		observability.String(observability.AttrModel, e.model),
	)
	defer span.End()

	request := backend.Request{
		Model:        e.model,
		SystemPrompt: systemPrompt,
		Messages: []backend.Message{
			{Role: backend.RoleUser, Content: fmt.Sprintf("Request:\n%s\n\nResponse:\n%s", userPrompt, response)},
		},
		GenerationConfig: &backend.GenerationConfig{
			Temperature:     e.cfg.Temperature,
			MaxOutputTokens: e.cfg.MaxOutputTokens,
		},
	}

	result, err := e.call(evalCtx, request)
	if err != nil {
		span.SetStatus(observability.StatusError, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}

	verdict, err := parse.ParseAs[Verdict](result.Content)
	if err != nil {
		span.SetStatus(observability.StatusError, err.Error())
		return nil, fmt.Errorf("%w: unparseable verdict: %w", ErrEvaluation, err)
	}
	if verdict.Score < 0 || verdict.Score > 1 {
		span.SetStatus(observability.StatusError, "score out of range")
		return nil, fmt.Errorf("%w: score %v outside [0,1]", ErrEvaluation, verdict.Score)
	}

	span.SetStatus(observability.StatusOK, "")
	span.SetAttributes(observability.Float64("evaluation.score", verdict.Score))
	return &verdict, nil
}
