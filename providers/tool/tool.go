package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leofalp/aigw/core/cost"
	"github.com/leofalp/aigw/core/parse"
	"github.com/leofalp/aigw/internal/jsonschema"
	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/observability"
)

// Tool binds a name and description to a strongly-typed Go function. JSON
// schemas for the input type I and output type O are derived via reflection
// at construction time; incoming arguments are validated against the input
// schema before the function runs.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Output      *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)

	// Metrics carries optional cost and performance metadata advertised
	// alongside the tool.
	Metrics *cost.ToolMetrics

	// Mandatory marks a tool whose failure aborts the generation instead
	// of being reported back to the model.
	Mandatory bool
}

// GenericTool abstracts over the concrete type parameters of [Tool] so
// tools can be stored and dispatched without knowing their input and output
// types.
type GenericTool interface {
	// Describe returns the metadata used to advertise this tool to a
	// backend.
	Describe() backend.ToolDescription

	// Call validates and parses the JSON-encoded arguments, executes the
	// tool, and returns the JSON-encoded output.
	Call(ctx context.Context, argsJSON string) (string, error)

	// IsMandatory reports whether a failure of this tool must abort the
	// generation.
	IsMandatory() bool

	// GetMetrics returns the cost metadata configured for this tool, or
	// nil.
	GetMetrics() *cost.ToolMetrics
}

type toolOptions struct {
	description string
	metrics     *cost.ToolMetrics
	mandatory   bool
}

// Option configures a tool created via [New].
type Option func(*toolOptions)

// WithDescription sets the human-readable description surfaced to the
// model.
func WithDescription(description string) Option {
	return func(o *toolOptions) { o.description = description }
}

// WithMetrics attaches cost and performance metadata.
func WithMetrics(metrics cost.ToolMetrics) Option {
	return func(o *toolOptions) { o.metrics = &metrics }
}

// WithMandatory marks the tool as mandatory: if it fails, the whole
// generation fails with an [ExecutionError] instead of the error being
// relayed to the model.
func WithMandatory() Option {
	return func(o *toolOptions) { o.mandatory = true }
}

// New constructs a [Tool] from a typed function.
//
//	adder := tool.New("add", addFunc,
//	    tool.WithDescription("Adds two integers."),
//	)
func New[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...Option) *Tool[I, O] {
	opts := &toolOptions{}
	for _, option := range options {
		option(opts)
	}

	return &Tool[I, O]{
		Name:        name,
		Description: opts.description,
		Parameters:  jsonschema.GenerateJSONSchema[I](),
		Output:      jsonschema.GenerateJSONSchema[O](),
		Function:    function,
		Metrics:     opts.metrics,
		Mandatory:   opts.mandatory,
	}
}

// Describe returns the [backend.ToolDescription] advertising this tool.
func (t *Tool[I, O]) Describe() backend.ToolDescription {
	return backend.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call validates argsJSON against the parameter schema, parses it into the
// input type, runs the function, and returns the marshalled output. Span
// events are emitted when a span is present in ctx.
func (t *Tool[I, O]) Call(ctx context.Context, argsJSON string) (string, error) {
	// Some backends send no argument payload for zero-argument tools.
	if strings.TrimSpace(argsJSON) == "" {
		argsJSON = "{}"
	}

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventToolExecutionStart,
			observability.String(observability.AttrToolName, t.Name),
			observability.String(observability.AttrToolInput, observability.TruncateString(argsJSON, 0)),
		)
		defer span.AddEvent(observability.EventToolExecutionEnd)
	}

	start := time.Now()

	// Parse the model-supplied arguments leniently, then hold them to the
	// declared schema before anything executes.
	rawArgs, err := parse.ParseAs[map[string]any](argsJSON)
	if err != nil {
		return "", t.fail(span, fmt.Errorf("parse arguments: %w", err))
	}
	if t.Parameters != nil {
		if err := t.Parameters.Validate(rawArgs); err != nil {
			return "", t.fail(span, fmt.Errorf("invalid arguments: %w", err))
		}
	}

	input, err := parse.ParseAs[I](argsJSON)
	if err != nil {
		return "", t.fail(span, fmt.Errorf("parse arguments: %w", err))
	}

	output, err := t.Function(ctx, input)
	duration := time.Since(start)
	if err != nil {
		if span != nil {
			span.SetAttributes(observability.Duration(observability.AttrToolDuration, duration))
		}
		return "", t.fail(span, err)
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		return "", t.fail(span, fmt.Errorf("marshal output: %w", err))
	}

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrToolOutput, observability.TruncateString(string(encoded), 0)),
			observability.Duration(observability.AttrToolDuration, duration),
		)
	}
	return string(encoded), nil
}

func (t *Tool[I, O]) fail(span observability.Span, err error) error {
	if span != nil {
		span.RecordError(err)
		span.SetAttributes(observability.String(observability.AttrToolError, err.Error()))
	}
	return err
}

// IsMandatory reports whether this tool's failure aborts the generation.
func (t *Tool[I, O]) IsMandatory() bool {
	return t.Mandatory
}

// GetMetrics returns the configured cost metadata, or nil.
func (t *Tool[I, O]) GetMetrics() *cost.ToolMetrics {
	return t.Metrics
}
