package tool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/observability"
)

// ExecutionError is returned when a mandatory tool fails, or when a
// pipeline step fails under StopOnFailure. It identifies the tool and wraps
// the underlying cause.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// CallRecord is the audit entry kept for every tool invocation, success or
// failure. The argument digest lets operators correlate identical calls
// without retaining the raw arguments.
type CallRecord struct {
	// Tool is the invoked tool's name.
	Tool string `json:"tool"`

	// ArgsDigest is the hex SHA-256 of the raw argument JSON.
	ArgsDigest string `json:"args_digest"`

	// Success reports whether the tool returned without error.
	Success bool `json:"success"`

	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`

	// Output holds the tool's JSON output, truncated for storage. Empty
	// on failure.
	Output string `json:"output,omitempty"`

	// Error holds the failure message. Empty on success.
	Error string `json:"error,omitempty"`
}

// digestArgs hashes the raw argument JSON for the call record.
func digestArgs(argsJSON string) string {
	sum := sha256.Sum256([]byte(argsJSON))
	return hex.EncodeToString(sum[:])
}

// RunnerConfig assembles a Runner.
type RunnerConfig struct {
	Registry *Registry

	// CallTimeout bounds each tool execution independently of the
	// generation deadline. Default: 30s.
	CallTimeout time.Duration

	// Observability defaults to the noop provider.
	Observability observability.Provider
}

// Runner dispatches the tool calls a backend requests mid-generation. Every
// invocation produces a [CallRecord]; failures of non-mandatory tools are
// relayed back to the model as tool messages so the generation can recover,
// while mandatory failures abort with an [*ExecutionError].
type Runner struct {
	registry    *Registry
	callTimeout time.Duration
	obs         observability.Provider
}

// NewRunner builds a Runner over the given registry.
func NewRunner(config RunnerConfig) (*Runner, error) {
	if config.Registry == nil {
		return nil, errors.New("tool: runner requires a registry")
	}
	if config.CallTimeout == 0 {
		config.CallTimeout = 30 * time.Second
	}
	if config.Observability == nil {
		config.Observability = observability.Noop()
	}
	return &Runner{
		registry:    config.Registry,
		callTimeout: config.CallTimeout,
		obs:         config.Observability,
	}, nil
}

// Execute runs one requested tool call and returns the tool message to
// append to the conversation plus the audit record. The returned error is
// non-nil only when the failure must abort the generation.
func (r *Runner) Execute(ctx context.Context, call backend.ToolCall) (backend.Message, CallRecord, error) {
	record := CallRecord{
		Tool:       call.Name,
		ArgsDigest: digestArgs(call.Arguments),
	}

	callCtx, span := r.obs.StartSpan(ctx, observability.SpanToolExecution,
		observability.String(observability.AttrToolName, call.Name),
		observability.String(observability.AttrToolDigest, record.ArgsDigest),
	)
	defer span.End()

	output, err := r.run(callCtx, call, &record)
	if err != nil {
		span.SetStatus(observability.StatusError, err.Error())
		record.Error = err.Error()

		r.obs.Warn(ctx, "tool execution failed",
			observability.String(observability.AttrToolName, call.Name),
			observability.Error(err),
		)

		if tool, ok := r.registry.Get(call.Name); ok && tool.IsMandatory() {
			return backend.Message{}, record, &ExecutionError{Tool: call.Name, Err: err}
		}

		// Non-mandatory failures go back to the model, which may retry
		// with different arguments or answer without the tool.
		return toolMessage(call, fmt.Sprintf("error: %v", err)), record, nil
	}

	span.SetStatus(observability.StatusOK, "")
	record.Success = true
	record.Output = observability.TruncateString(output, 0)
	return toolMessage(call, output), record, nil
}

func (r *Runner) run(ctx context.Context, call backend.ToolCall, record *CallRecord) (string, error) {
	tool, ok := r.registry.Get(call.Name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	start := time.Now()
	output, err := tool.Call(callCtx, call.Arguments)
	record.Duration = time.Since(start)
	return output, err
}

// ExecuteAll runs every requested call in order and collects the resulting
// tool messages and records. It stops at the first aborting failure.
func (r *Runner) ExecuteAll(ctx context.Context, calls []backend.ToolCall) ([]backend.Message, []CallRecord, error) {
	messages := make([]backend.Message, 0, len(calls))
	records := make([]CallRecord, 0, len(calls))

	for _, call := range calls {
		message, record, err := r.Execute(ctx, call)
		records = append(records, record)
		if err != nil {
			return messages, records, err
		}
		messages = append(messages, message)
	}
	return messages, records, nil
}

func toolMessage(call backend.ToolCall, content string) backend.Message {
	return backend.Message{
		Role:       backend.RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// FailureMode selects how a pipeline reacts to a failing step. There is no
// default: a pipeline must state its mode explicitly.
type FailureMode int

const (
	failureModeUnset FailureMode = iota

	// StopOnFailure aborts the pipeline at the first failing step.
	StopOnFailure

	// ContinueOnFailure records the failure and runs the remaining steps.
	ContinueOnFailure
)

// Step is one pipeline entry: a tool name and its JSON-encoded arguments.
type Step struct {
	Tool string
	Args string
}

// Pipeline runs a fixed sequence of tool calls outside a generation, e.g.
// for pre-warming or scheduled enrichment.
type Pipeline struct {
	runner *Runner
	steps  []Step
	mode   FailureMode
}

// NewPipeline builds a sequential pipeline. The failure mode is required;
// an unset mode is a configuration error.
func NewPipeline(runner *Runner, steps []Step, mode FailureMode) (*Pipeline, error) {
	if runner == nil {
		return nil, errors.New("tool: pipeline requires a runner")
	}
	if mode != StopOnFailure && mode != ContinueOnFailure {
		return nil, errors.New("tool: pipeline failure mode must be StopOnFailure or ContinueOnFailure")
	}
	return &Pipeline{runner: runner, steps: steps, mode: mode}, nil
}

// Run executes the steps in order. Under StopOnFailure the first failing
// step aborts with an [*ExecutionError]; under ContinueOnFailure every step
// runs and failures are visible only in the records.
func (p *Pipeline) Run(ctx context.Context) ([]CallRecord, error) {
	records := make([]CallRecord, 0, len(p.steps))

	for _, step := range p.steps {
		call := backend.ToolCall{Name: step.Tool, Arguments: step.Args}
		_, record, err := p.runner.Execute(ctx, call)
		records = append(records, record)

		if err != nil {
			// Mandatory-tool failures abort regardless of mode.
			return records, err
		}
		if !record.Success && p.mode == StopOnFailure {
			return records, &ExecutionError{Tool: step.Tool, Err: errors.New(record.Error)}
		}
	}
	return records, nil
}
