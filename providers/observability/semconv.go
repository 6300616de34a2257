package observability

// Semantic conventions: standard attribute keys, span names, event names,
// and metric names recorded across the gateway. Use these constants instead
// of ad-hoc strings so telemetry stays queryable.

// --- Backend Attributes ---

const (
	// AttrBackend is the backend identifier the call was routed to.
	AttrBackend = "backend.name"

	// AttrModel is the model identifier actually used.
	AttrModel = "backend.model"

	// AttrFinishReason is the reason the generation finished.
	AttrFinishReason = "backend.finish_reason"

	// AttrAttempt is the 1-based attempt number of a resilience retry.
	AttrAttempt = "backend.attempt"

	// AttrRetries is the number of retries a call consumed.
	AttrRetries = "backend.retries"

	// AttrStreamMode records "native" or "synthetic" chunk delivery.
	AttrStreamMode = "backend.stream_mode"

	// AttrCircuitState is the breaker state at decision time.
	AttrCircuitState = "backend.circuit_state"
)

// --- Usage Attributes ---

const (
	AttrUsageInput  = "usage.input_units"
	AttrUsageOutput = "usage.output_units"
	AttrUsageTotal  = "usage.total_units"
	AttrUsageCost   = "usage.estimated_cost"
)

// --- Tool Attributes ---

const (
	AttrToolName     = "tool.name"
	AttrToolDigest   = "tool.args_digest"
	AttrToolInput    = "tool.input"
	AttrToolOutput   = "tool.output"
	AttrToolDuration = "tool.duration"
	AttrToolError    = "tool.error"
)

// --- General Attributes ---

const (
	AttrError        = "error"
	AttrErrorType    = "error.type"
	AttrDuration     = "duration"
	AttrGenerationID = "generation.id"
)

// --- Span Names ---

const (
	// SpanGenerate covers one full gateway generation, tool loop included.
	SpanGenerate = "gateway.generate"

	// SpanBackendCall covers one resilience-wrapped backend call.
	SpanBackendCall = "backend.call"

	// SpanToolExecution covers one tool invocation.
	SpanToolExecution = "tool.execution"

	// SpanEvaluation covers the optional scoring call.
	SpanEvaluation = "gateway.evaluation"
)

// --- Event Names ---

const (
	EventToolExecutionStart = "tool.execution.start"
	EventToolExecutionEnd   = "tool.execution.end"
	EventCircuitOpened      = "backend.circuit.opened"
	EventCircuitClosed      = "backend.circuit.closed"
	EventFirstChunk         = "backend.stream.first_chunk"
)

// --- Metric Names ---

const (
	MetricRequestCount    = "aigw.request.count"
	MetricRequestDuration = "aigw.request.duration"
	MetricUsageTotal      = "aigw.usage.total_units"
	MetricToolCalls       = "aigw.tool.calls"
)
