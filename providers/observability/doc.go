// Package observability defines the tracing, metrics, and logging seams used
// throughout the gateway.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into one injectable dependency. Components never talk to a
// telemetry stack directly: the gateway injects a Provider ([slogobs.New]
// for a log/slog-backed one, [Noop] when telemetry is disabled) and
// propagates the active [Span] through context with [ContextWithSpan] so
// that tool executions and resilience middlewares annotate the span of the
// generation that triggered them.
//
// semconv.go holds the attribute-key, span-name, and metric-name constants;
// always record observations through them so field names stay consistent
// across components.
package observability
