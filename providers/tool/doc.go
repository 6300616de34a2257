// Package tool defines typed tools, the registry that holds them, and the
// runner that executes the calls a backend requests mid-generation.
//
// A tool wraps a typed Go function together with its name, description, and
// auto-derived JSON schemas. Arguments supplied by the model are validated
// against the parameter schema before the function runs. Create tools with
// [New]; configure them with [WithDescription], [WithMetrics], and
// [WithMandatory].
//
// The [Registry] maps names to tools and rejects duplicates: two tools can
// never share a name. The [Runner] executes requested calls under their own
// timeout, produces a [CallRecord] for every invocation, relays
// non-mandatory failures back to the model, and aborts the generation with
// an [ExecutionError] when a mandatory tool fails.
//
// [Pipeline] runs a fixed tool sequence outside a generation with an
// explicit failure mode.
//
// The calculator and webfetch subpackages provide ready-made builtins.
package tool
