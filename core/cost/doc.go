// Package cost defines the pricing structures used to estimate the monetary
// cost of model inference and tool execution.
//
// [ModelCost] holds per-million-token USD rates for one model; [Table] maps
// model identifiers to their rates and is consulted by the analytics
// collector when it normalizes a usage record. [ToolMetrics] annotates
// builtin tools with per-call cost and performance metadata.
package cost
