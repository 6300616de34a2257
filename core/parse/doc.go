// Package parse converts model-produced text into typed Go values. Backends
// emit tool arguments and evaluation verdicts as JSON of varying quality —
// single quotes, trailing commas, unquoted keys — so complex types get one
// automatic repair pass (jsonrepair) before parsing is declared failed.
//
// The entry point is the generic [ParseAs], which handles primitives
// (string, bool, int, uint, float) and complex types (structs, maps,
// slices) through one uniform API.
package parse
