// Package backend defines the contract between the gateway and vendor
// generation services. Every vendor is reached through an [Adapter]: one
// narrow interface covering a single blocking call, with optional native
// streaming advertised via [StreamAdapter] and detected by type assertion.
//
// The package also owns the canonical request/response shapes exchanged with
// adapters and the [Stream] type that presents one uniform chunk sequence
// regardless of whether the vendor streamed for real or the result was
// chunked synthetically.
//
// Adapters translate vendor wire formats to these shapes at exactly one
// point; the rest of the module never sees vendor-specific field names. The
// only exception is [Result.RawUsage], which deliberately preserves the
// vendor's usage field names so that the analytics layer can apply its
// explicit per-backend field map.
package backend
