// Package analytics turns raw per-vendor usage blocks into normalized
// usage records and persists them best-effort.
//
// Each backend reports consumption under its own field names. Rather than
// scanning payloads heuristically, the collector consults an explicit
// [FieldMap] registered per backend: the input field name, the output field
// name, and optionally a cost field. Unknown backends and missing fields
// produce a zeroed record marked [UsageRecord.Incomplete]; usage derivation
// never fails a generation.
//
// Records always satisfy InputUnits + OutputUnits == TotalUnits. When a
// vendor reports a total that disagrees with the sum, the sum wins and the
// discrepancy is logged.
//
// Optional [Sink] implementations receive every record asynchronously; a
// sink failure is logged and dropped. See the redisink subpackage for a
// Redis-backed sink.
package analytics
