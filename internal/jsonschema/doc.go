// Package jsonschema generates JSON Schema structures from Go types via
// reflection and validates decoded argument maps against them.
//
// [GenerateJSONSchema] derives a [Schema] from any Go type T; struct fields
// are customised through `jsonschema:"description=...,enum=...,required"`
// tags. [Schema.Validate] checks a decoded JSON object for missing required
// properties and type mismatches before a tool executor is invoked.
package jsonschema
