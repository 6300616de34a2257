package jsonschema

import (
	"testing"
)

type searchArgs struct {
	Query      string   `json:"query" jsonschema:"description=Search query,required"`
	MaxResults int      `json:"max_results"`
	Filters    []string `json:"filters"`
	Op         string   `json:"op" jsonschema:"enum=and,enum=or"`
	ignored    string   //nolint:unused // verifies unexported fields are skipped
	Skipped    string   `json:"-"`
}

// TestGenerateJSONSchema_Struct verifies field mapping, required tags, enums,
// and exclusion rules.
func TestGenerateJSONSchema_Struct(t *testing.T) {
	schema := GenerateJSONSchema[searchArgs]()

	if schema.Type != "object" {
		t.Fatalf("expected object schema, got %q", schema.Type)
	}

	if schema.Properties["query"] == nil || schema.Properties["query"].Type != "string" {
		t.Errorf("query property wrong: %+v", schema.Properties["query"])
	}
	if schema.Properties["query"].Description != "Search query" {
		t.Errorf("description tag not applied: %q", schema.Properties["query"].Description)
	}

	if schema.Properties["max_results"] == nil || schema.Properties["max_results"].Type != "integer" {
		t.Errorf("max_results should be integer")
	}

	if schema.Properties["filters"] == nil || schema.Properties["filters"].Type != "array" {
		t.Errorf("filters should be array")
	} else if schema.Properties["filters"].Items.Type != "string" {
		t.Errorf("filters items should be string")
	}

	if got := len(schema.Properties["op"].Enum); got != 2 {
		t.Errorf("expected 2 enum values, got %d", got)
	}

	if len(schema.Required) != 1 || schema.Required[0] != "query" {
		t.Errorf("expected required=[query], got %v", schema.Required)
	}

	if _, present := schema.Properties["Skipped"]; present {
		t.Error("json:\"-\" field must be excluded")
	}
	if _, present := schema.Properties["ignored"]; present {
		t.Error("unexported field must be excluded")
	}
}

type node struct {
	Name     string  `json:"name"`
	Children []*node `json:"children"`
}

// TestGenerateJSONSchema_Recursive verifies recursive types terminate.
func TestGenerateJSONSchema_Recursive(t *testing.T) {
	schema := GenerateJSONSchema[node]()

	children := schema.Properties["children"]
	if children == nil || children.Type != "array" {
		t.Fatalf("children should be array, got %+v", children)
	}
	// The recursion point degrades to an open object schema.
	if children.Items == nil || children.Items.Type != "object" {
		t.Errorf("recursive item should be object, got %+v", children.Items)
	}
}

// TestValidate covers required properties, type mismatches, enums, and
// nested structures.
func TestValidate(t *testing.T) {
	schema := GenerateJSONSchema[searchArgs]()

	cases := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"valid", map[string]any{"query": "golang", "max_results": 3.0}, false},
		{"missing required", map[string]any{"max_results": 3.0}, true},
		{"wrong type", map[string]any{"query": 42.0}, true},
		{"non-integer", map[string]any{"query": "x", "max_results": 3.5}, true},
		{"bad enum", map[string]any{"query": "x", "op": "xor"}, true},
		{"good enum", map[string]any{"query": "x", "op": "and"}, false},
		{"bad array item", map[string]any{"query": "x", "filters": []any{"ok", 1.0}}, true},
		{"not an object", "just a string", true},
		{"extra property allowed", map[string]any{"query": "x", "extra": true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate(tc.value)
			if tc.wantErr && err == nil {
				t.Errorf("expected error for %v", tc.value)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestValidate_AdditionalPropertiesFalse verifies strict object validation.
func TestValidate_AdditionalPropertiesFalse(t *testing.T) {
	schema := &Schema{
		Type:                 "object",
		Properties:           map[string]*Schema{"a": {Type: "string"}},
		AdditionalProperties: false,
	}

	if err := schema.Validate(map[string]any{"a": "ok"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := schema.Validate(map[string]any{"a": "ok", "b": 1.0}); err == nil {
		t.Error("expected rejection of undeclared property")
	}
}
