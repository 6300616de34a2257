package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema represents a JSON Schema fragment used to describe tool parameters
// and structured outputs.
type Schema struct {
	// Type specifies the data type ("object", "array", "string", "number",
	// "integer", "boolean").
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of an object, each with its own schema.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Items is the element schema for array types.
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties controls whether undeclared object properties
	// are allowed.
	AdditionalProperties any `json:"additionalProperties,omitempty"`
	// Enum lists the allowed values for the field.
	Enum []any `json:"enum,omitempty"`
}

// GenerateJSONSchema derives a Schema from the Go type T. Struct fields use
// their json tag as the property name (fields tagged "-" are skipped) and
// may carry a jsonschema tag:
//
//	Field string `json:"field" jsonschema:"description=What it means,required"`
//	Op    string `json:"op" jsonschema:"enum=add,enum=sub"`
//
// Recursive types terminate with an untyped object schema at the point of
// recursion.
func GenerateJSONSchema[T any]() *Schema {
	return generate(reflect.TypeFor[T](), map[reflect.Type]bool{})
}

func generate(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	switch t.Kind() {
	case reflect.Pointer:
		return generate(t.Elem(), visiting)

	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: generate(t.Elem(), visiting)}

	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: generate(t.Elem(), visiting)}

	case reflect.Struct:
		if visiting[t] {
			// Recursion point; an open object schema breaks the cycle.
			return &Schema{Type: "object"}
		}
		visiting[t] = true
		defer delete(visiting, t)
		return generateStruct(t, visiting)

	default:
		return &Schema{Type: "object"}
	}
}

func generateStruct(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Tag.Get("json") == "" {
			// Embedded struct: promote its properties.
			embedded := generateStruct(field.Type, visiting)
			for name, prop := range embedded.Properties {
				schema.Properties[name] = prop
			}
			schema.Required = append(schema.Required, embedded.Required...)
			continue
		}

		name := fieldName(field)
		if name == "" {
			continue
		}

		fieldSchema := generate(field.Type, visiting)
		required, err := applyTag(field, fieldSchema)
		if err != nil {
			// A malformed tag is a programming error in the tool type;
			// surface it in the description instead of panicking.
			fieldSchema.Description = fmt.Sprintf("invalid jsonschema tag: %v", err)
		}
		if required {
			schema.Required = append(schema.Required, name)
		}

		schema.Properties[name] = fieldSchema
	}

	return schema
}

// fieldName resolves the property name from the json tag; an empty string
// means the field is excluded.
func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if tag == "" {
		return field.Name
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return field.Name
	}
	return name
}

// applyTag parses the jsonschema struct tag onto schema and reports whether
// the field was marked required. Supported items: description=..., enum=...
// (repeatable, converted to the field's kind), required.
func applyTag(field reflect.StructField, schema *Schema) (bool, error) {
	tag := field.Tag.Get("jsonschema")
	if tag == "" {
		return false, nil
	}

	required := false
	for _, item := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		switch {
		case key == "required" && !hasValue:
			required = true
		case key == "description" && hasValue:
			schema.Description = value
		case key == "enum" && hasValue:
			enumValue, err := convertEnum(field.Type, value)
			if err != nil {
				return required, err
			}
			schema.Enum = append(schema.Enum, enumValue)
		}
	}
	return required, nil
}

func convertEnum(t reflect.Type, value string) (any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not an integer: %w", value, err)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a number: %w", value, err)
		}
		return v, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a bool: %w", value, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for field type %v", t)
	}
}

// JsonString renders the schema as JSON, optionally indented.
func (s *Schema) JsonString(indent ...bool) (string, error) {
	var (
		out []byte
		err error
	)
	if len(indent) > 0 && indent[0] {
		out, err = json.MarshalIndent(s, "", "  ")
	} else {
		out, err = json.Marshal(s)
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// String implements fmt.Stringer; errors degrade to an empty string.
func (s *Schema) String() string {
	out, err := s.JsonString()
	if err != nil {
		return ""
	}
	return out
}
