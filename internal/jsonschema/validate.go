package jsonschema

import (
	"fmt"
	"math"
)

// Validate checks a decoded JSON value against the schema. It enforces the
// constraints a tool orchestrator needs before handing arguments to an
// executor: required object properties present, value kinds matching the
// declared type, enum membership, and recursive checks on nested objects
// and arrays. Undeclared properties are allowed unless
// AdditionalProperties is the literal false.
//
// The value is expected to come from encoding/json, so numbers are float64
// and objects are map[string]any.
func (s *Schema) Validate(value any) error {
	return s.validate(value, "$")
}

func (s *Schema) validate(value any, path string) error {
	if s == nil {
		return nil
	}

	if value == nil {
		// Absent optional values are checked by the parent's required
		// list; a literal null passes any non-required slot.
		return nil
	}

	if len(s.Enum) > 0 {
		if err := s.validateEnum(value, path); err != nil {
			return err
		}
	}

	switch s.Type {
	case "object":
		object, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, value)
		}
		return s.validateObject(object, path)

	case "array":
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %T", path, value)
		}
		for i, item := range items {
			if err := s.Items.validate(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string, got %T", path, value)
		}
		return nil

	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, value)
		}
		return nil

	case "number":
		if !isJSONNumber(value) {
			return fmt.Errorf("%s: expected number, got %T", path, value)
		}
		return nil

	case "integer":
		number, ok := value.(float64)
		if !ok {
			if isJSONNumber(value) {
				return nil
			}
			return fmt.Errorf("%s: expected integer, got %T", path, value)
		}
		if number != math.Trunc(number) {
			return fmt.Errorf("%s: expected integer, got %v", path, number)
		}
		return nil

	default:
		// Untyped schema accepts anything.
		return nil
	}
}

func (s *Schema) validateObject(object map[string]any, path string) error {
	for _, name := range s.Required {
		if _, present := object[name]; !present {
			return fmt.Errorf("%s: missing required property %q", path, name)
		}
	}

	for name, propertyValue := range object {
		propertySchema, declared := s.Properties[name]
		if !declared {
			if additional, ok := s.AdditionalProperties.(bool); ok && !additional {
				return fmt.Errorf("%s: unexpected property %q", path, name)
			}
			if additionalSchema, ok := s.AdditionalProperties.(*Schema); ok {
				if err := additionalSchema.validate(propertyValue, path+"."+name); err != nil {
					return err
				}
			}
			continue
		}
		if err := propertySchema.validate(propertyValue, path+"."+name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validateEnum(value any, path string) error {
	for _, allowed := range s.Enum {
		if enumEqual(allowed, value) {
			return nil
		}
	}
	return fmt.Errorf("%s: value %v not in enum %v", path, value, s.Enum)
}

// enumEqual compares an enum constant (string, int64, float64, bool) with a
// JSON-decoded value.
func enumEqual(allowed, value any) bool {
	switch a := allowed.(type) {
	case int64:
		if f, ok := value.(float64); ok {
			return float64(a) == f
		}
	case float64:
		if f, ok := value.(float64); ok {
			return a == f
		}
	}
	return allowed == value
}

func isJSONNumber(value any) bool {
	switch value.(type) {
	case float64, int, int64:
		return true
	default:
		return false
	}
}
