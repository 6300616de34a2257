package parse

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseAs parses content into the type T.
//
// Primitive targets (string, bool, integer, float) are converted directly
// with strconv; a string target returns the content unchanged. Complex
// targets (structs, maps, slices) are JSON-unmarshalled; when that fails the
// content is run through jsonrepair once and unmarshalling is retried, which
// recovers the usual model sloppiness (single quotes, unquoted keys,
// trailing commas, fenced blocks).
//
//	args, err := parse.ParseAs[SearchArgs](`{query: 'golang'}`)
func ParseAs[T any](content string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()

	switch reflect.TypeFor[T]().Kind() {
	case reflect.String:
		target.SetString(content)
		return result, nil

	case reflect.Bool:
		value, err := strconv.ParseBool(strings.TrimSpace(content))
		if err != nil {
			return result, fmt.Errorf("parse %q as bool: %w", content, err)
		}
		target.SetBool(value)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value, err := strconv.ParseInt(strings.TrimSpace(content), 10, 64)
		if err != nil {
			return result, fmt.Errorf("parse %q as int: %w", content, err)
		}
		target.SetInt(value)
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value, err := strconv.ParseUint(strings.TrimSpace(content), 10, 64)
		if err != nil {
			return result, fmt.Errorf("parse %q as uint: %w", content, err)
		}
		target.SetUint(value)
		return result, nil

	case reflect.Float32, reflect.Float64:
		value, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
		if err != nil {
			return result, fmt.Errorf("parse %q as float: %w", content, err)
		}
		target.SetFloat(value)
		return result, nil

	default:
		return parseJSON[T](content)
	}
}

func parseJSON[T any](content string) (T, error) {
	var result T

	firstErr := json.Unmarshal([]byte(content), &result)
	if firstErr == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("unmarshal as %T failed (%v) and repair failed: %w", result, firstErr, repairErr)
	}

	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("unmarshal repaired JSON as %T: %w (original: %s)", result, err, content)
	}
	return result, nil
}
