package analytics

// FieldMap names the fields of one backend's raw usage block. The mapping
// is explicit per backend; nothing is guessed from the payload shape.
type FieldMap struct {
	// Input is the raw field holding request-side consumption,
	// e.g. "prompt_tokens" or "input_tokens".
	Input string

	// Output is the raw field holding response-side consumption,
	// e.g. "completion_tokens" or "output_tokens".
	Output string

	// Total optionally names a vendor-reported total, used only for
	// cross-checking against Input + Output.
	Total string

	// Cost optionally names a vendor-reported cost field.
	Cost string

	// Currency qualifies the Cost field, e.g. "USD".
	Currency string
}

// Common vendor field maps, usable as-is or as a starting point.
var (
	// OpenAIFieldMap matches the chat completions usage block.
	OpenAIFieldMap = FieldMap{
		Input:    "prompt_tokens",
		Output:   "completion_tokens",
		Total:    "total_tokens",
		Currency: "USD",
	}

	// AnthropicFieldMap matches the messages API usage block.
	AnthropicFieldMap = FieldMap{
		Input:    "input_tokens",
		Output:   "output_tokens",
		Currency: "USD",
	}

	// GeminiFieldMap matches the generateContent usageMetadata block.
	GeminiFieldMap = FieldMap{
		Input:    "promptTokenCount",
		Output:   "candidatesTokenCount",
		Total:    "totalTokenCount",
		Currency: "USD",
	}
)

// numeric coerces the dynamic values a decoded usage block may hold. JSON
// numbers arrive as float64; adapters that build blocks in code may use any
// integer type.
func numeric(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func numericFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
