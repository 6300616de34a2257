package cost

import "fmt"

// ModelCost is the pricing structure for one language model, expressed in
// USD per million tokens.
type ModelCost struct {
	// InputCostPerMillion is the USD cost per 1 million input tokens.
	InputCostPerMillion float64 `json:"input_cost_per_million"`

	// OutputCostPerMillion is the USD cost per 1 million output tokens.
	OutputCostPerMillion float64 `json:"output_cost_per_million"`
}

// CalculateInputCost returns the cost of the given input token count.
func (mc ModelCost) CalculateInputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.InputCostPerMillion
}

// CalculateOutputCost returns the cost of the given output token count.
func (mc ModelCost) CalculateOutputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.OutputCostPerMillion
}

// CalculateTotalCost returns the combined input and output cost.
func (mc ModelCost) CalculateTotalCost(inputTokens, outputTokens int) float64 {
	return mc.CalculateInputCost(inputTokens) + mc.CalculateOutputCost(outputTokens)
}

// String returns a formatted representation of the model rates.
func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M",
		mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Table maps model identifiers to their pricing. A missing entry means the
// cost of that model is unknown and estimates stay at zero.
type Table map[string]ModelCost

// Estimate returns the estimated USD cost of one generation, or 0 when the
// model is not priced.
func (t Table) Estimate(model string, inputTokens, outputTokens int) float64 {
	mc, known := t[model]
	if !known {
		return 0
	}
	return mc.CalculateTotalCost(inputTokens, outputTokens)
}

// ToolMetrics carries the optional per-call cost and performance metadata of
// a tool. It is advertised alongside the tool description so operators can
// reason about the price of enabling a tool.
type ToolMetrics struct {
	// Amount is the cost of executing the tool once.
	Amount float64 `json:"amount"`

	// Currency is the unit for Amount (e.g. "USD", "credits").
	Currency string `json:"currency,omitempty"`

	// CostDescription adds context, e.g. "per API call".
	CostDescription string `json:"cost_description,omitempty"`

	// Accuracy is a reliability score in [0,1].
	Accuracy float64 `json:"accuracy,omitempty"`

	// AverageDurationInMillis is the typical execution time.
	AverageDurationInMillis int64 `json:"average_duration_ms,omitempty"`
}
