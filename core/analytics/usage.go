package analytics

import "time"

// UsageRecord is the normalized consumption summary for one generation.
type UsageRecord struct {
	// GenerationID links the record to the generation that produced it.
	GenerationID string `json:"generation_id,omitempty"`

	// Backend is the backend identifier the generation was routed to.
	Backend string `json:"backend"`

	// Model is the model identifier actually used.
	Model string `json:"model,omitempty"`

	// InputUnits is the consumption attributed to the request.
	InputUnits int64 `json:"input_units"`

	// OutputUnits is the consumption attributed to the response.
	OutputUnits int64 `json:"output_units"`

	// TotalUnits is always InputUnits + OutputUnits.
	TotalUnits int64 `json:"total_units"`

	// EstimatedCost is the cost derived from the configured pricing table
	// or reported by the vendor, in Currency. Nil when neither is known.
	EstimatedCost *float64 `json:"estimated_cost,omitempty"`

	// Currency qualifies EstimatedCost. Empty when EstimatedCost is nil.
	Currency string `json:"currency,omitempty"`

	// Incomplete marks a record whose usage data could not be derived:
	// the backend has no field map, the raw block was missing, or the
	// mapped fields were absent or non-numeric.
	Incomplete bool `json:"incomplete,omitempty"`

	// Timestamp is when the record was derived.
	Timestamp time.Time `json:"timestamp"`
}
