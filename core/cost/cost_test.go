package cost

import (
	"math"
	"testing"
)

// TestModelCost_Calculations verifies the per-million arithmetic.
func TestModelCost_Calculations(t *testing.T) {
	mc := ModelCost{InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00}

	if got := mc.CalculateInputCost(1_000_000); got != 2.50 {
		t.Errorf("input cost: got %v", got)
	}
	if got := mc.CalculateOutputCost(500_000); got != 5.00 {
		t.Errorf("output cost: got %v", got)
	}
	if got := mc.CalculateTotalCost(1_000_000, 500_000); math.Abs(got-7.50) > 1e-9 {
		t.Errorf("total cost: got %v", got)
	}
	if got := mc.CalculateInputCost(0); got != 0 {
		t.Errorf("zero tokens must cost zero, got %v", got)
	}
}

// TestTable_Estimate verifies lookup and the unknown-model fallback.
func TestTable_Estimate(t *testing.T) {
	table := Table{
		"stub-small": {InputCostPerMillion: 1.0, OutputCostPerMillion: 2.0},
	}

	if got := table.Estimate("stub-small", 2_000_000, 1_000_000); math.Abs(got-4.0) > 1e-9 {
		t.Errorf("estimate: got %v", got)
	}
	if got := table.Estimate("unpriced-model", 1000, 1000); got != 0 {
		t.Errorf("unknown model must estimate 0, got %v", got)
	}
}
