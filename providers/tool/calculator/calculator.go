package calculator

import (
	"context"
	"fmt"

	"github.com/leofalp/aigw/core/cost"
	"github.com/leofalp/aigw/providers/tool"
)

// Input holds the two operands and the operation applied by [Calc].
type Input struct {
	A  float64 `json:"a"  jsonschema:"description=First operand,required"`
	B  float64 `json:"b"  jsonschema:"description=Second operand,required"`
	Op string  `json:"op" jsonschema:"description=Operation to apply,enum=add,enum=sub,enum=mul,enum=div,required"`
}

// Output carries the single result produced by [Calc].
type Output struct {
	Result float64 `json:"result" jsonschema:"description=The result of the calculation"`
}

// New returns a [tool.Tool] performing basic arithmetic. The metrics mark
// it as free local computation.
func New() *tool.Tool[Input, Output] {
	return tool.New(
		"calculator",
		Calc,
		tool.WithDescription("Performs basic arithmetic (add, sub, mul, div) on two numbers."),
		tool.WithMetrics(cost.ToolMetrics{
			Currency:                "USD",
			CostDescription:         "local computation",
			Accuracy:                1.0,
			AverageDurationInMillis: 1,
		}),
	)
}

// Calc applies req.Op to req.A and req.B. Division by zero is an explicit
// error rather than an IEEE infinity, since the result is relayed to a
// language model as text.
func Calc(ctx context.Context, req Input) (Output, error) {
	switch req.Op {
	case "add":
		return Output{Result: req.A + req.B}, nil
	case "sub":
		return Output{Result: req.A - req.B}, nil
	case "mul":
		return Output{Result: req.A * req.B}, nil
	case "div":
		if req.B == 0 {
			return Output{}, fmt.Errorf("division by zero")
		}
		return Output{Result: req.A / req.B}, nil
	default:
		return Output{}, fmt.Errorf("unsupported operation %q", req.Op)
	}
}
