package calculator

import (
	"context"
	"testing"
)

// TestCalcOperations verifies the four supported operations over a range of
// operand signs.
func TestCalcOperations(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		a, b     float64
		expected float64
	}{
		{"add", "add", 3, 4, 7},
		{"add negatives", "add", -1, -2, -3},
		{"add floats", "add", 1.5, 2.5, 4.0},
		{"sub", "sub", 10, 3, 7},
		{"sub negative result", "sub", 3, 10, -7},
		{"mul", "mul", 3, 4, 12},
		{"mul by zero", "mul", 100, 0, 0},
		{"mul both negative", "mul", -3, -4, 12},
		{"div", "div", 10, 4, 2.5},
		{"div negative divisor", "div", 10, -2, -5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			output, err := Calc(context.Background(), Input{A: tc.a, B: tc.b, Op: tc.op})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.Result != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, output.Result)
			}
		})
	}
}

// TestCalcDivByZero verifies that dividing by zero is an explicit error
// rather than an IEEE infinity.
func TestCalcDivByZero(t *testing.T) {
	if _, err := Calc(context.Background(), Input{A: 1, B: 0, Op: "div"}); err == nil {
		t.Fatal("expected an error for division by zero")
	}
}

// TestCalcUnknownOp verifies that an unrecognized operation is rejected.
func TestCalcUnknownOp(t *testing.T) {
	if _, err := Calc(context.Background(), Input{A: 5, B: 3, Op: "pow"}); err == nil {
		t.Fatal("expected an error for unknown operation")
	}
}

// TestNewAdvertisesSchema verifies the tool name and that the operation
// enum reaches the advertised parameter schema.
func TestNewAdvertisesSchema(t *testing.T) {
	calc := New()
	description := calc.Describe()

	if description.Name != "calculator" {
		t.Errorf("tool name %q", description.Name)
	}
	if description.Parameters == nil {
		t.Fatal("missing parameter schema")
	}
	op, ok := description.Parameters.Properties["op"]
	if !ok {
		t.Fatal("schema missing op property")
	}
	if len(op.Enum) != 4 {
		t.Errorf("op enum %v", op.Enum)
	}
}

// TestToolCallEndToEnd verifies the registered tool through the generic
// Call path, including argument validation.
func TestToolCallEndToEnd(t *testing.T) {
	calc := New()

	output, err := calc.Call(context.Background(), `{"a": 10, "b": 4, "op": "div"}`)
	if err != nil {
		t.Fatal(err)
	}
	if output != `{"result":2.5}` {
		t.Errorf("output %q", output)
	}

	if _, err := calc.Call(context.Background(), `{"a": 10, "b": 4, "op": "mod"}`); err == nil {
		t.Error("enum violation accepted")
	}
}
