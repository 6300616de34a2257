// Package calculator provides a locally-executed arithmetic tool. It
// supports the four basic operations over floating-point operands.
//
// The main entry point is [New], which returns a ready-to-register
// [tool.Tool]; the underlying computation is exported as [Calc] for direct
// invocation.
package calculator
