// Package arith provides arithmetic with explicit, well-defined error semantics.
// Division by zero and averaging an empty sequence are reported as errors rather
// than surfacing as infinities or NaN.
//
// This is the public API entry point. Implementation lives in internal/core.
package arith

import (
	"github.com/toejough/arith/internal/core"
)

// Errors re-exported from internal/core. Test for them with errors.Is.
var (
	// ErrDivisionByZero is returned by Divide for a zero divisor, and by Power for a
	// zero base with a negative exponent.
	ErrDivisionByZero = core.ErrDivisionByZero
	// ErrEmptyInput is returned by Average for a sequence with no elements.
	ErrEmptyInput = core.ErrEmptyInput
)

// Calculator performs arithmetic on float64 operands. The zero value is ready to use.
type Calculator = core.Calculator

// NewCalculator creates a new Calculator.
func NewCalculator() *Calculator {
	return core.NewCalculator()
}

// Functions delegating to a fresh Calculator.

// Add returns a + b.
func Add(a, b float64) float64 {
	return core.NewCalculator().Add(a, b)
}

// Average returns the arithmetic mean of numbers, or ErrEmptyInput.
func Average(numbers []float64) (float64, error) {
	return core.NewCalculator().Average(numbers)
}

// Divide returns a / b, or ErrDivisionByZero when b is zero.
func Divide(a, b float64) (float64, error) {
	return core.NewCalculator().Divide(a, b)
}

// Multiply returns a * b.
func Multiply(a, b float64) float64 {
	return core.NewCalculator().Multiply(a, b)
}

// Power returns base raised to exponent. See Calculator.Power.
func Power(base float64, exponent int) (float64, error) {
	return core.NewCalculator().Power(base, exponent)
}

// Subtract returns a - b.
func Subtract(a, b float64) float64 {
	return core.NewCalculator().Subtract(a, b)
}
