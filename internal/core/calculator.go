// Package core provides the internal implementation of arith's operations.
package core

import (
	"errors"
	"fmt"
	"math"
)

// Exported variables.
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrEmptyInput     = errors.New("empty input")
)

// Calculator performs arithmetic on float64 operands.
// It holds no state: the zero value is ready to use and is safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a new Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Add returns a + b.
func (c *Calculator) Add(a, b float64) float64 {
	return a + b
}

// Average returns the arithmetic mean of numbers.
// Returns ErrEmptyInput if numbers has no elements. The mean of finite values is
// finite even when their sum is not.
func (c *Calculator) Average(numbers []float64) (float64, error) {
	if len(numbers) == 0 {
		return 0, fmt.Errorf("cannot average a sequence of length 0: %w", ErrEmptyInput)
	}

	count := float64(len(numbers))

	var sum float64
	for _, n := range numbers {
		sum += n
	}

	if !math.IsInf(sum, 0) {
		return sum / count, nil
	}

	// The sum overflowed, or an element is infinite. Scale each term first.
	var mean float64
	for _, n := range numbers {
		mean += n / count
	}

	return mean, nil
}

// Divide returns the quotient a / b.
// Returns ErrDivisionByZero if b is zero; the check is explicit rather than
// relying on IEEE infinities.
func (c *Calculator) Divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("cannot divide %v by zero: %w", a, ErrDivisionByZero)
	}

	return a / b, nil
}

// Multiply returns a * b.
func (c *Calculator) Multiply(a, b float64) float64 {
	return a * b
}

// Power returns base raised to exponent.
//
// Non-negative exponents are computed by repeated squaring, so Power(b, 0) is 1 for
// every b (including 0). A negative exponent yields 1 / base^|exponent|, which fails
// with ErrDivisionByZero when base is zero.
func (c *Calculator) Power(base float64, exponent int) (float64, error) {
	if exponent >= 0 {
		return powUint(base, uint(exponent)), nil
	}

	if base == 0 {
		return 0, fmt.Errorf("cannot raise 0 to negative exponent %d: %w", exponent, ErrDivisionByZero)
	}

	// -exponent overflows for math.MinInt, so negate one step short and add it back unsigned.
	magnitude := uint(-(exponent + 1)) + 1

	denominator := powUint(base, magnitude)
	if math.IsInf(denominator, 0) {
		// base^magnitude overflows while its reciprocal may still be a subnormal.
		return powUint(1/base, magnitude), nil
	}

	return 1 / denominator, nil
}

// Subtract returns a - b.
func (c *Calculator) Subtract(a, b float64) float64 {
	return a - b
}

// powUint computes base^n by binary exponentiation.
func powUint(base float64, n uint) float64 {
	result := 1.0

	for n > 0 {
		if n&1 == 1 {
			result *= base
		}

		base *= base
		n >>= 1
	}

	return result
}
