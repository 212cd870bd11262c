package core_test

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"pgregory.net/rapid"

	"github.com/toejough/arith/internal/core"
	"github.com/toejough/arith/match"
)

// operand draws finite operands small enough that sums and products stay finite.
func operand(rt *rapid.T, label string) float64 {
	return rapid.Float64Range(-1e6, 1e6).Draw(rt, label)
}

// TestAdd_Commutative_Property proves Add(a, b) == Add(b, a).
func TestAdd_Commutative_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		a := operand(rt, "a")
		b := operand(rt, "b")

		if calc.Add(a, b) != calc.Add(b, a) {
			rt.Fatalf("Add(%v, %v) = %v but Add(%v, %v) = %v", a, b, calc.Add(a, b), b, a, calc.Add(b, a))
		}
	})
}

// TestAverage_IsSumOverLength_Property proves Average(S) == sum(S)/len(S) for non-empty S.
func TestAverage_IsSumOverLength_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		g := NewWithT(rt)
		numbers := rapid.SliceOfN(rapid.Float64Range(-1e6, 1e6), 1, 50).Draw(rt, "numbers")

		var sum float64
		for _, n := range numbers {
			sum += n
		}

		g.Expect(calc.Average(numbers)).To(match.BeApprox(sum / float64(len(numbers))))
	})
}

// TestAverage_WithinBounds_Property proves the mean lies between the smallest and largest element.
func TestAverage_WithinBounds_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		numbers := rapid.SliceOfN(rapid.Float64Range(-1e6, 1e6), 1, 50).Draw(rt, "numbers")

		lo, hi := numbers[0], numbers[0]
		for _, n := range numbers[1:] {
			lo = math.Min(lo, n)
			hi = math.Max(hi, n)
		}

		avg, err := calc.Average(numbers)
		if err != nil {
			rt.Fatalf("Average(%v) returned error %v", numbers, err)
		}

		// Rounding in the running sum can push the mean a hair past an extreme.
		slack := 1e-9 * math.Max(math.Abs(lo), math.Abs(hi))
		if avg < lo-slack || avg > hi+slack {
			rt.Fatalf("Average(%v) = %v, outside [%v, %v]", numbers, avg, lo, hi)
		}
	})
}

// TestDivide_ByOne_Property proves Divide(a, 1) == a.
func TestDivide_ByOne_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		g := NewWithT(rt)
		a := operand(rt, "a")

		g.Expect(calc.Divide(a, 1)).To(Equal(a))
	})
}

// TestDivide_ByZero_Property proves Divide(a, 0) fails with ErrDivisionByZero for every a.
func TestDivide_ByZero_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64().Draw(rt, "a")

		_, err := calc.Divide(a, 0)
		if !errors.Is(err, core.ErrDivisionByZero) {
			rt.Fatalf("Divide(%v, 0) error = %v, want %v", a, err, core.ErrDivisionByZero)
		}
	})
}

// TestOperations_Pure_Property proves identical inputs always produce identical outputs.
func TestOperations_Pure_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		a := operand(rt, "a")
		b := operand(rt, "b")
		exponent := rapid.IntRange(-30, 30).Draw(rt, "exponent")

		first := evaluateAll(core.NewCalculator(), a, b, exponent)
		second := evaluateAll(core.NewCalculator(), a, b, exponent)

		for i := range first {
			if first[i] != second[i] {
				rt.Fatalf("operation %d not pure for (%v, %v, %d): %v then %v", i, a, b, exponent, first[i], second[i])
			}
		}
	})
}

// TestPower_NegativeInvertsPositive_Property proves Power(b, -n) * Power(b, n) ≈ 1 for non-zero b.
func TestPower_NegativeInvertsPositive_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		g := NewWithT(rt)
		base := rapid.Float64Range(0.5, 2).Draw(rt, "base")
		n := rapid.IntRange(0, 40).Draw(rt, "n")

		positive, err := calc.Power(base, n)
		g.Expect(err).NotTo(HaveOccurred())

		negative, err := calc.Power(base, -n)
		g.Expect(err).NotTo(HaveOccurred())

		g.Expect(positive * negative).To(match.BeApprox(1))
	})
}

// TestPower_ZeroExponent_Property proves Power(b, 0) == 1 for every non-zero b.
func TestPower_ZeroExponent_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		g := NewWithT(rt)
		base := operand(rt, "base")

		if base == 0 {
			rt.Skip("zero base covered by TestPower")
		}

		g.Expect(calc.Power(base, 0)).To(Equal(1.0))
	})
}

// TestPower_MatchesRepeatedMultiplication_Property proves Power agrees with a naive product.
func TestPower_MatchesRepeatedMultiplication_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		g := NewWithT(rt)
		base := rapid.Float64Range(-10, 10).Draw(rt, "base")
		exponent := rapid.IntRange(0, 20).Draw(rt, "exponent")

		product := 1.0
		for range exponent {
			product *= base
		}

		g.Expect(calc.Power(base, exponent)).To(match.BeApprox(product))
	})
}

// TestSubtract_AntiCommutative_Property proves Subtract(a, b) == -Subtract(b, a).
func TestSubtract_AntiCommutative_Property(t *testing.T) {
	t.Parallel()

	calc := core.NewCalculator()

	rapid.Check(t, func(rt *rapid.T) {
		a := operand(rt, "a")
		b := operand(rt, "b")

		if calc.Subtract(a, b) != -calc.Subtract(b, a) {
			rt.Fatalf("Subtract(%v, %v) = %v, want %v", a, b, calc.Subtract(a, b), -calc.Subtract(b, a))
		}
	})
}

// evaluateAll runs every operation once and records the raw bits of each result,
// with errors mapped to a fixed sentinel value.
func evaluateAll(calc *core.Calculator, a, b float64, exponent int) []uint64 {
	const errorBits = math.MaxUint64

	bitsOf := func(v float64, err error) uint64 {
		if err != nil {
			return errorBits
		}

		return math.Float64bits(v)
	}

	return []uint64{
		math.Float64bits(calc.Add(a, b)),
		math.Float64bits(calc.Subtract(a, b)),
		math.Float64bits(calc.Multiply(a, b)),
		bitsOf(calc.Divide(a, b)),
		bitsOf(calc.Power(a, exponent)),
		bitsOf(calc.Average([]float64{a, b})),
	}
}
