package match_test

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"pgregory.net/rapid"

	"github.com/toejough/arith/match"
)

func TestBeApprox_ExactValue(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(0.25).To(match.BeApprox(0.25))
	g.Expect(8).To(match.BeApprox(8))
	g.Expect(float32(0.5)).To(match.BeApprox(0.5))
}

func TestBeApprox_FailureMessage(t *testing.T) {
	t.Parallel()

	matcher := match.BeApproxWithin(1, 0, 0.5)

	ok, err := matcher.Match(2.0)
	if ok || err != nil {
		t.Errorf("BeApproxWithin(1, 0, 0.5).Match(2.0) = (%v, %v), want (false, nil)", ok, err)
	}

	msg := matcher.FailureMessage(2.0)
	expected := "expected 2 to be approximately 1 ± 0.5"

	if msg != expected {
		t.Errorf("FailureMessage(2.0) = %q, want %q", msg, expected)
	}

	negated := matcher.NegatedFailureMessage(1.2)
	expectedNegated := "expected 1.2 not to be approximately 1 ± 0.5"

	if negated != expectedNegated {
		t.Errorf("NegatedFailureMessage(1.2) = %q, want %q", negated, expectedNegated)
	}
}

func TestBeApprox_Infinities(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(math.Inf(1)).To(match.BeApprox(math.Inf(1)))
	g.Expect(math.Inf(-1)).NotTo(match.BeApprox(math.Inf(1)))
	g.Expect(1e308).NotTo(match.BeApprox(math.Inf(1)))
}

func TestBeApprox_NaNNeverMatches(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(math.NaN()).NotTo(match.BeApprox(math.NaN()))
	g.Expect(0.0).NotTo(match.BeApprox(math.NaN()))
}

func TestBeApprox_NonNumber(t *testing.T) {
	t.Parallel()

	ok, err := match.BeApprox(1).Match("1")
	if ok || err == nil {
		t.Fatalf("BeApprox(1).Match(\"1\") = (%v, %v), want (false, error)", ok, err)
	}

	expected := "type mismatch: expected a number, got string"
	if err.Error() != expected {
		t.Errorf("error = %q, want %q", err.Error(), expected)
	}
}

func TestBeApprox_RelativeTolerance(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	// 1/3 printed to seven places is inside the default relative tolerance.
	g.Expect(1.0 / 3).To(match.BeApprox(0.3333333))
	g.Expect(1.0 / 3).NotTo(match.BeApprox(0.333))
	g.Expect(1e9 + 1).To(match.BeApprox(1e9))
}

// TestBeApprox_WithinTolerance_Property proves that a value within half the tolerance
// of expected always matches.
func TestBeApprox_WithinTolerance_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		expected := rapid.Float64Range(-1e6, 1e6).Draw(rt, "expected")
		fraction := rapid.Float64Range(-0.5, 0.5).Draw(rt, "fraction")

		tolerance := math.Max(match.DefaultRelativeTolerance*math.Abs(expected), match.DefaultAbsoluteTolerance)
		actual := expected + fraction*tolerance

		ok, err := match.BeApprox(expected).Match(actual)
		if !ok || err != nil {
			rt.Fatalf("BeApprox(%v).Match(%v) = (%v, %v), want (true, nil)", expected, actual, ok, err)
		}
	})
}

func TestSatisfy_MatchFailure(t *testing.T) {
	t.Parallel()

	matcher := match.Satisfy(func(val float64) error {
		if val < 0 {
			return errors.New("must be non-negative")
		}

		return nil
	})

	ok, err := matcher.Match(-1.5)
	if ok || err != nil {
		t.Errorf("Satisfy().Match(-1.5) = (%v, %v), want (false, nil)", ok, err)
	}

	msg := matcher.FailureMessage(-1.5)
	expected := "value -1.5 does not satisfy predicate: must be non-negative"

	if msg != expected {
		t.Errorf("Satisfy().FailureMessage(-1.5) = %q, want %q", msg, expected)
	}
}

func TestSatisfy_MatchSuccess(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(2.5).To(match.Satisfy(func(val float64) error {
		if val < 0 {
			return errors.New("must be non-negative")
		}

		return nil
	}))
}

func TestSatisfy_TypeMismatch(t *testing.T) {
	t.Parallel()

	matcher := match.Satisfy(func(float64) error { return nil })

	ok, err := matcher.Match(3)
	if ok || err == nil {
		t.Fatalf("Satisfy[float64]().Match(3) = (%v, %v), want (false, error)", ok, err)
	}

	expected := "type mismatch: expected float64, got int"
	if err.Error() != expected {
		t.Errorf("error = %q, want %q", err.Error(), expected)
	}
}
