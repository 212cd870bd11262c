// Package match provides matchers for asserting on arithmetic results.
// Every matcher satisfies gomega's matcher interface:
//
//	import (
//	    . "github.com/onsi/gomega"
//	    "github.com/toejough/arith/match"
//	)
//
//	g.Expect(arith.Divide(1, 3)).To(match.BeApprox(0.3333333))
//
// Import it by name rather than dot-importing it next to gomega, which also
// exports a Satisfy.
package match

import (
	"errors"
	"fmt"
	"math"
)

// Default tolerances used by BeApprox.
const (
	DefaultRelativeTolerance = 1e-6
	DefaultAbsoluteTolerance = 1e-12
)

// errTypeMismatch is a sentinel error for type assertion failures.
var errTypeMismatch = errors.New("type mismatch")

// Matcher defines the interface for flexible value matching.
// It is satisfied by gomega.GomegaMatcher, and every matcher in this package
// can be passed to gomega's To and NotTo.
type Matcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
	NegatedFailureMessage(actual any) string
}

// BeApprox returns a matcher that succeeds when actual is within the default
// tolerances of expected.
func BeApprox(expected float64) Matcher {
	return BeApproxWithin(expected, DefaultRelativeTolerance, DefaultAbsoluteTolerance)
}

// BeApproxWithin returns a matcher that succeeds when
// |actual - expected| <= max(rel * |expected|, abs).
// Infinities only match an identical infinity, and NaN never matches.
//
// Example:
//
//	g.Expect(arith.Power(2, -2)).To(match.BeApproxWithin(0.25, 0, 1e-9))
func BeApproxWithin(expected, rel, abs float64) Matcher {
	return &approxMatcher{expected: expected, rel: rel, abs: abs}
}

// Satisfy returns a matcher that uses a predicate function to check for a match.
// The predicate should return nil if the value matches, or an error describing
// the mismatch if it does not.
//
// Example:
//
//	g.Expect(result).To(match.Satisfy(func(x float64) error {
//	    if x < 0 { return fmt.Errorf("expected non-negative, got %v", x) }
//	    return nil
//	}))
func Satisfy[T any](predicate func(T) error) Matcher {
	return &satisfyMatcher[T]{predicate: predicate}
}

type approxMatcher struct {
	expected float64
	rel      float64
	abs      float64
}

func (m *approxMatcher) FailureMessage(actual any) string {
	return fmt.Sprintf("expected %v to be approximately %v ± %v", actual, m.expected, m.tolerance())
}

func (m *approxMatcher) Match(actual any) (bool, error) {
	val, err := toFloat(actual)
	if err != nil {
		return false, err
	}

	if math.IsNaN(val) || math.IsNaN(m.expected) {
		return false, nil
	}

	if math.IsInf(val, 0) || math.IsInf(m.expected, 0) {
		return val == m.expected, nil
	}

	return math.Abs(val-m.expected) <= m.tolerance(), nil
}

func (m *approxMatcher) NegatedFailureMessage(actual any) string {
	return fmt.Sprintf("expected %v not to be approximately %v ± %v", actual, m.expected, m.tolerance())
}

func (m *approxMatcher) tolerance() float64 {
	return math.Max(m.rel*math.Abs(m.expected), m.abs)
}

type satisfyMatcher[T any] struct {
	predicate func(T) error
	lastErr   error
}

func (m *satisfyMatcher[T]) FailureMessage(actual any) string {
	if m.lastErr != nil {
		return fmt.Sprintf("value %v does not satisfy predicate: %v", actual, m.lastErr)
	}

	return fmt.Sprintf("value %v does not satisfy predicate", actual)
}

func (m *satisfyMatcher[T]) Match(actual any) (bool, error) {
	val, ok := actual.(T)

	if !ok {
		return false, fmt.Errorf("%w: expected %T, got %T", errTypeMismatch, *new(T), actual)
	}

	m.lastErr = m.predicate(val)

	return m.lastErr == nil, nil
}

func (m *satisfyMatcher[T]) NegatedFailureMessage(actual any) string {
	return fmt.Sprintf("value %v unexpectedly satisfies predicate", actual)
}

// toFloat widens any built-in numeric value to float64.
func toFloat(actual any) (float64, error) {
	switch val := actual.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", errTypeMismatch, actual)
	}
}
