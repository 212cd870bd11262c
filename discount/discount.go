// Package discount computes discounted prices from an injected rate source.
package discount

//go:generate mockgen -destination=mocks/mock_discount.go -package=mocks github.com/toejough/arith/discount Provider

import (
	"errors"
	"fmt"
	"math"

	"github.com/toejough/arith"
)

// Exported variables.
var (
	ErrInvalidRate = errors.New("discount rate must be within [0, 1]")
	ErrNilProvider = errors.New("nil discount provider")
)

// Provider supplies the discount rate to apply, as a fraction between 0 and 1.
type Provider interface {
	Discount() float64
}

// ProviderFunc adapts a plain function to a Provider.
type ProviderFunc func() float64

// Discount calls f.
func (f ProviderFunc) Discount() float64 {
	return f()
}

// ComputeDiscountedPrice returns price reduced by the rate the provider reports.
// The provider is consulted exactly once per call.
func ComputeDiscountedPrice(price float64, provider Provider) (float64, error) {
	if fn, ok := provider.(ProviderFunc); provider == nil || (ok && fn == nil) {
		return 0, ErrNilProvider
	}

	rate := provider.Discount()
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return 0, fmt.Errorf("provider returned %v: %w", rate, ErrInvalidRate)
	}

	return arith.Multiply(price, arith.Subtract(1, rate)), nil
}

// Fixed returns a Provider that always reports rate.
func Fixed(rate float64) Provider {
	return ProviderFunc(func() float64 { return rate })
}
