// Package uncertainty provides a value type pairing a nominal estimate with
// a standard uncertainty, together with arithmetic that propagates
// uncertainty to first order (the delta method). Inputs to an operation are
// treated as uncorrelated; quantities derived from shared samples must be
// propagated from the sample moments instead of by chaining these operations.
package uncertainty

import (
	"fmt"
	"math"
)

// Value is a nominal estimate with its standard uncertainty.
type Value struct {
	// Nominal is the best estimate of the quantity
	Nominal float64

	// Sigma is the standard uncertainty of the estimate, always >= 0
	Sigma float64
}

// New returns a Value with the given nominal estimate and standard
// uncertainty. A negative uncertainty is taken by magnitude, so Sigma is
// always non-negative.
func New(nominal, sigma float64) Value {
	return Value{Nominal: nominal, Sigma: math.Abs(sigma)}
}

// Exact returns a Value with zero uncertainty.
func Exact(v float64) Value {
	return Value{Nominal: v}
}

// Add returns a + b with uncertainties combined in quadrature.
func (a Value) Add(b Value) Value {
	return Value{
		Nominal: a.Nominal + b.Nominal,
		Sigma:   math.Hypot(a.Sigma, b.Sigma),
	}
}

// Sub returns a - b with uncertainties combined in quadrature.
func (a Value) Sub(b Value) Value {
	return Value{
		Nominal: a.Nominal - b.Nominal,
		Sigma:   math.Hypot(a.Sigma, b.Sigma),
	}
}

// Mul returns a * b. The uncertainty is the first-order form
// sqrt((b*sa)^2 + (a*sb)^2), which stays defined when either nominal
// value is zero.
func (a Value) Mul(b Value) Value {
	return Value{
		Nominal: a.Nominal * b.Nominal,
		Sigma:   math.Hypot(b.Nominal*a.Sigma, a.Nominal*b.Sigma),
	}
}

// Div returns a / b with first-order propagated uncertainty.
func (a Value) Div(b Value) Value {
	q := a.Nominal / b.Nominal
	return Value{
		Nominal: q,
		Sigma:   math.Hypot(a.Sigma/b.Nominal, q*b.Sigma/b.Nominal),
	}
}

// Log returns the natural logarithm of a. The propagated uncertainty is
// sigma/|nominal|.
func (a Value) Log() Value {
	return Value{
		Nominal: math.Log(a.Nominal),
		Sigma:   a.Sigma / math.Abs(a.Nominal),
	}
}

// Neg returns -a. Negation does not change the uncertainty.
func (a Value) Neg() Value {
	return Value{Nominal: -a.Nominal, Sigma: a.Sigma}
}

// Scale returns c * a for an exactly known constant c.
func (a Value) Scale(c float64) Value {
	return Value{Nominal: c * a.Nominal, Sigma: math.Abs(c) * a.Sigma}
}

// String formats the value as "nominal ± sigma".
func (a Value) String() string {
	return fmt.Sprintf("%.4f ± %.4f", a.Nominal, a.Sigma)
}
