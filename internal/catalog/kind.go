package catalog

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Kind identifies a built-in curve shape.
type Kind int

const (
	Linear Kind = iota + 1
	Quadratic
	SineWave
	Exponential
	Logarithmic
	Cubic
	PowerLaw
	Gaussian
	Logistic
	Hyperbolic
	CosineWave
	Tangent
	SquareRoot
	ExponentialDecay
	LogarithmicDecay
	Polynomial4
	InverseSquare
	Sigmoid
	Rational
	Weibull
	Rayleigh
	Poisson
	Beta
	Cauchy
	Gompertz
	Hill
	DoubleExponential
	Fourier

	// Custom marks definitions registered outside the built-in set.
	Custom Kind = 100
)

var kindNames = map[Kind]string{
	Linear:            "Linear",
	Quadratic:         "Quadratic",
	SineWave:          "Sine Wave",
	Exponential:       "Exponential",
	Logarithmic:       "Logarithmic",
	Cubic:             "Cubic",
	PowerLaw:          "Power Law",
	Gaussian:          "Gaussian",
	Logistic:          "Logistic",
	Hyperbolic:        "Hyperbolic",
	CosineWave:        "Cosine Wave",
	Tangent:           "Tangent",
	SquareRoot:        "Square Root",
	ExponentialDecay:  "Exponential Decay",
	LogarithmicDecay:  "Logarithmic Decay",
	Polynomial4:       "Polynomial (4th degree)",
	InverseSquare:     "Inverse Square",
	Sigmoid:           "Sigmoid",
	Rational:          "Rational Function",
	Weibull:           "Weibull Distribution",
	Rayleigh:          "Rayleigh Distribution",
	Poisson:           "Poisson Distribution",
	Beta:              "Beta Distribution",
	Cauchy:            "Cauchy Distribution",
	Gompertz:          "Gompertz Function",
	Hill:              "Hill Equation",
	DoubleExponential: "Double Exponential",
	Fourier:           "Fourier Series",
	Custom:            "Custom",
}

// String returns the display name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseKind resolves a display name (case-insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if k != Custom && strings.EqualFold(n, strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return 0, eris.Errorf("catalog: unknown model kind %q", s)
}
