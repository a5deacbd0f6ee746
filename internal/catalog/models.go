package catalog

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

var inf = math.Inf(1)

// box is a lower/upper bound pair.
type box struct {
	lower, upper []float64
}

func unbounded(k int) box {
	b := box{lower: make([]float64, k), upper: make([]float64, k)}
	for i := 0; i < k; i++ {
		b.lower[i] = -inf
		b.upper[i] = inf
	}
	return b
}

func nonNegative(k int) box {
	b := box{lower: make([]float64, k), upper: make([]float64, k)}
	for i := 0; i < k; i++ {
		b.upper[i] = inf
	}
	return b
}

// withLower returns unbounded limits except for the listed parameters,
// which are held at >= 0.
func withLower(k int, nonNeg ...int) box {
	b := unbounded(k)
	for _, i := range nonNeg {
		b.lower[i] = 0
	}
	return b
}

func def(kind Kind, domain string, eval EvalFunc, guess []float64, b box) Definition {
	return Definition{
		Kind:   kind,
		Name:   kind.String(),
		Eval:   eval,
		Guess:  guess,
		Lower:  b.lower,
		Upper:  b.upper,
		Domain: domain,
	}
}

func builtins() []Definition {
	return []Definition{
		def(Linear, "all x",
			func(x float64, p []float64) float64 { return p[0]*x + p[1] },
			[]float64{1, 1}, unbounded(2)),
		def(Quadratic, "all x",
			func(x float64, p []float64) float64 { return p[0]*x*x + p[1]*x + p[2] },
			[]float64{1, 1, 1}, unbounded(3)),
		def(SineWave, "all x",
			func(x float64, p []float64) float64 { return p[0] * math.Sin(p[1]*x+p[2]) },
			[]float64{1, 1, 0}, unbounded(3)),
		// Growth rate and amplitude are held non-negative.
		def(Exponential, "all x",
			func(x float64, p []float64) float64 { return p[0] * math.Exp(p[1]*x) },
			[]float64{1, 1}, nonNegative(2)),
		def(Logarithmic, "x > 0",
			func(x float64, p []float64) float64 { return p[0] + p[1]*math.Log(x) },
			[]float64{1, 1}, withLower(2, 1)),
		def(Cubic, "all x",
			func(x float64, p []float64) float64 { return ((p[0]*x+p[1])*x+p[2])*x + p[3] },
			[]float64{1, 1, 1, 1}, unbounded(4)),
		// Non-negative coefficient and exponent keep a*x^b real for x > 0.
		def(PowerLaw, "x > 0",
			func(x float64, p []float64) float64 { return p[0] * math.Pow(x, p[1]) },
			[]float64{1, 1}, nonNegative(2)),
		def(Gaussian, "all x",
			func(x float64, p []float64) float64 {
				d := x - p[1]
				return p[0] * math.Exp(-(d*d)/(2*p[2]*p[2]))
			},
			[]float64{1, 0, 1}, withLower(3, 2)),
		def(Logistic, "all x",
			func(x float64, p []float64) float64 { return p[0] / (1 + math.Exp(-p[1]*(x-p[2]))) },
			[]float64{1, 1, 1}, unbounded(3)),
		def(Hyperbolic, "x != -b",
			func(x float64, p []float64) float64 { return p[0] / (p[1] + x) },
			[]float64{1, 1}, unbounded(2)),
		def(CosineWave, "all x",
			func(x float64, p []float64) float64 { return p[0] * math.Cos(p[1]*x+p[2]) },
			[]float64{1, 1, 0}, unbounded(3)),
		// Discontinuous at b*x = pi/2 + n*pi; fits near an asymptote usually fail.
		def(Tangent, "b*x != pi/2 + n*pi",
			func(x float64, p []float64) float64 { return p[0] * math.Tan(p[1]*x) },
			[]float64{1, 1}, unbounded(2)),
		def(SquareRoot, "x >= 0",
			func(x float64, p []float64) float64 { return p[0]*math.Sqrt(x) + p[1] },
			[]float64{1, 1}, withLower(2, 0)),
		def(ExponentialDecay, "all x",
			func(x float64, p []float64) float64 { return p[0] * math.Exp(-p[1]*x) },
			[]float64{1, 1}, nonNegative(2)),
		def(LogarithmicDecay, "x > 0",
			func(x float64, p []float64) float64 { return p[0] - p[1]*math.Log(x) },
			[]float64{1, 1}, withLower(2, 1)),
		def(Polynomial4, "all x",
			func(x float64, p []float64) float64 {
				return (((p[0]*x+p[1])*x+p[2])*x+p[3])*x + p[4]
			},
			[]float64{1, 1, 1, 1, 1}, unbounded(5)),
		def(InverseSquare, "x != 0",
			func(x float64, p []float64) float64 { return p[0] / (x * x) },
			[]float64{1}, nonNegative(1)),
		def(Sigmoid, "all x",
			func(x float64, p []float64) float64 { return 1 / (1 + math.Exp(-p[0]*(x-p[1]))) },
			[]float64{1, 1}, unbounded(2)),
		def(Rational, "x != -b/c",
			func(x float64, p []float64) float64 { return p[0] / (p[1] + p[2]*x) },
			[]float64{1, 1, 1}, unbounded(3)),
		// Shape and scale are non-negative by definition.
		def(Weibull, "x > 0",
			func(x float64, p []float64) float64 {
				return p[0] * p[1] * math.Pow(x, p[1]-1) * math.Exp(-p[0]*math.Pow(x, p[1]))
			},
			[]float64{1, 1}, nonNegative(2)),
		def(Rayleigh, "x >= 0",
			func(x float64, p []float64) float64 { return p[0] * x * math.Exp(-(x*x)/(2*p[1]*p[1])) },
			[]float64{1, 1}, nonNegative(2)),
		// Gamma(x+1) extends x! to non-integer x; the rate is non-negative.
		def(Poisson, "x >= 0",
			func(x float64, p []float64) float64 {
				return math.Exp(-p[0]) * math.Pow(p[0], x) / math.Gamma(x+1)
			},
			[]float64{1}, nonNegative(1)),
		def(Beta, "0 < x < 1",
			func(x float64, p []float64) float64 {
				return math.Pow(x, p[0]-1) * math.Pow(1-x, p[1]-1) / mathext.Beta(p[0], p[1])
			},
			[]float64{1, 1}, nonNegative(2)),
		def(Cauchy, "all x",
			func(x float64, p []float64) float64 {
				z := (x - p[1]) / p[0]
				return 1 / (math.Pi * p[0] * (1 + z*z))
			},
			[]float64{1, 1}, unbounded(2)),
		def(Gompertz, "all x",
			func(x float64, p []float64) float64 { return p[0] * math.Exp(-p[1]*math.Exp(-p[2]*x)) },
			[]float64{1, 1, 1}, nonNegative(3)),
		def(Hill, "x >= 0",
			func(x float64, p []float64) float64 {
				xn := math.Pow(x, p[2])
				return p[0] * xn / (math.Pow(p[1], p[2]) + xn)
			},
			[]float64{1, 1, 1}, nonNegative(3)),
		def(DoubleExponential, "all x",
			func(x float64, p []float64) float64 { return p[0]*math.Exp(p[1]*x) + p[2]*math.Exp(p[3]*x) },
			[]float64{1, 1, 1, 1}, unbounded(4)),
		def(Fourier, "all x",
			func(x float64, p []float64) float64 {
				return p[0] + p[1]*math.Cos(2*math.Pi*x) + p[2]*math.Sin(2*math.Pi*x)
			},
			[]float64{1, 1, 1}, unbounded(3)),
	}
}
