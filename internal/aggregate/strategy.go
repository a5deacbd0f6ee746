package aggregate

import (
	"math"

	"github.com/sells-group/capfit/internal/model"
)

// Strategy names, in output order.
const (
	SimpleAverage         = "Simple Average"
	WeightedAverage       = "Weighted Average"
	PolynomialRegression  = "Polynomial Regression"
	GeometricMean         = "Geometric Mean"
	HarmonicMean          = "Harmonic Mean"
	Median                = "Median"
	Mode                  = "Mode"
	RMS                   = "RMS"
	LogMean               = "Log Mean"
	TrimmedMean           = "Trimmed Mean"
	WinsorizedMean        = "Winsorized Mean"
	EWMA                  = "EWMA"
	InterpolatedMean      = "Interpolated Mean"
	CubicSpline           = "Cubic Spline"
	ArithmeticGeometric   = "Arithmetic-Geometric Mean"
	ContraharmonicMean    = "Contraharmonic Mean"
	GeometricHarmonicMean = "Geometric-Harmonic Mean"
	WeightedHarmonicMean  = "Weighted Harmonic Mean"
	RootProduct           = "Root Product"
)

// input is the per-call state shared by every strategy. curves[i] is the
// fitted curve of the i-th record in series-name order and weights[i] its R².
type input struct {
	x       []float64
	curves  [][]float64
	weights []float64
}

// column copies the values of every curve at point j into dst.
func (in *input) column(dst []float64, j int) []float64 {
	dst = dst[:0]
	for _, c := range in.curves {
		dst = append(dst, c[j])
	}
	return dst
}

// strategy produces one consensus curve or a skip diagnostic.
type strategy struct {
	name string
	run  func(in *input) ([]float64, *model.FitError)
}

// pointFunc reduces the values of all curves at one x, with their weights.
type pointFunc func(vals, weights []float64) float64

// pointwise lifts a pointFunc to a whole curve. A non-finite input at a point
// yields NaN there.
func pointwise(fn pointFunc) func(in *input) ([]float64, *model.FitError) {
	return func(in *input) ([]float64, *model.FitError) {
		out := make([]float64, len(in.x))
		vals := make([]float64, 0, len(in.curves))
		for j := range in.x {
			vals = in.column(vals, j)
			if !allFinite(vals) {
				out[j] = math.NaN()
				continue
			}
			out[j] = fn(vals, in.weights)
		}
		return out, nil
	}
}

func registry(opts Options) []strategy {
	return []strategy{
		{SimpleAverage, pointwise(mean)},
		{WeightedAverage, pointwise(weightedMean)},
		{PolynomialRegression, polynomial(opts.PolyDegree)},
		{GeometricMean, pointwise(geometricMean)},
		{HarmonicMean, pointwise(harmonicMean)},
		{Median, pointwise(median)},
		{Mode, pointwise(mode)},
		{RMS, pointwise(rms)},
		{LogMean, pointwise(logMean)},
		{TrimmedMean, pointwise(trimmedMean(opts.TrimFraction))},
		{WinsorizedMean, pointwise(winsorizedMean(opts.WinsorFraction))},
		{EWMA, pointwise(ewma(opts.EWMAAlpha))},
		{InterpolatedMean, interpolated(2, piecewiseLinear)},
		{CubicSpline, interpolated(3, naturalCubic)},
		{ArithmeticGeometric, pointwise(arithmeticGeometricMean)},
		{ContraharmonicMean, pointwise(contraharmonicMean)},
		{GeometricHarmonicMean, pointwise(geometricHarmonicMean)},
		{WeightedHarmonicMean, pointwise(weightedHarmonicMean)},
		{RootProduct, pointwise(rootProduct)},
	}
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
