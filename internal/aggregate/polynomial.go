package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/capfit/internal/model"
)

// polynomial fits a least-squares polynomial of the given degree to the
// Simple Average curve and evaluates it at x. It needs degree+1 distinct x.
func polynomial(degree int) func(in *input) ([]float64, *model.FitError) {
	return func(in *input) ([]float64, *model.FitError) {
		if d := len(distinct(in.x)); d < degree+1 {
			return nil, model.NewFitError(model.FailureAggregationSkipped,
				"degree %d needs %d distinct x values, have %d", degree, degree+1, d)
		}
		avg, _ := pointwise(mean)(in)
		if !allFinite(avg) {
			return nil, model.NewFitError(model.FailureAggregationSkipped, "simple average is not finite")
		}

		// Centre and scale x so the Vandermonde matrix stays well conditioned.
		t := normalise(in.x)
		a := vandermonde(t, degree)
		b := mat.NewVecDense(len(avg), avg)
		c := mat.NewVecDense(degree+1, nil)

		var qr mat.QR
		qr.Factorize(a)
		if err := qr.SolveVecTo(c, false, b); err != nil {
			return nil, model.NewFitError(model.FailureAggregationSkipped, "least squares: %v", err)
		}

		out := make([]float64, len(t))
		for i, v := range t {
			// Horner
			acc := c.AtVec(degree)
			for j := degree - 1; j >= 0; j-- {
				acc = acc*v + c.AtVec(j)
			}
			out[i] = acc
		}
		return out, nil
	}
}

// vandermonde returns the len(a)×(degree+1) matrix with columns a^0..a^degree.
func vandermonde(a []float64, degree int) *mat.Dense {
	v := mat.NewDense(len(a), degree+1, nil)
	for i := range a {
		for j, p := 0, 1.0; j <= degree; j, p = j+1, p*a[i] {
			v.Set(i, j, p)
		}
	}
	return v
}

// normalise maps x onto roughly [-1, 1].
func normalise(x []float64) []float64 {
	var lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	centre, scale := (lo+hi)/2, (hi-lo)/2
	if scale == 0 {
		scale = 1
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - centre) / scale
	}
	return out
}

// interpolator is the part of the gonum interpolators used here.
type interpolator interface {
	Fit(xs, ys []float64) error
	Predict(x float64) float64
}

func piecewiseLinear() interpolator { return &interp.PiecewiseLinear{} }
func naturalCubic() interpolator    { return &interp.NaturalCubic{} }

// interpolated fits an interpolant through the Simple Average, with
// duplicate x values averaged, and evaluates it at every x.
func interpolated(minPoints int, newInterpolator func() interpolator) func(in *input) ([]float64, *model.FitError) {
	return func(in *input) ([]float64, *model.FitError) {
		avg, _ := pointwise(mean)(in)
		xs, ys := collapse(in.x, avg)
		if len(xs) < minPoints {
			return nil, model.NewFitError(model.FailureAggregationSkipped,
				"needs %d distinct x values, have %d", minPoints, len(xs))
		}
		if !allFinite(ys) {
			return nil, model.NewFitError(model.FailureAggregationSkipped, "simple average is not finite")
		}

		f := newInterpolator()
		if err := f.Fit(xs, ys); err != nil {
			return nil, model.NewFitError(model.FailureAggregationSkipped, "interpolation: %v", err)
		}
		out := make([]float64, len(in.x))
		for i, v := range in.x {
			out[i] = f.Predict(v)
		}
		return out, nil
	}
}

// distinct returns the sorted distinct values of x.
func distinct(x []float64) []float64 {
	s := sorted(x)
	var out []float64
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// collapse sorts (x, y) by x and averages y over equal x.
func collapse(x, y []float64) ([]float64, []float64) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	var xs, ys []float64
	for i := 0; i < len(idx); {
		j, sum := i, 0.0
		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			sum += y[idx[j]]
			j++
		}
		xs = append(xs, x[idx[i]])
		ys = append(ys, sum/float64(j-i))
		i = j
	}
	return xs, ys
}
