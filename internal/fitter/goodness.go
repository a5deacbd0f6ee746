package fitter

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/capfit/internal/model"
)

// zeroTolerance is relative to Σy²: a sum of squares below
// zeroTolerance·Σy² counts as zero.
const zeroTolerance = 1e-20

// magnitude returns Σy², the scale that sums of squares of y are measured
// against. An all-zero target has no scale of its own and gets 1.
func magnitude(y []float64) float64 {
	if m := floats.Dot(y, y); m > 0 {
		return m
	}
	return 1
}

// RSquared returns the coefficient of determination of pred against y and
// the residual sum of squares. SS_tot is (n-1) times the sample variance of
// y. A constant target yields R² = 1 when the fit is exact and a
// degenerate_target failure otherwise.
func RSquared(y, pred []float64) (float64, float64, *model.FitError) {
	ssRes := 0.0
	for i := range y {
		d := y[i] - pred[i]
		ssRes += d * d
	}

	n := len(y)
	ssTot := 0.0
	if n > 1 {
		ssTot = float64(n-1) * stat.Variance(y, nil)
	}

	eps := zeroTolerance * magnitude(y)
	if ssTot <= eps {
		if ssRes <= eps {
			return 1, ssRes, nil
		}
		return 0, ssRes, model.NewFitError(model.FailureDegenerateTarget,
			"target is constant and SS_res=%g", ssRes)
	}
	return 1 - ssRes/ssTot, ssRes, nil
}
