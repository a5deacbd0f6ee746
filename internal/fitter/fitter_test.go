package fitter

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/capfit/internal/catalog"
	"github.com/sells-group/capfit/internal/model"
)

// sampleX avoids x <= 0 and the half-integer grid on which the Fourier
// sine term vanishes.
func sampleX() []float64 {
	return grid(0.35, 0.45, 10)
}

func lookup(t *testing.T, k catalog.Kind) catalog.Definition {
	t.Helper()
	d, ok := catalog.Default().Lookup(k)
	require.True(t, ok, k.String())
	return d
}

// grid returns n points starting at start, step apart.
func grid(start, step float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = start + step*float64(i)
	}
	return x
}

func TestFit_RecoversGeneratingParameters(t *testing.T) {
	tests := []struct {
		kind   catalog.Kind
		params []float64
		x      []float64 // defaults to sampleX
		r2Only bool      // parameters are identifiable only up to scale
	}{
		{kind: catalog.Linear, params: []float64{2, -1}},
		{kind: catalog.Quadratic, params: []float64{0.5, -1, 2}},
		{kind: catalog.SineWave, params: []float64{1.2, 1.1, 0.2}},
		{kind: catalog.Exponential, params: []float64{1.5, 0.4}},
		{kind: catalog.Logarithmic, params: []float64{1.5, 0.8}},
		{kind: catalog.Cubic, params: []float64{0.2, -0.5, 1, 3}},
		{kind: catalog.PowerLaw, params: []float64{1.5, 1.3}},
		{kind: catalog.Gaussian, params: []float64{1.5, 0.5, 1.2}},
		{kind: catalog.Logistic, params: []float64{2, 1.5, 2}},
		{kind: catalog.Hyperbolic, params: []float64{2, 1.5}},
		{kind: catalog.CosineWave, params: []float64{1.2, 1.1, 0.2}},
		// b·x stays below π/2.
		{kind: catalog.Tangent, params: []float64{1.5, 1.2}, x: grid(0.1, 0.1, 10)},
		{kind: catalog.SquareRoot, params: []float64{2, 0.5}},
		{kind: catalog.ExponentialDecay, params: []float64{2, 0.7}},
		{kind: catalog.LogarithmicDecay, params: []float64{2, 0.5}},
		{kind: catalog.Polynomial4, params: []float64{0.05, -0.3, 0.5, 1, 2}},
		{kind: catalog.InverseSquare, params: []float64{2.5}},
		{kind: catalog.Sigmoid, params: []float64{1.5, 2}},
		{kind: catalog.Rational, params: []float64{2, 1, 0.5}, r2Only: true},
		{kind: catalog.Weibull, params: []float64{0.8, 1.3}},
		{kind: catalog.Rayleigh, params: []float64{1.5, 1.4}},
		{kind: catalog.Poisson, params: []float64{2}},
		{kind: catalog.Beta, params: []float64{2, 2.5}, x: grid(0.05, 0.1, 10)},
		{kind: catalog.Cauchy, params: []float64{1.3, 1.5}},
		{kind: catalog.Gompertz, params: []float64{2, 1.5, 1.2}},
		{kind: catalog.Hill, params: []float64{2, 1.5, 2}},
		// Both terms start from the same guess, so the curve shares one rate
		// and only the sum of the amplitudes is identifiable.
		{kind: catalog.DoubleExponential, params: []float64{0.5, 0.4, 0.5, 0.4}, r2Only: true},
		{kind: catalog.Fourier, params: []float64{1, 0.5, -0.3}},
	}
	require.Len(t, tests, catalog.Default().Len())

	f := New(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			x := tt.x
			if x == nil {
				x = sampleX()
			}
			d := lookup(t, tt.kind)
			y := d.Curve(x, tt.params)

			res := f.Fit(d, x, y)
			require.True(t, res.OK(), "fit failed: %v", res.Err)
			assert.Equal(t, d.Name, res.Model)
			require.Len(t, res.Params, len(tt.params))
			assert.InDelta(t, 1.0, res.R2, 1e-9)
			if tt.r2Only {
				return
			}
			for i := range tt.params {
				assert.InDelta(t, tt.params[i], res.Params[i], 1e-6, "param %d", i)
			}
		})
	}
}

// scaledQuadratic returns x = 1..6 and y = s·(x² − 3x + 5).
func scaledQuadratic(s float64) ([]float64, []float64) {
	x := grid(1, 1, 6)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = s * (v*v - 3*v + 5)
	}
	return x, y
}

func TestFit_SmallMagnitudeTarget(t *testing.T) {
	f := New(DefaultOptions())
	lin := lookup(t, catalog.Linear)

	x, y := scaledQuadratic(1)
	unit := f.Fit(lin, x, y)
	require.True(t, unit.OK(), "%v", unit.Err)
	require.Less(t, unit.R2, 0.95)

	for _, s := range []float64{1e-6, 1e-11, 1e-12} {
		x, y := scaledQuadratic(s)

		// R² does not depend on the units of y.
		res := f.Fit(lin, x, y)
		require.True(t, res.OK(), "scale %g: %v", s, res.Err)
		assert.InDelta(t, unit.R2, res.R2, 1e-9, "scale %g", s)

		res = f.Fit(lookup(t, catalog.Quadratic), x, y)
		require.True(t, res.OK(), "scale %g: %v", s, res.Err)
		assert.InDelta(t, 1.0, res.R2, 1e-9, "scale %g", s)
		want := []float64{s, -3 * s, 5 * s}
		for i := range want {
			assert.InEpsilon(t, want[i], res.Params[i], 1e-6, "scale %g param %d", s, i)
		}
	}
}

func TestFit_UnrelatedModelsNeverPanic(t *testing.T) {
	x := sampleX()
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3*v - 2
	}

	known := map[model.FailureKind]bool{
		model.FailureInsufficientData:    true,
		model.FailureNonFiniteEvaluation: true,
		model.FailureConvergence:         true,
		model.FailureSingularJacobian:    true,
		model.FailureDegenerateTarget:    true,
	}

	for _, method := range []Method{MethodLM, MethodNelderMead} {
		f := New(Options{Method: method})
		for _, d := range catalog.Default().All() {
			t.Run(string(method)+"/"+d.Name, func(t *testing.T) {
				var res Result
				require.NotPanics(t, func() { res = f.Fit(d, x, y) })
				if res.OK() {
					assert.LessOrEqual(t, res.R2, 1.0+1e-9)
					assert.Len(t, res.Params, d.K())
					for i, p := range res.Params {
						assert.GreaterOrEqual(t, p, d.Lower[i])
						assert.LessOrEqual(t, p, d.Upper[i])
					}
					return
				}
				assert.True(t, known[res.Err.Kind], "unexpected kind %q", res.Err.Kind)
				assert.Equal(t, d.Name, res.Err.Model)
			})
		}
	}
}

func TestFit_EndToEndLinear(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}

	res := New(DefaultOptions()).Fit(lookup(t, catalog.Linear), x, y)
	require.True(t, res.OK(), "%v", res.Err)
	assert.InDelta(t, 2.0, res.Params[0], 1e-8)
	assert.InDelta(t, 0.0, res.Params[1], 1e-8)
	assert.InDelta(t, 1.0, res.R2, 1e-12)
}

func TestFit_InsufficientData(t *testing.T) {
	f := New(DefaultOptions())

	res := f.Fit(lookup(t, catalog.Quadratic), []float64{1, 2}, []float64{1, 4})
	require.False(t, res.OK())
	assert.Equal(t, model.FailureInsufficientData, res.Err.Kind)
	assert.Equal(t, "Quadratic", res.Err.Model)
	assert.Contains(t, res.Err.Detail, "2 points for 3 parameters")

	res = f.Fit(lookup(t, catalog.Linear), []float64{1, 2, 3}, []float64{1, 2})
	require.False(t, res.OK())
	assert.Equal(t, model.FailureInsufficientData, res.Err.Kind)
}

func TestFit_NonFiniteEvaluation(t *testing.T) {
	f := New(DefaultOptions())

	// log of a non-positive x.
	res := f.Fit(lookup(t, catalog.Logarithmic), []float64{-1, 1, 2, 3}, []float64{0, 1, 2, 3})
	require.False(t, res.OK())
	assert.Equal(t, model.FailureNonFiniteEvaluation, res.Err.Kind)

	// NaN in the target.
	res = f.Fit(lookup(t, catalog.Linear), []float64{1, 2, 3}, []float64{1, math.NaN(), 3})
	require.False(t, res.OK())
	assert.Equal(t, model.FailureNonFiniteEvaluation, res.Err.Kind)
	assert.True(t, errors.Is(res.Err, &model.FitError{Kind: model.FailureNonFiniteEvaluation}))
}

func TestFit_ZeroTargetIsExact(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{0, 0, 0}

	res := New(DefaultOptions()).Fit(lookup(t, catalog.Linear), x, y)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, 1.0, res.R2)
	assert.InDelta(t, 0.0, res.Params[0], 1e-8)
	assert.InDelta(t, 0.0, res.Params[1], 1e-8)
}

func TestFit_DegenerateTarget(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{5, 5, 5}

	// a/x² cannot be constant, so SS_res stays positive while SS_tot is zero.
	res := New(DefaultOptions()).Fit(lookup(t, catalog.InverseSquare), x, y)
	require.False(t, res.OK())
	assert.Equal(t, model.FailureDegenerateTarget, res.Err.Kind)
	assert.Greater(t, res.SSRes, 0.0)
}

func TestFit_SingularJacobian(t *testing.T) {
	// Every x is zero, so the slope of a line has no effect on the residuals.
	x := []float64{0, 0, 0}
	y := []float64{1, 2, 3}

	res := New(DefaultOptions()).Fit(lookup(t, catalog.Linear), x, y)
	require.False(t, res.OK())
	assert.Equal(t, model.FailureSingularJacobian, res.Err.Kind)
}

func TestFit_ConvergenceBudget(t *testing.T) {
	x := sampleX()
	d := lookup(t, catalog.Exponential)
	y := d.Curve(x, []float64{1.5, 0.4})

	res := New(Options{MaxIterations: 1}).Fit(d, x, y)
	require.False(t, res.OK())
	assert.Equal(t, model.FailureConvergence, res.Err.Kind)
	assert.Equal(t, 1, res.Iterations)
}

func TestFit_NelderMeadLinear(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}

	res := New(Options{Method: MethodNelderMead}).Fit(lookup(t, catalog.Linear), x, y)
	require.True(t, res.OK(), "%v", res.Err)
	assert.InDelta(t, 2.0, res.Params[0], 1e-3)
	assert.InDelta(t, 0.0, res.Params[1], 1e-3)
	assert.Greater(t, res.R2, 0.9999)
}

func TestFit_RespectsBounds(t *testing.T) {
	// Decreasing data pushes the power-law exponent below its zero bound.
	x := sampleX()
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 4 / v
	}

	d := lookup(t, catalog.PowerLaw)
	res := New(DefaultOptions()).Fit(d, x, y)
	if res.OK() {
		assert.GreaterOrEqual(t, res.Params[1], 0.0)
		assert.Less(t, res.R2, 1.0)
	}
}

func TestRSquared(t *testing.T) {
	r2, ss, err := RSquared([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.Nil(t, err)
	assert.Equal(t, 1.0, r2)
	assert.Equal(t, 0.0, ss)

	r2, ss, err = RSquared([]float64{1, 2, 3}, []float64{2, 2, 2})
	require.Nil(t, err)
	assert.InDelta(t, 0.0, r2, 1e-12)
	assert.InDelta(t, 2.0, ss, 1e-12)

	_, _, err = RSquared([]float64{4, 4}, []float64{4, 5})
	require.NotNil(t, err)
	assert.Equal(t, model.FailureDegenerateTarget, err.Kind)

	r2, _, err = RSquared([]float64{0, 0, 0}, []float64{0, 0, 0})
	require.Nil(t, err)
	assert.Equal(t, 1.0, r2)

	// pF-scale data is not a constant target.
	r2, _, err = RSquared([]float64{1e-12, 2e-12, 3e-12}, []float64{2e-12, 2e-12, 2e-12})
	require.Nil(t, err)
	assert.InDelta(t, 0.0, r2, 1e-9)

	_, _, err = RSquared([]float64{3e-12, 3e-12}, []float64{3e-12, 4e-12})
	require.NotNil(t, err)
	assert.Equal(t, model.FailureDegenerateTarget, err.Kind)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodLM, m)

	m, err = ParseMethod("nelder-mead")
	require.NoError(t, err)
	assert.Equal(t, MethodNelderMead, m)

	_, err = ParseMethod("gradient-descent")
	require.Error(t, err)
}
