package fitter

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/sells-group/capfit/internal/model"
)

// simplex minimises Σr² with gonum's Nelder–Mead. The objective is evaluated
// at the box projection of each vertex, so the returned point is feasible.
func (f *Fitter) simplex(p *problem) ([]float64, int, *model.FitError) {
	n := len(p.x)
	start := append([]float64(nil), p.def.Guess...)
	p.def.Clamp(start)

	r := make([]float64, n)
	if !p.residuals(r, start) {
		return nil, 0, model.NewFitError(model.FailureNonFiniteEvaluation, "model is not finite at initial guess %v", start)
	}

	q := make([]float64, len(start))
	objective := func(params []float64) float64 {
		copy(q, params)
		p.def.Clamp(q)
		if !p.residuals(r, q) {
			return math.Inf(1)
		}
		return floats.Dot(r, r)
	}

	// Simplex steps are cheap and many; the budget is scaled accordingly and
	// the absolute tolerance tracks the magnitude of y.
	settings := &optimize.Settings{
		MajorIterations: 10 * f.opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   f.opts.FTol * magnitude(p.y),
			Relative:   f.opts.FTol,
			Iterations: 20,
		},
	}
	res, err := optimize.Minimize(optimize.Problem{Func: objective}, start, settings, &optimize.NelderMead{})
	if res == nil {
		return nil, 0, model.NewFitError(model.FailureConvergence, "nelder-mead: %v", err)
	}
	iters := res.Stats.MajorIterations

	switch res.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit, optimize.Failure:
		return nil, iters, model.NewFitError(model.FailureConvergence,
			"nelder-mead stopped with status %v after %d iterations", res.Status, iters)
	}
	if err != nil {
		return nil, iters, model.NewFitError(model.FailureConvergence, "nelder-mead: %v", err)
	}
	if math.IsInf(res.F, 1) {
		return nil, iters, model.NewFitError(model.FailureNonFiniteEvaluation, "nelder-mead found no finite point")
	}

	params := append([]float64(nil), res.X...)
	p.def.Clamp(params)
	return params, iters, nil
}
