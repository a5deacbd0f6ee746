package fitter

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/capfit/internal/model"
)

const (
	// maxDampingAttempts bounds the rejected trial steps per iteration.
	maxDampingAttempts = 40
	minDamping         = 1e-15
	// exactCost, relative to Σy², stops the solver once the residual is
	// numerically zero.
	exactCost = 1e-30
)

// levenbergMarquardt minimises Σr² with Marquardt diagonal scaling. Trial
// points are projected onto the box; a trial that evaluates non-finite is
// rejected like an uphill step.
func (f *Fitter) levenbergMarquardt(p *problem) ([]float64, int, *model.FitError) {
	n, k := len(p.x), p.def.K()
	opts := f.opts

	params := append([]float64(nil), p.def.Guess...)
	p.def.Clamp(params)

	r := make([]float64, n)
	if !p.residuals(r, params) {
		return nil, 0, model.NewFitError(model.FailureNonFiniteEvaluation, "model is not finite at initial guess %v", params)
	}
	ss := floats.Dot(r, r)
	costFloor := exactCost * magnitude(p.y)

	jac := mat.NewDense(n, k, nil)
	trial := make([]float64, k)
	rt := make([]float64, n)
	step := make([]float64, k)
	lambda := opts.InitialDamping
	nu := 2.0

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if ss <= costFloor {
			return params, iter - 1, nil
		}

		if ferr := jacobian(jac, p, params, r); ferr != nil {
			return nil, iter, ferr
		}
		for j := 0; j < k; j++ {
			if floats.Norm(mat.Col(nil, j, jac), 2) == 0 {
				return nil, iter, model.NewFitError(model.FailureSingularJacobian,
					"parameter %d has no effect on the residuals at %v", j, params)
			}
		}

		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		g := mat.NewVecDense(k, nil)
		g.MulVec(jac.T(), mat.NewVecDense(n, r))
		// Stationary once Jᵀr is negligible against ‖J‖·‖r‖.
		if mat.Norm(g, math.Inf(1)) <= opts.GTol*mat.Norm(jac, 2)*math.Sqrt(ss) {
			return params, iter, nil
		}

		accepted := false
		factorized := false
		nonFinite := 0
		for attempt := 0; attempt < maxDampingAttempts; attempt++ {
			delta, ok := dampedStep(&jtj, g, lambda)
			if !ok {
				lambda *= nu
				nu *= 2
				continue
			}
			factorized = true

			for j := 0; j < k; j++ {
				trial[j] = params[j] - delta.AtVec(j)
			}
			p.def.Clamp(trial)
			floats.SubTo(step, trial, params)
			stepNorm := floats.Norm(step, 2)
			small := stepNorm <= opts.XTol*(floats.Norm(params, 2)+opts.XTol)

			if !p.residuals(rt, trial) {
				nonFinite++
				if small {
					return params, iter, nil
				}
				lambda *= nu
				nu *= 2
				continue
			}

			ssT := floats.Dot(rt, rt)
			if ssT < ss {
				// Gain ratio against the linearised model.
				predicted := 0.0
				for j := 0; j < k; j++ {
					dj := delta.AtVec(j)
					predicted += dj * (lambda*jtj.At(j, j)*dj + g.AtVec(j))
				}
				rho := (ss - ssT) / predicted
				if predicted <= 0 || math.IsNaN(rho) {
					rho = 1
				}
				lambda = math.Max(minDamping, lambda*math.Max(1.0/3, 1-math.Pow(2*rho-1, 3)))
				nu = 2

				fconv := ss-ssT <= opts.FTol*ss
				copy(params, trial)
				copy(r, rt)
				ss = ssT
				accepted = true
				if small || fconv {
					return params, iter, nil
				}
				break
			}

			if small {
				return params, iter, nil
			}
			lambda *= nu
			nu *= 2
		}

		if !accepted {
			switch {
			case !factorized:
				return nil, iter, model.NewFitError(model.FailureSingularJacobian,
					"normal equations could not be factorised at %v", params)
			case nonFinite == maxDampingAttempts:
				return nil, iter, model.NewFitError(model.FailureNonFiniteEvaluation,
					"every trial step from %v evaluated non-finite", params)
			default:
				return nil, iter, model.NewFitError(model.FailureConvergence,
					"no downhill step from %v after %d damping increases", params, maxDampingAttempts)
			}
		}
	}

	return nil, opts.MaxIterations, model.NewFitError(model.FailureConvergence,
		"no convergence after %d iterations (SS_res=%g)", opts.MaxIterations, ss)
}

// dampedStep solves (JᵀJ + λ·diag(JᵀJ))δ = Jᵀr.
func dampedStep(jtj *mat.SymDense, g *mat.VecDense, lambda float64) (*mat.VecDense, bool) {
	k := jtj.SymmetricDim()
	a := mat.NewSymDense(k, nil)
	a.CopySym(jtj)
	for i := 0; i < k; i++ {
		a.SetSym(i, i, jtj.At(i, i)*(1+lambda))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, false
	}
	delta := mat.NewVecDense(k, nil)
	if err := chol.SolveVecTo(delta, g); err != nil {
		return nil, false
	}
	if !allFinite(delta.RawVector().Data) {
		return nil, false
	}
	return delta, true
}

// jacobian fills dst with ∂r/∂p by central differences, falling back to
// forward differences when the central stencil leaves the model's domain.
func jacobian(dst *mat.Dense, p *problem, params, r []float64) *model.FitError {
	fn := func(y, x []float64) { p.residuals(y, x) }

	fd.Jacobian(dst, fn, params, &fd.JacobianSettings{Formula: fd.Central})
	if allFinite(dst.RawMatrix().Data) {
		return nil
	}

	fd.Jacobian(dst, fn, params, &fd.JacobianSettings{Formula: fd.Forward, OriginValue: r})
	if allFinite(dst.RawMatrix().Data) {
		return nil
	}
	return model.NewFitError(model.FailureNonFiniteEvaluation, "jacobian is not finite at %v", params)
}
