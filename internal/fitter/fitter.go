// Package fitter runs bounded nonlinear least-squares fits of one catalog
// model against one (x, y) series and scores the result by R².
package fitter

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/capfit/internal/catalog"
	"github.com/sells-group/capfit/internal/model"
)

// Method selects the minimisation algorithm.
type Method string

const (
	// MethodLM is projected Levenberg–Marquardt (default).
	MethodLM Method = "lm"
	// MethodNelderMead is gonum's derivative-free simplex search over the
	// box-projected residual sum of squares.
	MethodNelderMead Method = "nelder-mead"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodLM, "":
		return MethodLM, nil
	case MethodNelderMead:
		return MethodNelderMead, nil
	default:
		return "", eris.Errorf("fitter: unknown method %q (valid: lm, nelder-mead)", s)
	}
}

// Options tunes the solver.
type Options struct {
	Method         Method  `yaml:"method" mapstructure:"method"`
	MaxIterations  int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	FTol           float64 `yaml:"ftol" mapstructure:"ftol"` // relative reduction of SS_res
	XTol           float64 `yaml:"xtol" mapstructure:"xtol"` // relative step size
	GTol           float64 `yaml:"gtol" mapstructure:"gtol"` // max |Jᵀr| relative to ‖J‖·‖r‖
	InitialDamping float64 `yaml:"initial_damping" mapstructure:"initial_damping"`
}

// DefaultOptions returns the solver defaults.
func DefaultOptions() Options {
	return Options{
		Method:         MethodLM,
		MaxIterations:  500,
		FTol:           1e-12,
		XTol:           1e-12,
		GTol:           1e-12,
		InitialDamping: 1e-3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.FTol <= 0 {
		o.FTol = d.FTol
	}
	if o.XTol <= 0 {
		o.XTol = d.XTol
	}
	if o.GTol <= 0 {
		o.GTol = d.GTol
	}
	if o.InitialDamping <= 0 {
		o.InitialDamping = d.InitialDamping
	}
	return o
}

// Result is the outcome of one (series, model) fit. Err is nil on success.
type Result struct {
	Model      string          `json:"model"`
	Params     []float64       `json:"params,omitempty"`
	R2         float64         `json:"r2"`
	SSRes      float64         `json:"ss_res"`
	Iterations int             `json:"iterations"`
	Err        *model.FitError `json:"error,omitempty"`
}

// OK reports whether the fit succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Fitter fits catalog models. It holds no per-fit state and is safe for
// concurrent use.
type Fitter struct {
	opts Options
}

// New creates a Fitter; zero-valued options fall back to DefaultOptions.
func New(opts Options) *Fitter {
	return &Fitter{opts: opts.withDefaults()}
}

// Options returns the effective solver options.
func (f *Fitter) Options() Options {
	return f.opts
}

// Fit minimises the residual sum of squares of def against (x, y) from the
// definition's initial guess, inside its box.
func (f *Fitter) Fit(def catalog.Definition, x, y []float64) Result {
	res := Result{Model: def.Name}
	fail := func(e *model.FitError) Result {
		e.Model = def.Name
		res.Err = e
		return res
	}

	k := def.K()
	if len(x) != len(y) {
		return fail(model.NewFitError(model.FailureInsufficientData, "x has %d points, y has %d", len(x), len(y)))
	}
	if len(x) < k {
		return fail(model.NewFitError(model.FailureInsufficientData, "%d points for %d parameters", len(x), k))
	}
	for i, v := range y {
		if !isFinite(v) {
			return fail(model.NewFitError(model.FailureNonFiniteEvaluation, "y[%d] is %v", i, v))
		}
	}

	p := &problem{
		def: def,
		x:   append([]float64(nil), x...),
		y:   append([]float64(nil), y...),
	}

	var (
		params []float64
		iters  int
		ferr   *model.FitError
	)
	switch f.opts.Method {
	case MethodNelderMead:
		params, iters, ferr = f.simplex(p)
	default:
		params, iters, ferr = f.levenbergMarquardt(p)
	}
	res.Iterations = iters
	if ferr != nil {
		return fail(ferr)
	}

	pred := def.Curve(p.x, params)
	for i, v := range pred {
		if !isFinite(v) {
			return fail(model.NewFitError(model.FailureNonFiniteEvaluation, "fitted curve is %v at x=%v", v, p.x[i]))
		}
	}

	r2, ssRes, gerr := RSquared(p.y, pred)
	res.SSRes = ssRes
	if gerr != nil {
		return fail(gerr)
	}
	res.Params = params
	res.R2 = r2
	return res
}

// problem binds a definition to one series.
type problem struct {
	def  catalog.Definition
	x, y []float64
}

// residuals writes f(x_i; params) - y_i into dst and reports whether every
// entry is finite.
func (p *problem) residuals(dst, params []float64) bool {
	ok := true
	for i, xi := range p.x {
		dst[i] = p.def.Eval(xi, params) - p.y[i]
		if !isFinite(dst[i]) {
			ok = false
		}
	}
	return ok
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
