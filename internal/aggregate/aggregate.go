// Package aggregate combines the best-fit curves of many series into named
// consensus curves, one per strategy.
package aggregate

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/capfit/internal/catalog"
	"github.com/sells-group/capfit/internal/model"
)

// Options tunes the parameterised strategies.
type Options struct {
	EWMAAlpha      float64 `yaml:"ewma_alpha" mapstructure:"ewma_alpha"`
	TrimFraction   float64 `yaml:"trim_fraction" mapstructure:"trim_fraction"`
	WinsorFraction float64 `yaml:"winsor_fraction" mapstructure:"winsor_fraction"`
	PolyDegree     int     `yaml:"poly_degree" mapstructure:"poly_degree"`
}

// DefaultOptions returns α = 0.2, a 10% trim, a 5% winsorization and a
// quartic polynomial.
func DefaultOptions() Options {
	return Options{
		EWMAAlpha:      0.2,
		TrimFraction:   0.1,
		WinsorFraction: 0.05,
		PolyDegree:     4,
	}
}

// Validate checks that every option is inside its usable range.
func (o Options) Validate() error {
	if o.EWMAAlpha <= 0 || o.EWMAAlpha > 1 {
		return eris.Errorf("aggregate: ewma_alpha %v outside (0, 1]", o.EWMAAlpha)
	}
	if o.TrimFraction < 0 || o.TrimFraction >= 0.5 {
		return eris.Errorf("aggregate: trim_fraction %v outside [0, 0.5)", o.TrimFraction)
	}
	if o.WinsorFraction < 0 || o.WinsorFraction >= 0.5 {
		return eris.Errorf("aggregate: winsor_fraction %v outside [0, 0.5)", o.WinsorFraction)
	}
	if o.PolyDegree < 1 {
		return eris.Errorf("aggregate: poly_degree %d must be at least 1", o.PolyDegree)
	}
	return nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.EWMAAlpha == 0 {
		o.EWMAAlpha = d.EWMAAlpha
	}
	if o.TrimFraction == 0 {
		o.TrimFraction = d.TrimFraction
	}
	if o.WinsorFraction == 0 {
		o.WinsorFraction = d.WinsorFraction
	}
	if o.PolyDegree == 0 {
		o.PolyDegree = d.PolyDegree
	}
	return o
}

// Result holds the consensus curves in strategy order plus one
// aggregation_skipped diagnostic per strategy that could not run.
type Result struct {
	Curves  []model.ConsensusCurve `json:"curves" yaml:"curves"`
	Skipped []model.FitError       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Empty reports whether nothing was aggregated.
func (r Result) Empty() bool {
	return len(r.Curves) == 0 && len(r.Skipped) == 0
}

// Map returns the strategy name to curve mapping.
func (r Result) Map() map[string][]float64 {
	out := make(map[string][]float64, len(r.Curves))
	for _, c := range r.Curves {
		out[c.Strategy] = c.Y
	}
	return out
}

// Curve returns the curve produced by the named strategy.
func (r Result) Curve(strategy string) ([]float64, bool) {
	for _, c := range r.Curves {
		if c.Strategy == strategy {
			return c.Y, true
		}
	}
	return nil, false
}

// Aggregator evaluates best-fit records against a catalog and runs every
// strategy over the resulting curves.
type Aggregator struct {
	catalog    *catalog.Catalog
	opts       Options
	strategies []strategy
}

// New creates an Aggregator. Zero-valued options fall back to DefaultOptions.
func New(c *catalog.Catalog, opts Options) *Aggregator {
	opts = opts.withDefaults()
	return &Aggregator{
		catalog:    c,
		opts:       opts,
		strategies: registry(opts),
	}
}

// Strategies returns the strategy names in output order.
func (a *Aggregator) Strategies() []string {
	out := make([]string, len(a.strategies))
	for i, s := range a.strategies {
		out[i] = s.name
	}
	return out
}

// Aggregate evaluates each record's model over x and combines the curves.
// Records are processed in series-name order. No records yields an empty
// Result; a record whose model is unknown, or whose parameter count does not
// match the model, is an error.
func (a *Aggregator) Aggregate(x []float64, records []model.BestFitRecord) (Result, error) {
	log := zap.L().With(zap.String("component", "aggregate"))
	if len(records) == 0 {
		log.Info("nothing to aggregate")
		return Result{}, nil
	}
	if len(x) == 0 {
		return Result{}, eris.Wrap(model.ErrMalformedDataset, "aggregate: no x values")
	}

	ordered := append([]model.BestFitRecord(nil), records...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Series < ordered[j].Series
	})

	in := &input{
		x:       append([]float64(nil), x...),
		curves:  make([][]float64, len(ordered)),
		weights: make([]float64, len(ordered)),
	}
	for i, rec := range ordered {
		def, err := a.catalog.Get(rec.Model)
		if err != nil {
			return Result{}, eris.Wrapf(err, "aggregate: series %q", rec.Series)
		}
		if len(rec.Params) != def.K() {
			return Result{}, eris.Errorf("aggregate: series %q has %d params, %s takes %d",
				rec.Series, len(rec.Params), def.Name, def.K())
		}
		in.curves[i] = def.Curve(in.x, rec.Params)
		in.weights[i] = rec.R2
	}

	var res Result
	for _, s := range a.strategies {
		y, skip := s.run(in)
		if skip != nil {
			skip.Kind = model.FailureAggregationSkipped
			skip.Strategy = s.name
			res.Skipped = append(res.Skipped, *skip)
			log.Debug("aggregate: strategy skipped",
				zap.String("strategy", s.name),
				zap.String("detail", skip.Detail),
			)
			continue
		}
		res.Curves = append(res.Curves, model.ConsensusCurve{Strategy: s.name, Y: y})
	}

	log.Info("aggregated",
		zap.Int("records", len(ordered)),
		zap.Int("points", len(x)),
		zap.Int("curves", len(res.Curves)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}
