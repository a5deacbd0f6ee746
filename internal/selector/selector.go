// Package selector fits every catalog model to a series and keeps the best
// one by R². SelectAll applies the same selection to every series of a
// dataset, isolating failures per series.
package selector

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/capfit/internal/catalog"
	"github.com/sells-group/capfit/internal/fitter"
	"github.com/sells-group/capfit/internal/model"
)

// defaultConcurrency is used when Options.Concurrency is not positive.
const defaultConcurrency = 4

// Event reports one finished (series, model) fit.
type Event struct {
	Series string
	Model  string
	Done   int
	Total  int
	Err    *model.FitError // nil when the fit succeeded
}

// ProgressFunc receives progress events. Calls are serialised.
type ProgressFunc func(Event)

// Options configures a Selector.
type Options struct {
	Concurrency int
	Progress    ProgressFunc
}

// Selector runs model selection against one catalog.
type Selector struct {
	catalog *catalog.Catalog
	fitter  *fitter.Fitter
	opts    Options
}

// New creates a Selector.
func New(c *catalog.Catalog, f *fitter.Fitter, opts Options) *Selector {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Selector{catalog: c, fitter: f, opts: opts}
}

// SelectBest fits every catalog model to (x, y) in parallel and returns the
// selection for the series. Individual fit failures are collected, never
// returned; the error is non-nil only when ctx is cancelled.
func (s *Selector) SelectBest(ctx context.Context, series string, x, y []float64) (model.Selection, error) {
	defs := s.catalog.All()
	prog := s.tracker(len(defs))

	results := make([]fitter.Result, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, d := range defs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.fitter.Fit(d, x, y)
			prog.step(series, results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Selection{Series: series}, eris.Wrapf(err, "selector: series %q", series)
	}

	return s.pick(series, results), nil
}

// fitSequential fits every model in catalog order on the calling goroutine.
func (s *Selector) fitSequential(ctx context.Context, series string, x, y []float64, defs []catalog.Definition, prog *tracker) (model.Selection, error) {
	results := make([]fitter.Result, len(defs))
	for i, d := range defs {
		if err := ctx.Err(); err != nil {
			return model.Selection{Series: series}, err
		}
		results[i] = s.fitter.Fit(d, x, y)
		prog.step(series, results[i])
	}
	return s.pick(series, results), nil
}

// pick applies the selection rule: strictly greater R² replaces the current
// best, so ties keep the earliest model in catalog order.
func (s *Selector) pick(series string, results []fitter.Result) model.Selection {
	log := zap.L().With(zap.String("series", series))
	sel := model.Selection{Series: series}

	for _, r := range results {
		if !r.OK() {
			fe := *r.Err
			fe.Series = series
			sel.Failures = append(sel.Failures, fe)
			log.Debug("selector: fit failed",
				zap.String("model", r.Model),
				zap.String("kind", string(fe.Kind)),
				zap.String("detail", fe.Detail),
			)
			continue
		}
		if sel.Best == nil || r.R2 > sel.Best.R2 {
			sel.Best = &model.BestFitRecord{
				Series: series,
				Model:  r.Model,
				Params: r.Params,
				R2:     r.R2,
			}
		}
	}

	if sel.Best == nil {
		log.Warn("selector: no model fitted", zap.Int("failures", len(sel.Failures)))
		return sel
	}
	log.Debug("selector: best fit",
		zap.String("model", sel.Best.Model),
		zap.Float64("r2", sel.Best.R2),
		zap.Int("failures", len(sel.Failures)),
	)
	return sel
}

// tracker counts finished fits and forwards them to the progress callback.
type tracker struct {
	mu    sync.Mutex
	fn    ProgressFunc
	done  int
	total int
}

func (s *Selector) tracker(total int) *tracker {
	return &tracker{fn: s.opts.Progress, total: total}
}

func (t *tracker) step(series string, r fitter.Result) {
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	t.fn(Event{
		Series: series,
		Model:  r.Model,
		Done:   t.done,
		Total:  t.total,
		Err:    r.Err,
	})
}
