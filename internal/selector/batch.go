package selector

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/capfit/internal/model"
)

// SelectAll runs model selection independently for every series of ds.
// A malformed dataset is rejected before any fitting starts. A series for
// which no model fits is returned with a nil Best; it never aborts the
// others.
func (s *Selector) SelectAll(ctx context.Context, ds *model.Dataset) (map[string]model.Selection, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	defs := s.catalog.All()
	prog := s.tracker(len(defs) * len(ds.Series))
	out := make([]model.Selection, len(ds.Series))

	log := zap.L().With(zap.String("component", "selector.batch"))
	log.Info("fitting dataset",
		zap.Int("series", len(ds.Series)),
		zap.Int("models", len(defs)),
		zap.Int("points", len(ds.X)),
		zap.Int("concurrency", s.opts.Concurrency),
	)

	var found, missing atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, series := range ds.Series {
		g.Go(func() error {
			sel, err := s.fitSequential(gctx, series.Name, ds.X, series.Y, defs, prog)
			if err != nil {
				return err
			}
			out[i] = sel
			if sel.Found() {
				found.Add(1)
			} else {
				missing.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "selector: batch")
	}

	log.Info("dataset fitted",
		zap.Int64("found", found.Load()),
		zap.Int64("no_fit", missing.Load()),
	)

	result := make(map[string]model.Selection, len(out))
	for _, sel := range out {
		result[sel.Series] = sel
	}
	return result, nil
}
