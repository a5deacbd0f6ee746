package main

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/capfit/internal/selector"
)

// newProgressLogger logs selector progress at most once per interval, plus
// the final event. A non-positive interval logs every event.
func newProgressLogger(interval time.Duration) selector.ProgressFunc {
	sometimes := &rate.Sometimes{Interval: interval}
	if interval <= 0 {
		sometimes = &rate.Sometimes{Every: 1}
	}
	log := zap.L().With(zap.String("component", "progress"))

	return func(e selector.Event) {
		if e.Done == e.Total {
			log.Info("fitting complete", zap.Int("fits", e.Total))
			return
		}
		sometimes.Do(func() {
			log.Info("fitting",
				zap.Int("done", e.Done),
				zap.Int("total", e.Total),
				zap.String("series", e.Series),
				zap.String("model", e.Model),
			)
		})
	}
}
