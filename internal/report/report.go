// Package report assembles the results of a fitting run into plain data and
// renders it as JSON, YAML or an aligned text table.
package report

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/sells-group/capfit/internal/aggregate"
	"github.com/sells-group/capfit/internal/model"
)

// Meta describes how a run was produced.
type Meta struct {
	Source string
	Method string
}

// SeriesReport is the outcome for one series.
type SeriesReport struct {
	Name     string    `json:"name" yaml:"name"`
	Model    string    `json:"model,omitempty" yaml:"model,omitempty"`
	Params   []float64 `json:"params,omitempty" yaml:"params,omitempty"`
	R2       float64   `json:"r2" yaml:"r2"`
	Found    bool      `json:"found" yaml:"found"`
	Failures int       `json:"failures" yaml:"failures"`
}

// Report is everything a display collaborator needs from one run.
type Report struct {
	RunID       string                 `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time              `json:"generated_at" yaml:"generated_at"`
	Source      string                 `json:"source,omitempty" yaml:"source,omitempty"`
	Fingerprint string                 `json:"fingerprint" yaml:"fingerprint"`
	Method      string                 `json:"method,omitempty" yaml:"method,omitempty"`
	Points      int                    `json:"points" yaml:"points"`
	Series      []SeriesReport         `json:"series" yaml:"series"`
	X           []float64              `json:"x,omitempty" yaml:"x,omitempty"`
	Consensus   []model.ConsensusCurve `json:"consensus,omitempty" yaml:"consensus,omitempty"`
	Diagnostics []model.FitError       `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Build assembles a report. Series follow dataset order. Diagnostics list
// every failed fit, then one no_fit_found per series without a best fit, then
// skipped strategies. agg may be nil when no aggregation was requested.
func Build(ds *model.Dataset, selections map[string]model.Selection, agg *aggregate.Result, meta Meta) *Report {
	r := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Source:      meta.Source,
		Fingerprint: Fingerprint(ds),
		Method:      meta.Method,
		Points:      len(ds.X),
	}

	var missing []model.FitError
	for _, name := range ds.Names() {
		sel, ok := selections[name]
		sr := SeriesReport{Name: name}
		if ok {
			sr.Failures = len(sel.Failures)
			r.Diagnostics = append(r.Diagnostics, sel.Failures...)
			if sel.Best != nil {
				sr.Found = true
				sr.Model = sel.Best.Model
				sr.Params = sel.Best.Params
				sr.R2 = sel.Best.R2
			}
		}
		if !sr.Found {
			missing = append(missing, model.FitError{
				Kind:   model.FailureNoFitFound,
				Series: name,
				Detail: fmt.Sprintf("all %d models failed", sr.Failures),
			})
		}
		r.Series = append(r.Series, sr)
	}
	r.Diagnostics = append(r.Diagnostics, missing...)

	if agg != nil && !agg.Empty() {
		r.X = ds.X
		r.Consensus = agg.Curves
		r.Diagnostics = append(r.Diagnostics, agg.Skipped...)
	}
	return r
}

// Fingerprint hashes the dataset's x values, series names and y values so two
// reports can be matched to the same input. NaN cells hash by bit pattern.
func Fingerprint(ds *model.Dataset) string {
	h := xxhash.New()
	var buf [8]byte
	writeFloats := func(vs []float64) {
		for _, v := range vs {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			_, _ = h.Write(buf[:])
		}
	}

	writeFloats(ds.X)
	for _, s := range ds.Series {
		_, _ = h.WriteString(s.Name)
		_, _ = h.Write([]byte{0})
		writeFloats(s.Y)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
