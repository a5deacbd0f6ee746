package report

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/capfit/internal/aggregate"
	"github.com/sells-group/capfit/internal/model"
)

func fixture(t *testing.T) (*model.Dataset, map[string]model.Selection, *aggregate.Result) {
	t.Helper()
	nan := math.NaN()
	ds, err := model.NewDataset([]float64{1, 2, 3},
		model.Series{Name: "B", Y: []float64{nan, nan, nan}},
		model.Series{Name: "A", Y: []float64{2, 4, 6}},
	)
	require.NoError(t, err)

	selections := map[string]model.Selection{
		"A": {
			Series: "A",
			Best:   &model.BestFitRecord{Series: "A", Model: "Linear", Params: []float64{2, 0}, R2: 1},
			Failures: []model.FitError{
				{Kind: model.FailureConvergence, Series: "A", Model: "Gaussian", Detail: "no convergence after 500 iterations"},
			},
		},
		"B": {
			Series: "B",
			Failures: []model.FitError{
				{Kind: model.FailureNonFiniteEvaluation, Series: "B", Model: "Linear", Detail: "y[0] is NaN"},
			},
		},
	}
	agg := &aggregate.Result{
		Curves: []model.ConsensusCurve{
			{Strategy: "Simple Average", Y: []float64{2, 4, 6}},
			{Strategy: "Harmonic Mean", Y: []float64{nan, 4, 6}},
		},
		Skipped: []model.FitError{
			{Kind: model.FailureAggregationSkipped, Strategy: "Polynomial Regression", Detail: "degree 4 needs 5 distinct x values, have 3"},
		},
	}
	return ds, selections, agg
}

func TestBuild(t *testing.T) {
	ds, sel, agg := fixture(t)

	r := Build(ds, sel, agg, Meta{Source: "cells.csv", Method: "lm"})

	_, err := uuid.Parse(r.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "cells.csv", r.Source)
	assert.Equal(t, "lm", r.Method)
	assert.Equal(t, 3, r.Points)
	assert.Equal(t, Fingerprint(ds), r.Fingerprint)

	require.Len(t, r.Series, 2)
	assert.Equal(t, "B", r.Series[0].Name)
	assert.False(t, r.Series[0].Found)
	assert.Equal(t, "A", r.Series[1].Name)
	assert.True(t, r.Series[1].Found)
	assert.Equal(t, "Linear", r.Series[1].Model)

	kinds := make([]model.FailureKind, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		kinds[i] = d.Kind
	}
	assert.Equal(t, []model.FailureKind{
		model.FailureNonFiniteEvaluation,
		model.FailureConvergence,
		model.FailureNoFitFound,
		model.FailureAggregationSkipped,
	}, kinds)

	assert.Equal(t, ds.X, r.X)
	assert.Len(t, r.Consensus, 2)
}

func TestBuild_WithoutAggregation(t *testing.T) {
	ds, sel, _ := fixture(t)
	r := Build(ds, sel, nil, Meta{})
	assert.Nil(t, r.X)
	assert.Empty(t, r.Consensus)
	assert.Len(t, r.Diagnostics, 3)
}

func TestBuild_RunIDsAreUnique(t *testing.T) {
	ds, sel, _ := fixture(t)
	assert.NotEqual(t, Build(ds, sel, nil, Meta{}).RunID, Build(ds, sel, nil, Meta{}).RunID)
}

func TestFingerprint(t *testing.T) {
	ds, _, _ := fixture(t)
	fp := Fingerprint(ds)
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, Fingerprint(ds))

	other, err := model.NewDataset([]float64{1, 2, 3},
		model.Series{Name: "B", Y: []float64{math.NaN(), math.NaN(), math.NaN()}},
		model.Series{Name: "A", Y: []float64{2, 4, 7}},
	)
	require.NoError(t, err)
	assert.NotEqual(t, fp, Fingerprint(other))

	renamed, err := model.NewDataset([]float64{1, 2, 3},
		model.Series{Name: "B", Y: []float64{math.NaN(), math.NaN(), math.NaN()}},
		model.Series{Name: "C", Y: []float64{2, 4, 6}},
	)
	require.NoError(t, err)
	assert.NotEqual(t, fp, Fingerprint(renamed))
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "json", "yaml", "JSON"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestWriteJSON(t *testing.T) {
	ds, sel, agg := fixture(t)
	r := Build(ds, sel, agg, Meta{Source: "cells.csv"})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, FormatJSON))

	var decoded struct {
		RunID     string `json:"run_id"`
		Series    []SeriesReport
		Consensus []struct {
			Strategy string     `json:"strategy"`
			Y        []*float64 `json:"y"`
		} `json:"consensus"`
		Diagnostics []model.FitError `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Len(t, decoded.Series, 2)
	require.Len(t, decoded.Consensus, 2)
	assert.Nil(t, decoded.Consensus[1].Y[0], "NaN should encode as null")
	require.NotNil(t, decoded.Consensus[1].Y[1])
	assert.Equal(t, 4.0, *decoded.Consensus[1].Y[1])
	assert.Len(t, decoded.Diagnostics, 4)
}

func TestWriteYAML(t *testing.T) {
	ds, sel, agg := fixture(t)
	r := Build(ds, sel, agg, Meta{})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded["run_id"])
	assert.Len(t, decoded["series"], 2)
	assert.Contains(t, buf.String(), ".nan")
}

func TestWriteText(t *testing.T) {
	ds, sel, agg := fixture(t)
	r := Build(ds, sel, agg, Meta{Source: "cells.csv", Method: "lm"})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, FormatText))
	out := buf.String()

	assert.Contains(t, out, r.RunID)
	assert.Contains(t, out, "cells.csv")
	assert.Contains(t, out, "SERIES")
	assert.Contains(t, out, "Linear")
	assert.Contains(t, out, "1.000000")
	assert.Contains(t, out, "SIMPLE AVERAGE")
	assert.Contains(t, out, "NaN")
	assert.Contains(t, out, "no_fit_found")
	assert.Contains(t, out, "Polynomial Regression")
}

func TestWriteUnknownFormat(t *testing.T) {
	ds, sel, _ := fixture(t)
	err := Write(&bytes.Buffer{}, Build(ds, sel, nil, Meta{}), Format("csv"))
	require.Error(t, err)
}
