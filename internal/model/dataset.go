// Package model holds the plain data shared by the fitting packages:
// datasets, best-fit records, consensus curves and the failure taxonomy.
package model

import (
	"errors"
	"math"

	"github.com/rotisserie/eris"
)

// ErrMalformedDataset is returned when a dataset cannot be fitted at all:
// no x values, a non-finite x, no series, duplicate names or mismatched
// lengths.
var ErrMalformedDataset = errors.New("malformed dataset")

// Series is one named y-vector sharing the dataset's x-vector.
type Series struct {
	Name string    `json:"name" yaml:"name"`
	Y    []float64 `json:"y" yaml:"y"`
}

// Dataset is an x-vector plus an ordered set of uniquely named y-series.
// Y values may be NaN (blank cells); they surface later as fit failures.
type Dataset struct {
	X      []float64 `json:"x" yaml:"x"`
	Series []Series  `json:"series" yaml:"series"`
}

// NewDataset builds and validates a dataset.
func NewDataset(x []float64, series ...Series) (*Dataset, error) {
	ds := &Dataset{X: x, Series: series}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks the structural invariants of the dataset.
func (d *Dataset) Validate() error {
	if d == nil || len(d.X) == 0 {
		return eris.Wrap(ErrMalformedDataset, "dataset: no x values")
	}
	for i, x := range d.X {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return eris.Wrapf(ErrMalformedDataset, "dataset: x[%d] is %v", i, x)
		}
	}
	if len(d.Series) == 0 {
		return eris.Wrap(ErrMalformedDataset, "dataset: no series")
	}
	seen := make(map[string]bool, len(d.Series))
	for _, s := range d.Series {
		if s.Name == "" {
			return eris.Wrap(ErrMalformedDataset, "dataset: series with empty name")
		}
		if seen[s.Name] {
			return eris.Wrapf(ErrMalformedDataset, "dataset: duplicate series %q", s.Name)
		}
		seen[s.Name] = true
		if len(s.Y) != len(d.X) {
			return eris.Wrapf(ErrMalformedDataset, "dataset: series %q has %d values, x has %d", s.Name, len(s.Y), len(d.X))
		}
	}
	return nil
}

// Names returns the series names in dataset order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Series))
	for i, s := range d.Series {
		out[i] = s.Name
	}
	return out
}

// Lookup returns the y-vector of the named series.
func (d *Dataset) Lookup(name string) ([]float64, bool) {
	for _, s := range d.Series {
		if s.Name == name {
			return s.Y, true
		}
	}
	return nil, false
}
