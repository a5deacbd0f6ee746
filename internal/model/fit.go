package model

import "fmt"

// BestFitRecord is the highest-R² successful fit for one series.
type BestFitRecord struct {
	Series string    `json:"series" yaml:"series"`
	Model  string    `json:"model" yaml:"model"`
	Params []float64 `json:"params" yaml:"params"`
	R2     float64   `json:"r2" yaml:"r2"`
}

// Selection is the outcome of model selection for one series. Best is nil
// when every model failed; Failures lists each failed model in catalog order.
type Selection struct {
	Series   string         `json:"series" yaml:"series"`
	Best     *BestFitRecord `json:"best,omitempty" yaml:"best,omitempty"`
	Failures []FitError     `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Found reports whether a best fit was selected.
func (s Selection) Found() bool {
	return s.Best != nil
}

// Err returns a no_fit_found FitError when no model fitted, nil otherwise.
func (s Selection) Err() error {
	if s.Best != nil {
		return nil
	}
	return &FitError{
		Kind:   FailureNoFitFound,
		Series: s.Series,
		Detail: fmt.Sprintf("all %d models failed", len(s.Failures)),
	}
}

// Records extracts the successful best-fit records from a batch of selections.
func Records(selections map[string]Selection) []BestFitRecord {
	out := make([]BestFitRecord, 0, len(selections))
	for _, s := range selections {
		if s.Best != nil {
			out = append(out, *s.Best)
		}
	}
	return out
}

// ConsensusCurve is one aggregation strategy's y-vector over the dataset x.
type ConsensusCurve struct {
	Strategy string    `json:"strategy" yaml:"strategy"`
	Y        []float64 `json:"y" yaml:"y"`
}
