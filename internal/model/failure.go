package model

import (
	"fmt"
	"strings"
)

// FailureKind classifies why a fit, a selection or an aggregation strategy
// produced no result.
type FailureKind string

const (
	FailureInsufficientData    FailureKind = "insufficient_data"
	FailureNonFiniteEvaluation FailureKind = "non_finite_evaluation"
	FailureConvergence         FailureKind = "convergence_failure"
	FailureSingularJacobian    FailureKind = "singular_jacobian"
	FailureDegenerateTarget    FailureKind = "degenerate_target"
	FailureNoFitFound          FailureKind = "no_fit_found"
	FailureAggregationSkipped  FailureKind = "aggregation_skipped"
)

// FitError is a recoverable failure carrying the context needed to render a
// diagnostic: which series, which model (or strategy) and why.
type FitError struct {
	Kind     FailureKind `json:"kind" yaml:"kind"`
	Series   string      `json:"series,omitempty" yaml:"series,omitempty"`
	Model    string      `json:"model,omitempty" yaml:"model,omitempty"`
	Strategy string      `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Detail   string      `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (e *FitError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	var ctx []string
	if e.Series != "" {
		ctx = append(ctx, fmt.Sprintf("series=%q", e.Series))
	}
	if e.Model != "" {
		ctx = append(ctx, fmt.Sprintf("model=%q", e.Model))
	}
	if e.Strategy != "" {
		ctx = append(ctx, fmt.Sprintf("strategy=%q", e.Strategy))
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, " "))
		b.WriteString(")")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Is matches another *FitError by kind, so errors.Is(err, &FitError{Kind: k})
// tests the failure class.
func (e *FitError) Is(target error) bool {
	t, ok := target.(*FitError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewFitError creates a FitError with a formatted detail.
func NewFitError(kind FailureKind, format string, args ...any) *FitError {
	return &FitError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
