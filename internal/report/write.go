package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Format selects a renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", eris.Errorf("report: unknown format %q (valid: text, json, yaml)", s)
	}
}

// Write renders r to w.
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sanitize(r)); err != nil {
			return eris.Wrap(err, "report: encode json")
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	case FormatText, "":
		return writeText(w, r)
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

// sanitize returns a copy of r whose float slices encode as JSON. NaN and
// ±Inf have no JSON representation, so they become null.
func sanitize(r *Report) any {
	type jsonCurve struct {
		Strategy string     `json:"strategy"`
		Y        []*float64 `json:"y"`
	}
	type jsonReport struct {
		*Report
		X         []*float64  `json:"x,omitempty"`
		Consensus []jsonCurve `json:"consensus,omitempty"`
	}

	out := jsonReport{Report: r, X: nullable(r.X)}
	for _, c := range r.Consensus {
		out.Consensus = append(out.Consensus, jsonCurve{Strategy: c.Strategy, Y: nullable(c.Y)})
	}
	return out
}

func nullable(vs []float64) []*float64 {
	if vs == nil {
		return nil
	}
	out := make([]*float64, len(vs))
	for i, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &vs[i]
	}
	return out
}

func writeText(out io.Writer, r *Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.RunID)
	if r.Source != "" {
		_, _ = fmt.Fprintf(w, "Source:\t%s\n", r.Source)
	}
	_, _ = fmt.Fprintf(w, "Fingerprint:\t%s\n", r.Fingerprint)
	if r.Method != "" {
		_, _ = fmt.Fprintf(w, "Method:\t%s\n", r.Method)
	}
	_, _ = fmt.Fprintf(w, "Points:\t%d\n", r.Points)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "SERIES\tMODEL\tR2\tPARAMS\tFAILED")
	for _, s := range r.Series {
		if !s.Found {
			_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\t%d\n", s.Name, s.Failures)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.6f\t%s\t%d\n", s.Name, s.Model, s.R2, formatFloats(s.Params), s.Failures)
	}

	if len(r.Consensus) > 0 {
		_, _ = fmt.Fprintln(w)
		header := []string{"X"}
		for _, c := range r.Consensus {
			header = append(header, strings.ToUpper(c.Strategy))
		}
		_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
		for i, x := range r.X {
			row := []string{formatFloat(x)}
			for _, c := range r.Consensus {
				row = append(row, formatFloat(c.Y[i]))
			}
			_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
		}
	}

	if len(r.Diagnostics) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "KIND\tSERIES\tMODEL/STRATEGY\tDETAIL")
		for _, d := range r.Diagnostics {
			subject := d.Model
			if subject == "" {
				subject = d.Strategy
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Kind, dash(d.Series), dash(subject), d.Detail)
		}
	}

	return eris.Wrap(w.Flush(), "report: flush table")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
