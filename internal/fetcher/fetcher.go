// Package fetcher loads tabular measurement files (CSV and XLSX) into
// datasets. The first column holds x; every further column is a named series.
package fetcher

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/capfit/internal/model"
)

// Format identifies a supported input file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat infers the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("fetcher: unsupported file type %q", filepath.Ext(path))
	}
}

// LoadOptions configures LoadDataset.
type LoadOptions struct {
	Format     Format // empty means detect from the extension
	Charset    string // CSV only, e.g. "windows-1252"; empty means UTF-8
	Delimiter  rune   // CSV only; default ',' (tab for TSV)
	SheetName  string // XLSX only; overrides SheetIndex
	SheetIndex int
}

// LoadDataset reads path into a validated dataset. The first row is the
// header; blank cells become NaN and blank rows are skipped.
func LoadDataset(ctx context.Context, path string, opts LoadOptions) (*model.Dataset, error) {
	format := opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		rowCh <-chan []string
		errCh <-chan error
	)
	switch format {
	case FormatCSV, FormatTSV:
		f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		defer f.Close() //nolint:errcheck

		delim := opts.Delimiter
		if delim == 0 && format == FormatTSV {
			delim = '\t'
		}
		rowCh, errCh = StreamCSV(ctx, f, CSVOptions{
			Delimiter: delim,
			Charset:   opts.Charset,
			Comment:   '#',
			TrimSpace: true,
		})
	case FormatXLSX:
		rowCh, errCh = StreamXLSX(ctx, path, XLSXOptions{
			SheetName:  opts.SheetName,
			SheetIndex: opts.SheetIndex,
		})
	default:
		return nil, eris.Errorf("fetcher: unsupported format %q", format)
	}

	ds, err := collect(rowCh)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: %s", path)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "fetcher: %s", path)
	}
	if ds == nil {
		return nil, eris.Wrapf(model.ErrMalformedDataset, "fetcher: %s: no header row", path)
	}

	zap.L().Info("dataset loaded",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("series", len(ds.Series)),
		zap.Int("points", len(ds.X)),
	)
	return ds, nil
}

// collect drains rows into a dataset. It returns nil, nil when there were no
// rows at all.
func collect(rowCh <-chan []string) (*model.Dataset, error) {
	var t *table
	for cells := range rowCh {
		if t == nil {
			var err error
			if t, err = newTable(cells); err != nil {
				return nil, err
			}
			continue
		}
		if err := t.add(cells); err != nil {
			return nil, err
		}
	}
	if t == nil {
		return nil, nil
	}
	return t.dataset()
}

// table accumulates parsed columns.
type table struct {
	names []string
	x     []float64
	cols  [][]float64
	row   int
}

func newTable(header []string) (*table, error) {
	if len(header) < 2 {
		return nil, eris.Wrapf(model.ErrMalformedDataset, "header has %d columns, need x and at least one series", len(header))
	}
	names := make([]string, len(header)-1)
	for i, h := range header[1:] {
		names[i] = strings.TrimSpace(h)
		if names[i] == "" {
			return nil, eris.Wrapf(model.ErrMalformedDataset, "header column %d has no name", i+2)
		}
	}
	return &table{names: names, cols: make([][]float64, len(names)), row: 1}, nil
}

func (t *table) add(cells []string) error {
	t.row++
	if blank(cells) {
		return nil
	}
	if len(cells) > len(t.names)+1 {
		return eris.Wrapf(model.ErrMalformedDataset, "row %d has %d cells, header has %d", t.row, len(cells), len(t.names)+1)
	}

	xs := strings.TrimSpace(cells[0])
	if xs == "" {
		return eris.Wrapf(model.ErrMalformedDataset, "row %d: missing x value", t.row)
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return eris.Wrapf(model.ErrMalformedDataset, "row %d: x value %q is not a number", t.row, xs)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return eris.Wrapf(model.ErrMalformedDataset, "row %d: x value %q is not finite", t.row, xs)
	}
	t.x = append(t.x, x)

	for i := range t.cols {
		v := math.NaN()
		if i+1 < len(cells) {
			if s := strings.TrimSpace(cells[i+1]); s != "" {
				if v, err = strconv.ParseFloat(s, 64); err != nil {
					return eris.Wrapf(model.ErrMalformedDataset, "row %d: %s value %q is not a number", t.row, t.names[i], s)
				}
			}
		}
		t.cols[i] = append(t.cols[i], v)
	}
	return nil
}

func (t *table) dataset() (*model.Dataset, error) {
	series := make([]model.Series, len(t.names))
	for i, name := range t.names {
		series[i] = model.Series{Name: name, Y: t.cols[i]}
	}
	return model.NewDataset(t.x, series...)
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
