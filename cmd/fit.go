package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/capfit/internal/aggregate"
	"github.com/sells-group/capfit/internal/catalog"
	"github.com/sells-group/capfit/internal/fetcher"
	"github.com/sells-group/capfit/internal/fitter"
	"github.com/sells-group/capfit/internal/model"
	"github.com/sells-group/capfit/internal/report"
	"github.com/sells-group/capfit/internal/selector"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit every model to every series and report the best fits",
	Long:  "Loads a CSV or XLSX dataset (first column x, one column per series), fits every catalog model to every series, and reports the best model per series with per-model diagnostics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		relate, _ := cmd.Flags().GetBool("relate")
		return runFit(cmd, relate)
	},
}

var relateCmd = &cobra.Command{
	Use:   "relate",
	Short: "Fit every series and combine the best fits into consensus curves",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFit(cmd, true)
	},
}

// runFit loads the dataset, selects the best model per series, optionally
// aggregates, and writes the report.
func runFit(cmd *cobra.Command, relate bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dataPath, _ := cmd.Flags().GetString("data")
	if dataPath == "" {
		return eris.New("fit: --data is required")
	}
	sheet, _ := cmd.Flags().GetString("sheet")
	charset, _ := cmd.Flags().GetString("charset")
	outPath, _ := cmd.Flags().GetString("output")
	formatName, _ := cmd.Flags().GetString("format")
	if formatName == "" {
		formatName = cfg.Report.Format
	}

	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}
	fopts, err := cfg.Fit.FitterOptions()
	if err != nil {
		return eris.Wrap(err, "fit: solver options")
	}

	ds, err := fetcher.LoadDataset(ctx, dataPath, fetcher.LoadOptions{
		SheetName: sheet,
		Charset:   charset,
	})
	if err != nil {
		return err
	}

	cat := catalog.Default()
	sel := selector.New(cat, fitter.New(fopts), selector.Options{
		Concurrency: cfg.Fit.Concurrency,
		Progress:    newProgressLogger(time.Duration(cfg.Progress.IntervalMs) * time.Millisecond),
	})
	selections, err := sel.SelectAll(ctx, ds)
	if err != nil {
		return eris.Wrap(err, "fit: select models")
	}
	for _, name := range ds.Names() {
		if s := selections[name]; !s.Found() {
			zap.L().Warn("no model fitted", zap.String("series", name), zap.Error(s.Err()))
		}
	}

	var agg *aggregate.Result
	if relate {
		res, err := aggregate.New(cat, cfg.Aggregate.Options()).Aggregate(ds.X, model.Records(selections))
		if err != nil {
			return eris.Wrap(err, "fit: aggregate")
		}
		agg = &res
	}

	r := report.Build(ds, selections, agg, report.Meta{
		Source: dataPath,
		Method: string(fopts.Method),
	})

	if outPath == "" {
		return report.Write(cmd.OutOrStdout(), r, format)
	}
	f, err := os.Create(outPath) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return eris.Wrapf(err, "fit: create %s", outPath)
	}
	return writeAndClose(f, outPath, r, format)
}

// writeAndClose writes r to wc and closes it. A failed close is returned:
// it is where a short write to disk surfaces.
func writeAndClose(wc io.WriteCloser, path string, r *report.Report, format report.Format) error {
	if err := report.Write(wc, r, format); err != nil {
		_ = wc.Close()
		return err
	}
	return eris.Wrapf(wc.Close(), "fit: close %s", path)
}

func addFitFlags(cmd *cobra.Command) {
	cmd.Flags().String("data", "", "path to the dataset (.csv, .tsv or .xlsx)")
	cmd.Flags().String("sheet", "", "worksheet name for .xlsx input (default: first sheet)")
	cmd.Flags().String("charset", "", "source encoding for CSV input, e.g. windows-1252")
	cmd.Flags().String("format", "", "report format: text, json or yaml (default from config)")
	cmd.Flags().String("output", "", "write the report to this file instead of stdout")
}

func init() {
	addFitFlags(fitCmd)
	fitCmd.Flags().Bool("relate", false, "also compute consensus curves across series")
	addFitFlags(relateCmd)

	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(relateCmd)
}
