package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/capfit/internal/catalog"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return formatModels(cmd.OutOrStdout(), catalog.Default().All())
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

// formatModels writes one row per model in catalog order.
func formatModels(out io.Writer, defs []catalog.Definition) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tMODEL\tK\tGUESS\tLOWER\tUPPER\tDOMAIN")
	for i, d := range defs {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			i+1, d.Name, d.K(), floatList(d.Guess), floatList(d.Lower), floatList(d.Upper), d.Domain)
	}
	return w.Flush()
}

func floatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
