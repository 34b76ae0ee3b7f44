package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/analysis"
	"github.com/KaramelBytes/healthlens-cli/internal/chart"
	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"github.com/spf13/cobra"
)

var (
	corrMetrics []string
	corrKey     string
	corrPivot   bool
	corrHeatmap string
	corrShowRow bool
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <file>",
	Short: "Join metrics per city and compute their Pearson correlation matrix",
	Example: `  healthlens correlate health.csv -m "Frequent Mental Distress=mental_distress" -m Diabetes=diabetes
  healthlens correlate health.csv -m "Dental Care" -m Diabetes --pivot --heatmap corr.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(corrMetrics) < 2 {
			return fmt.Errorf("at least two --metric values are required")
		}
		s, err := loadStore(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		var wt *analysis.WideTable
		if corrPivot {
			names := make([]string, len(corrMetrics))
			for i, spec := range corrMetrics {
				names[i], _ = splitMetricAlias(spec)
				if err := s.RequireMetric(names[i]); err != nil {
					return err
				}
			}
			wt, err = analysis.Pivot(s, corrKey, names, true)
		} else {
			parts := make([]analysis.Aliased, len(corrMetrics))
			for i, spec := range corrMetrics {
				name, alias := splitMetricAlias(spec)
				if err := s.RequireMetric(name); err != nil {
					return err
				}
				m, err := analysis.Slice(s, name)
				if err != nil {
					return err
				}
				parts[i] = analysis.As(m, alias)
			}
			wt, err = analysis.Join(corrKey, parts...)
		}
		if err != nil {
			if !analysis.IsWarning(err) {
				return err
			}
			fmt.Fprintf(out, "⚠ %v\n", err)
		}
		if wt.Duplicates > 0 {
			fmt.Fprintf(out, "⚠ %d duplicate %s rows ignored\n", wt.Duplicates, wt.Key)
		}
		fmt.Fprintf(out, "Joined %d rows on %s\n", wt.Len(), wt.Key)

		if corrShowRow && wt.Len() > 0 {
			t := newTable(out, append([]string{wt.Key}, wt.Columns()...)...)
			for r, k := range wt.Keys() {
				row := []string{k}
				for c := range wt.Columns() {
					row = append(row, fmtNum(wt.Value(r, c)))
				}
				t.Append(row)
			}
			t.Render()
		}

		cm := analysis.PearsonMatrix(wt)
		t := newTable(out, append([]string{""}, cm.Columns...)...)
		for i, c := range cm.Columns {
			row := []string{c}
			for j := range cm.Columns {
				row = append(row, fmtNum(cm.Values[i][j]))
			}
			t.Append(row)
		}
		t.Render()
		for _, p := range cm.Pairs() {
			fmt.Fprintf(out, "- %s ~ %s: r=%s (n=%s)\n", p.A, p.B, fmtNum(p.R), strconv.Itoa(p.N))
		}

		if corrHeatmap != "" {
			err := renderer().Heatmap(corrHeatmap, chart.Matrix{
				Title:   "Correlation Heatmap",
				Columns: cm.Columns,
				Values:  cm.Values,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote heatmap to %s\n", corrHeatmap)
		}
		return nil
	},
}

// splitMetricAlias parses "Metric Name=alias". Without an alias the metric
// name is used as the column name.
func splitMetricAlias(spec string) (metric, alias string) {
	if i := strings.LastIndex(spec, "="); i > 0 {
		return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+1:])
	}
	spec = strings.TrimSpace(spec)
	return spec, spec
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	correlateCmd.Flags().StringArrayVarP(&corrMetrics, "metric", "m", nil, "metric to join, optionally as \"Name=alias\" (repeatable)")
	correlateCmd.Flags().StringVar(&corrKey, "key", records.ColGeo, "entity column to join on")
	correlateCmd.Flags().BoolVar(&corrPivot, "pivot", false, "average repeated observations per key instead of keeping the first")
	correlateCmd.Flags().StringVar(&corrHeatmap, "heatmap", "", "write an annotated heatmap (PNG) to this path")
	correlateCmd.Flags().BoolVar(&corrShowRow, "rows", false, "print the joined table")
}
