package cmd

import (
	"fmt"
	"math"
	"strconv"

	"github.com/KaramelBytes/healthlens-cli/internal/analysis"
	"github.com/KaramelBytes/healthlens-cli/internal/chart"
	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"github.com/spf13/cobra"
)

var (
	statesMetric string
	statesBy     string
	statesChart  string
)

var statesCmd = &cobra.Command{
	Use:   "states <file>",
	Short: "Average one metric per state and compare each state with the national mean",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if statesMetric == "" {
			return fmt.Errorf("--metric is required")
		}
		s, err := loadStore(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := s.RequireMetric(statesMetric); err != nil {
			return err
		}
		m, err := analysis.Slice(s, statesMetric)
		if err != nil {
			return err
		}
		rows := m.Rows()
		groups, err := analysis.GroupMean(rows, statesBy, records.ColEst)
		if err != nil {
			return err
		}
		baseline, err := analysis.Baseline(rows, records.ColEst)
		if err != nil {
			return err
		}
		flags := analysis.AboveBaseline(groups, baseline)

		out := cmd.OutOrStdout()
		t := newTable(out, statesBy, "Mean", "Rows", "Above national")
		labels := make([]string, len(flags))
		above := make([]float64, len(flags))
		below := make([]float64, len(flags))
		for i, f := range flags {
			t.Append([]string{f.Key(), fmtNum(f.Mean), strconv.Itoa(f.Count), strconv.FormatBool(f.Above)})
			labels[i] = f.Key()
			above[i], below[i] = math.NaN(), math.NaN()
			if f.Above {
				above[i] = f.Mean
			} else {
				below[i] = f.Mean
			}
		}
		t.Render()
		fmt.Fprintf(out, "National average (%d rows): %s\n", len(rows), fmtNum(baseline))

		if statesChart != "" {
			err := renderer().Bars(statesChart, chart.BarChart{
				Title:  fmt.Sprintf("%s by %s vs national average (%s)", statesMetric, statesBy, fmtNum(baseline)),
				Labels: labels,
				Series: []chart.Series{
					{Name: "Above national avg", Values: above},
					{Name: "At or below", Values: below},
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote chart to %s\n", statesChart)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statesCmd)
	statesCmd.Flags().StringVarP(&statesMetric, "metric", "m", "", "metric name, e.g. \"Premature Deaths (All Causes)\"")
	statesCmd.Flags().StringVar(&statesBy, "by", records.ColState, "column to group by")
	statesCmd.Flags().StringVar(&statesChart, "chart", "", "write a bar chart (PNG) to this path")
}
