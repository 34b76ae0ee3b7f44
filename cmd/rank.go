package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/healthlens-cli/internal/analysis"
	"github.com/KaramelBytes/healthlens-cli/internal/chart"
	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"github.com/spf13/cobra"
)

var (
	rankMetric    string
	rankColumn    string
	rankN         int
	rankAscending bool
	rankChart     string
)

var rankCmd = &cobra.Command{
	Use:   "rank <file>",
	Short: "List the cities with the highest (or lowest) values of one metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rankMetric == "" {
			return fmt.Errorf("--metric is required")
		}
		n := cfg.TopN
		if cmd.Flags().Changed("n") {
			n = rankN
		}
		s, err := loadStore(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := s.RequireMetric(rankMetric); err != nil {
			return err
		}
		m, err := analysis.Slice(s, rankMetric)
		if err != nil {
			return err
		}
		rows, err := analysis.TopN(m, rankColumn, n, !rankAscending)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		order := "Top"
		if rankAscending {
			order = "Bottom"
		}
		title := fmt.Sprintf("%s %d cities by %s", order, len(rows), rankMetric)
		fmt.Fprintln(out, title)
		t := newTable(out, "#", "City", "State", rankColumn, "Period", "Source")
		labels := make([]string, len(rows))
		vals := make([]float64, len(rows))
		for i, o := range rows {
			v, _ := o.Number(rankColumn)
			t.Append([]string{strconv.Itoa(i + 1), o.GeoName, o.StateAbbr, fmtNum(v), o.DataPeriod, o.SourceName})
			j := len(rows) - 1 - i
			labels[j], vals[j] = o.GeoName, v
		}
		t.Render()

		if rankChart != "" {
			err := renderer().Bars(rankChart, chart.BarChart{
				Title:      title,
				Labels:     labels,
				Series:     []chart.Series{{Name: rankColumn, Values: vals}},
				Horizontal: true,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote chart to %s\n", rankChart)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().StringVarP(&rankMetric, "metric", "m", "", "metric name, e.g. \"Obesity\"")
	rankCmd.Flags().StringVar(&rankColumn, "by", records.ColEst, "numeric column to rank by: est | lci | uci")
	rankCmd.Flags().IntVarP(&rankN, "n", "n", 10, "number of cities (default from config top_n)")
	rankCmd.Flags().BoolVar(&rankAscending, "ascending", false, "rank lowest values first")
	rankCmd.Flags().StringVar(&rankChart, "chart", "", "write a horizontal bar chart (PNG) to this path")
}
