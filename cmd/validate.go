package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"github.com/spf13/cobra"
)

var (
	valStrict bool
	valLimit  int
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that every row satisfies lci <= est <= uci",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStore(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		violations := records.Validate(s)
		if len(violations) == 0 {
			fmt.Fprintf(out, "✓ %d rows, no bound violations\n", s.Len())
			return nil
		}
		t := newTable(out, "Row", "Metric", "City", "LCI", "Est", "UCI")
		for i, v := range violations {
			if valLimit > 0 && i >= valLimit {
				break
			}
			t.Append([]string{strconv.Itoa(v.Row), v.Metric, v.Geo, fmtNum(v.LCI), fmtNum(v.Est), fmtNum(v.UCI)})
		}
		t.Render()
		fmt.Fprintf(out, "⚠ %d of %d rows violate lci <= est <= uci\n", len(violations), s.Len())
		if valStrict {
			return fmt.Errorf("%d bound violations", len(violations))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&valStrict, "strict", false, "exit with an error when violations are found")
	validateCmd.Flags().IntVar(&valLimit, "limit", 50, "maximum violations to print (0 = all)")
}
