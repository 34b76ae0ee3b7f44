package cmd

import (
	"fmt"

	"github.com/KaramelBytes/healthlens-cli/internal/analysis"
	"github.com/KaramelBytes/healthlens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descOutputPath string
	descSampleRows int
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Summarize a dataset: shape, schema, column statistics and sample rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStore(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		md := analysis.Describe(s, descSampleRows).Markdown()
		if descOutputPath != "" {
			if err := utils.SafeWriteFile(descOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "write the summary to a file instead of stdout")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables)")
}
