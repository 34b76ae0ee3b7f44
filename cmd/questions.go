package cmd

import (
	"strconv"

	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List the analysis questions answered by 'run'",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newTable(cmd.OutOrStdout(), "ID", "Slug", "Question")
		for _, q := range pipeline.Questions() {
			t.Append([]string{strconv.Itoa(q.ID), q.Slug, q.Title})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)
}
