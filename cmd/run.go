package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/KaramelBytes/healthlens-cli/internal/utils"
	"github.com/KaramelBytes/healthlens-cli/internal/workspace"
	"github.com/spf13/cobra"
)

const reportFile = "report.md"

var (
	runQuestions   []string
	runOutDir      string
	runWorkspace   string
	runConcurrency int
	runStrict      bool
	runNoCharts    bool
	runShowTables  bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Answer the analysis questions and write charts plus a markdown report",
	Long: `Run loads the dataset once and answers each selected question independently.
A question that fails (for example because its metric is absent) is reported
and the others still complete. Charts and report.md go to --out-dir, or to a
new run directory when --workspace is given.`,
	Example: `  healthlens run health.csv
  healthlens run health.csv -q 1,5-7 --out-dir out
  healthlens run health.csv -w survey2019 --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		qs, err := pipeline.Select(runQuestions)
		if err != nil {
			return err
		}
		s, err := loadStore(ctx, args[0])
		if err != nil {
			return err
		}

		var (
			ws  *workspace.Workspace
			run *workspace.Run
		)
		outDir := runOutDir
		if runWorkspace != "" {
			ws, err = resolveWorkspace(runWorkspace)
			if err != nil {
				return err
			}
			ids := make([]int, len(qs))
			for i, q := range qs {
				ids[i] = q.ID
			}
			abs, _ := filepath.Abs(args[0])
			run = ws.StartRun(abs, ids)
			outDir = ws.RunDir(run)
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return err
		}

		concurrency := cfg.Concurrency
		if cmd.Flags().Changed("concurrency") {
			concurrency = runConcurrency
		}
		env := pipeline.Env{
			OutDir:   outDir,
			Renderer: renderer(),
			TopN:     cfg.TopN,
			Log:      logger,
		}
		if runNoCharts {
			env.OutDir = ""
		}
		runner := &pipeline.Runner{Env: env, Concurrency: concurrency}
		results, runErr := runner.Run(ctx, s, qs)

		var failed []int
		warnings := 0
		for _, res := range results {
			warnings += len(res.Warnings)
			switch {
			case !res.OK():
				failed = append(failed, res.ID)
				fmt.Fprintf(out, "✗ %2d. %s: %v\n", res.ID, res.Title, res.Err)
			case len(res.Warnings) > 0:
				fmt.Fprintf(out, "⚠ %2d. %s: %s\n", res.ID, res.Title, res.Warnings[0])
			default:
				fmt.Fprintf(out, "✓ %2d. %s\n", res.ID, res.Title)
			}
			if runShowTables && res.OK() {
				for _, t := range res.Tables {
					printTable(out, t)
				}
				for _, n := range res.Notes {
					fmt.Fprintf(out, "  %s\n", n)
				}
			}
		}

		reportPath := filepath.Join(outDir, reportFile)
		if err := utils.SafeWriteFile(reportPath, []byte(pipeline.RenderMarkdown(s.Name(), results))); err != nil {
			return err
		}
		logger.LogArtifact("report", reportPath)
		fmt.Fprintf(out, "✓ Wrote report to %s\n", reportPath)

		if run != nil {
			for _, res := range results {
				for _, c := range res.Charts {
					if _, err := run.AddArtifact(res.ID, workspace.KindChart, c); err != nil {
						return err
					}
				}
			}
			if _, err := run.AddArtifact(0, workspace.KindReport, reportPath); err != nil {
				return err
			}
			run.Finish(failed, warnings)
			if err := ws.Save(); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Recorded run %s in workspace %s\n", run.ID, ws.Name)
		}

		if runErr != nil {
			return runErr
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d questions failed", len(failed), len(results))
		}
		if runStrict && warnings > 0 {
			return fmt.Errorf("%d warnings (strict mode)", warnings)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceVarP(&runQuestions, "questions", "q", nil, "questions to run by id, range or slug, e.g. 1,3,5-7 (default all)")
	runCmd.Flags().StringVarP(&runOutDir, "out-dir", "o", "healthlens-report", "directory for charts and report.md")
	runCmd.Flags().StringVarP(&runWorkspace, "workspace", "w", "", "record the run in this workspace (overrides --out-dir)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 4, "questions answered in parallel (default from config)")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "exit non-zero when any question produced a warning")
	runCmd.Flags().BoolVar(&runNoCharts, "no-charts", false, "skip chart rendering")
	runCmd.Flags().BoolVar(&runShowTables, "show", false, "print result tables to stdout")
}
