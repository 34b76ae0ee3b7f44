package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	listWorkspaces bool
	listRuns       bool
	listWsName     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces or the runs of a workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listWorkspaces == listRuns { // either both true or both false
			return fmt.Errorf("specify exactly one of --workspaces or --runs")
		}
		if listWorkspaces {
			return listAllWorkspaces(cmd)
		}
		if listWsName == "" {
			return fmt.Errorf("--workspace is required when using --runs")
		}
		ws, err := resolveWorkspace(listWsName)
		if err != nil {
			return err
		}
		runs := ws.SortedRuns()
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no runs)")
			return nil
		}
		t := newTable(cmd.OutOrStdout(), "Run", "Started", "Dataset", "Questions", "Artifacts", "Status")
		for _, r := range runs {
			qs := make([]string, len(r.Questions))
			for i, q := range r.Questions {
				qs[i] = strconv.Itoa(q)
			}
			t.Append([]string{
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04"),
				r.Dataset,
				strings.Join(qs, ","),
				strconv.Itoa(len(r.Artifacts)),
				r.Status(),
			})
		}
		t.Render()
		return nil
	},
}

func listAllWorkspaces(cmd *cobra.Command) error {
	root, err := defaultWorkspacesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), utils.WorkspaceFile)); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "(no workspaces)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listWorkspaces, "workspaces", false, "list workspaces")
	listCmd.Flags().BoolVar(&listRuns, "runs", false, "list runs in a workspace")
	listCmd.Flags().StringVarP(&listWsName, "workspace", "w", "", "workspace name for --runs")
}
