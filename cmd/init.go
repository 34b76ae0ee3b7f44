package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/utils"
	"github.com/KaramelBytes/healthlens-cli/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init <workspace-name>",
	Short: "Initialize a new workspace for analysis runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return fmt.Errorf("invalid workspace name %q", name)
		}
		root, err := defaultWorkspacesDir()
		if err != nil {
			return err
		}
		wsDir := filepath.Join(root, name)
		// Refuse to overwrite an existing workspace.
		if info, err := os.Stat(wsDir); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(wsDir, utils.WorkspaceFile)); err == nil {
				return fmt.Errorf("workspace already exists at %s", wsDir)
			}
			entries, err := os.ReadDir(wsDir)
			if err != nil {
				return fmt.Errorf("inspect workspace directory: %w", err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize workspace", wsDir)
			}
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat workspace directory: %w", err)
		}
		ws := workspace.NewWorkspace(name, initDescription, wsDir)
		if err := ws.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Workspace initialized: %s\n", wsDir)
		return nil
	},
}

func defaultWorkspacesDir() (string, error) {
	dir := ""
	if cfg != nil {
		dir = cfg.WorkspacesDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".healthlens", "workspaces")
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = strings.TrimPrefix(dir, "~")
		dir = strings.TrimPrefix(dir, string(os.PathSeparator))
		dir = strings.TrimPrefix(dir, "/")
		dir = filepath.Join(home, dir)
	}
	dir = filepath.Clean(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// resolveWorkspace loads a workspace by name, or by path when ref points at
// a directory inside one.
func resolveWorkspace(ref string) (*workspace.Workspace, error) {
	if ref == "" {
		return nil, errors.New("workspace name is required")
	}
	if info, err := os.Stat(ref); err == nil && info.IsDir() {
		if root, err := utils.FindWorkspaceRoot(ref); err == nil {
			return workspace.LoadWorkspace(root)
		}
	}
	root, err := defaultWorkspacesDir()
	if err != nil {
		return nil, err
	}
	return workspace.LoadWorkspace(filepath.Join(root, ref))
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "workspace description")
}
