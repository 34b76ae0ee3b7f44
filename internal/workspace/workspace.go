package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/KaramelBytes/healthlens-cli/internal/utils"
	"github.com/google/uuid"
)

// Workspace groups analysis runs and their artifacts on disk.
type Workspace struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Runs        map[string]*Run `json:"runs"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Not serialized: on-disk location of the workspace.json
	rootDir string `json:"-"`
}

// NewWorkspace constructs an in-memory workspace. Call Save() to persist.
func NewWorkspace(name, description, rootDir string) *Workspace {
	return &Workspace{
		Name:        name,
		Description: description,
		Runs:        make(map[string]*Run),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadWorkspace loads a workspace.json from the provided directory.
func LoadWorkspace(dir string) (*Workspace, error) {
	path := filepath.Join(dir, utils.WorkspaceFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var w Workspace
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}
	if w.Runs == nil {
		w.Runs = make(map[string]*Run)
	}
	w.rootDir = dir
	return &w, nil
}

// RootDir returns the on-disk workspace directory path.
func (w *Workspace) RootDir() string { return w.rootDir }

// Save writes workspace.json using atomic write.
func (w *Workspace) Save() error {
	if w.rootDir == "" {
		return errors.New("workspace root directory not set")
	}
	w.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(w)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(w.rootDir, utils.WorkspaceFile), data)
}

// StartRun registers a new run over dataset and returns it. Its output
// directory is RunDir(run).
func (w *Workspace) StartRun(dataset string, questions []int) *Run {
	r := &Run{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Questions: append([]int(nil), questions...),
		StartedAt: time.Now(),
	}
	if w.Runs == nil {
		w.Runs = make(map[string]*Run)
	}
	w.Runs[r.ID] = r
	w.UpdatedAt = time.Now()
	return r
}

// RunDir is where a run's charts and report live.
func (w *Workspace) RunDir(r *Run) string {
	return filepath.Join(w.rootDir, "runs", r.ID)
}

// SortedRuns lists runs oldest first.
func (w *Workspace) SortedRuns() []*Run {
	out := make([]*Run, 0, len(w.Runs))
	for _, r := range w.Runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
