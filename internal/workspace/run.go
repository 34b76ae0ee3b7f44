package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Artifact kinds.
const (
	KindChart  = "chart"
	KindReport = "report"
)

// Run records one execution of the analysis questions.
type Run struct {
	ID         string      `json:"id"`
	Dataset    string      `json:"dataset"`
	Questions  []int       `json:"questions"`
	Failed     []int       `json:"failed,omitempty"`
	Warnings   int         `json:"warnings"`
	Artifacts  []*Artifact `json:"artifacts"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`
}

// Artifact is a file produced by a run.
type Artifact struct {
	ID       string    `json:"id"`
	Question int       `json:"question,omitempty"`
	Kind     string    `json:"kind"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Bytes    int64     `json:"bytes"`
	AddedAt  time.Time `json:"added_at"`
}

// AddArtifact records an existing file. question is 0 for run-level files
// such as the report.
func (r *Run) AddArtifact(question int, kind, path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("artifact %s is a directory", path)
	}
	a := &Artifact{
		ID:       uuid.NewString(),
		Question: question,
		Kind:     kind,
		Path:     path,
		Name:     filepath.Base(path),
		Bytes:    info.Size(),
		AddedAt:  info.ModTime(),
	}
	r.Artifacts = append(r.Artifacts, a)
	return a, nil
}

// Finish stamps the run as done.
func (r *Run) Finish(failed []int, warnings int) {
	r.Failed = append([]int(nil), failed...)
	r.Warnings = warnings
	r.FinishedAt = time.Now()
}

// Status summarises the run for listings.
func (r *Run) Status() string {
	switch {
	case r.FinishedAt.IsZero():
		return "incomplete"
	case len(r.Failed) > 0:
		return fmt.Sprintf("%d failed", len(r.Failed))
	case r.Warnings > 0:
		return fmt.Sprintf("ok (%d warnings)", r.Warnings)
	}
	return "ok"
}
