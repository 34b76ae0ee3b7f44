package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/healthlens-cli/internal/analysis"
	"github.com/KaramelBytes/healthlens-cli/internal/chart"
	"github.com/KaramelBytes/healthlens-cli/internal/logging"
	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"golang.org/x/sync/errgroup"
)

// Env is what a question needs besides the store.
type Env struct {
	// OutDir receives chart files. Empty disables chart rendering.
	OutDir   string
	Renderer chart.Renderer
	// TopN is the size of the top/bottom rankings (default 10).
	TopN int
	Log  *logging.Logger
}

func (e Env) topN() int {
	if e.TopN <= 0 {
		return 10
	}
	return e.TopN
}

func (e Env) logger() *logging.Logger {
	if e.Log == nil {
		return logging.Discard()
	}
	return e.Log
}

// Table is a small rendered result table.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Result is the outcome of one question.
type Result struct {
	ID       int
	Slug     string
	Title    string
	Tables   []Table
	Charts   []string
	Notes    []string
	Warnings []string
	Err      error
	Duration time.Duration
}

// OK reports whether the question completed, possibly with warnings.
func (r *Result) OK() bool { return r.Err == nil }

func (r *Result) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

func (r *Result) warn(err error) {
	r.Warnings = append(r.Warnings, err.Error())
}

// Question is one independent analysis over the store.
type Question struct {
	ID    int
	Slug  string
	Title string
	run   func(ctx context.Context, s *records.Store, env Env, res *Result) error
}

// chartPath names a chart file for the running question, or "" when charts
// are off.
func chartPath(env Env, res *Result, name string) string {
	if env.OutDir == "" {
		return ""
	}
	file := fmt.Sprintf("q%02d-%s", res.ID, res.Slug)
	if name != "" {
		file += "-" + name
	}
	return filepath.Join(env.OutDir, file+".png")
}

// Questions returns the registry ordered by ID.
func Questions() []Question {
	out := append([]Question(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup finds a question by ID or slug.
func Lookup(ref string) (Question, bool) {
	ref = strings.TrimSpace(ref)
	id, convErr := strconv.Atoi(ref)
	for _, q := range registry {
		if (convErr == nil && q.ID == id) || strings.EqualFold(q.Slug, ref) {
			return q, true
		}
	}
	return Question{}, false
}

// Select resolves question references such as "1,3,5-7,obesity-by-state".
// An empty list selects every question.
func Select(refs []string) ([]Question, error) {
	if len(refs) == 0 {
		return Questions(), nil
	}
	seen := map[int]bool{}
	var out []Question
	add := func(q Question) {
		if !seen[q.ID] {
			seen[q.ID] = true
			out = append(out, q)
		}
	}
	for _, raw := range refs {
		for _, ref := range strings.Split(raw, ",") {
			ref = strings.TrimSpace(ref)
			if ref == "" {
				continue
			}
			if lo, hi, ok := strings.Cut(ref, "-"); ok {
				a, errA := strconv.Atoi(lo)
				b, errB := strconv.Atoi(hi)
				if errA == nil && errB == nil {
					if a > b {
						return nil, fmt.Errorf("invalid question range %q", ref)
					}
					for id := a; id <= b; id++ {
						q, found := Lookup(strconv.Itoa(id))
						if !found {
							return nil, fmt.Errorf("unknown question %d", id)
						}
						add(q)
					}
					continue
				}
			}
			q, found := Lookup(ref)
			if !found {
				return nil, fmt.Errorf("unknown question %q", ref)
			}
			add(q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Runner executes questions against a shared store.
type Runner struct {
	Env Env
	// Concurrency bounds parallel questions; <= 0 means one at a time.
	Concurrency int
}

// Run executes qs concurrently and returns one Result per question in the
// given order. A failing question records its error in its Result and does
// not stop the others. The returned error is non-nil only when ctx was
// cancelled; questions not yet started then carry ctx.Err().
func (r *Runner) Run(ctx context.Context, s *records.Store, qs []Question) ([]*Result, error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}
	results := make([]*Result, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, q := range qs {
		if gctx.Err() != nil {
			results[i] = &Result{ID: q.ID, Slug: q.Slug, Title: q.Title, Err: gctx.Err()}
			continue
		}
		i, q := i, q
		g.Go(func() error {
			results[i] = r.runOne(gctx, s, q)
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, s *records.Store, q Question) *Result {
	res := &Result{ID: q.ID, Slug: q.Slug, Title: q.Title}
	log := r.Env.logger().WithComponent("pipeline").WithQuestion(q.ID, q.Slug)
	env := r.Env
	env.Log = log
	start := time.Now()
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if err := q.run(ctx, s, env, res); err != nil {
		if analysis.IsWarning(err) {
			res.warn(err)
		} else {
			res.Err = err
		}
	}
	res.Duration = time.Since(start)
	for _, w := range res.Warnings {
		log.LogWarning("Question produced a warning", errors.New(w))
	}
	for _, c := range res.Charts {
		log.LogArtifact("chart", c)
	}
	log.LogPipeline(len(res.Charts), len(res.Warnings), res.Err, res.Duration)
	return res
}

// requireSlice resolves a metric that the question cannot do without.
func requireSlice(s *records.Store, metric string) (analysis.MetricSlice, error) {
	if err := s.RequireMetric(metric); err != nil {
		return analysis.MetricSlice{}, err
	}
	return analysis.Slice(s, metric)
}
