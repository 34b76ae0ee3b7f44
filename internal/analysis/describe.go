package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"gonum.org/v1/gonum/stat"
)

// Report is a markdown-friendly description of a loaded dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
}

// ColumnSummary captures statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|categorical
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Mean, Std        float64
	Min, Max         float64
	Q25, Median, Q75 float64
	TopValues        []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// Describe summarises every selected column of the store and keeps the
// first sampleRows rows as examples.
func Describe(s *records.Store, sampleRows int) *Report {
	rep := &Report{Name: s.Name(), Rows: s.Len()}
	cols := s.Columns()
	for _, c := range cols {
		if records.IsNumeric(c) {
			vals, _ := s.Floats(c)
			rep.Cols = append(rep.Cols, numericSummary(c, vals))
			continue
		}
		vals, _ := s.Strings(c)
		rep.Cols = append(rep.Cols, categoricalSummary(c, vals))
	}
	if sampleRows > 0 {
		strs := make([][]string, len(cols))
		for i, c := range cols {
			strs[i], _ = s.Strings(c)
		}
		for r := 0; r < s.Len() && r < sampleRows; r++ {
			row := make([]string, len(cols))
			for i := range cols {
				row[i] = strs[i][r]
			}
			rep.Samples = append(rep.Samples, row)
		}
	}
	if dropped := s.DroppedColumns(); len(dropped) > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("dropped columns outside the schema: %s", strings.Join(dropped, ", ")))
	}
	if s.Has(records.ColEst) && s.Has(records.ColLCI) && s.Has(records.ColUCI) {
		if v := records.Validate(s); len(v) > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d rows violate lci <= est <= uci (first: %s)", len(v), v[0]))
		}
	}
	return rep
}

func numericSummary(name string, vals []float64) ColumnSummary {
	s := ColumnSummary{Name: name, Kind: "numeric"}
	present := make([]float64, 0, len(vals))
	for _, v := range vals {
		if math.IsNaN(v) {
			s.Missing++
			continue
		}
		present = append(present, v)
	}
	s.NonNull = len(present)
	if len(present) == 0 {
		s.Mean, s.Std, s.Min, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		s.Q25, s.Median, s.Q75 = math.NaN(), math.NaN(), math.NaN()
		return s
	}
	sort.Float64s(present)
	s.Mean = stat.Mean(present, nil)
	s.Std = math.NaN()
	if len(present) > 1 {
		s.Std = stat.StdDev(present, nil)
	}
	s.Min = present[0]
	s.Max = present[len(present)-1]
	s.Q25 = quantile(present, 0.25)
	s.Median = quantile(present, 0.5)
	s.Q75 = quantile(present, 0.75)
	return s
}

func categoricalSummary(name string, vals []string) ColumnSummary {
	s := ColumnSummary{Name: name, Kind: "categorical"}
	cats := map[string]int{}
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			s.Missing++
			continue
		}
		s.NonNull++
		cats[v]++
	}
	s.Unique = len(cats)
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > 8 {
		tops = tops[:8]
	}
	s.TopValues = tops
	return s
}

// quantile interpolates linearly between closest ranks of sorted values,
// the same rule pandas uses for describe().
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Shape: %d rows x %d columns\n\n", r.Rows, len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", c.Name, c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			if c.NonNull > 0 {
				b.WriteString(fmt.Sprintf(" — mean %.4g, std %.4g, min %.4g, 25%% %.4g, 50%% %.4g, 75%% %.4g, max %.4g",
					c.Mean, c.Std, c.Min, c.Q25, c.Median, c.Q75, c.Max))
			}
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(c.Name)
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if r := []rune(val); len(r) > 80 {
					val = string(r[:77]) + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
