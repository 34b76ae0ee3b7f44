package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// RenderMarkdown builds the run report. Chart links are relative to the
// output directory, where the report is written next to the charts.
func RenderMarkdown(dataset string, results []*Result) string {
	var b strings.Builder
	b.WriteString("# Health metrics report\n\n")
	if dataset != "" {
		b.WriteString(fmt.Sprintf("Dataset: %s\n\n", dataset))
	}
	var failed, warned int
	for _, r := range results {
		if !r.OK() {
			failed++
		}
		if len(r.Warnings) > 0 {
			warned++
		}
	}
	b.WriteString(fmt.Sprintf("Questions: %d, failed: %d, with warnings: %d\n", len(results), failed, warned))

	for _, r := range results {
		b.WriteString(fmt.Sprintf("\n## %d. %s\n\n", r.ID, r.Title))
		if !r.OK() {
			b.WriteString(fmt.Sprintf("**Failed:** %s\n", safeCell(r.Err.Error())))
			continue
		}
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
		for _, w := range r.Warnings {
			b.WriteString("- ⚠ ")
			b.WriteString(w)
			b.WriteString("\n")
		}
		for _, t := range r.Tables {
			writeTable(&b, t)
		}
		for _, c := range r.Charts {
			b.WriteString(fmt.Sprintf("\n![%s](%s)\n", r.Title, filepath.Base(c)))
		}
		if r.Duration > 0 {
			b.WriteString(fmt.Sprintf("\n_took %s_\n", r.Duration.Round(time.Millisecond)))
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, t Table) {
	b.WriteString("\n")
	if t.Title != "" {
		b.WriteString("**")
		b.WriteString(t.Title)
		b.WriteString("**\n\n")
	}
	if len(t.Rows) == 0 {
		b.WriteString("_no rows_\n")
		return
	}
	b.WriteString("| ")
	for i, h := range t.Headers {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeCell(h))
	}
	b.WriteString(" |\n|")
	for range t.Headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		b.WriteString("| ")
		for i := range t.Headers {
			if i > 0 {
				b.WriteString(" | ")
			}
			if i < len(row) {
				b.WriteString(safeCell(row[i]))
			}
		}
		b.WriteString(" |\n")
	}
}

func safeCell(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
