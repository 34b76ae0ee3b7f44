package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/KaramelBytes/healthlens-cli/internal/chart"
	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(headers)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	return t
}

func printTable(w io.Writer, pt pipeline.Table) {
	if pt.Title != "" {
		fmt.Fprintln(w, pt.Title)
	}
	if len(pt.Rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	t := newTable(w, pt.Headers...)
	t.AppendBulk(pt.Rows)
	t.Render()
}

func renderer() chart.Renderer {
	return chart.Renderer{Width: cfg.ChartWidth, Height: cfg.ChartHeight, Theme: cfg.ChartTheme}
}

func fmtNum(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
