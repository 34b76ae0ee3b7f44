package chart

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/utils"
	charts "github.com/vicanso/go-charts/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// Renderer writes PNG charts. Zero Width/Height/Theme fall back to defaults.
type Renderer struct {
	Width  int
	Height int
	Theme  string
}

const (
	defaultWidth  = 1200
	defaultHeight = 600
	defaultTheme  = "light"
)

func (r Renderer) width() int {
	if r.Width <= 0 {
		return defaultWidth
	}
	return r.Width
}

func (r Renderer) height() int {
	if r.Height <= 0 {
		return defaultHeight
	}
	return r.Height
}

func (r Renderer) theme() string {
	switch strings.ToLower(strings.TrimSpace(r.Theme)) {
	case "dark", "grafana", "ant", "light":
		return strings.ToLower(strings.TrimSpace(r.Theme))
	}
	return defaultTheme
}

// Series is one named run of values aligned with a chart's labels.
type Series struct {
	Name   string
	Values []float64
}

// BarChart is a categorical chart with one bar per label and series.
type BarChart struct {
	Title      string
	Labels     []string
	Series     []Series
	Horizontal bool
}

// Bars renders a bar chart with go-charts.
func (r Renderer) Bars(path string, c BarChart) error {
	if len(c.Labels) == 0 || len(c.Series) == 0 {
		return r.placeholder(path, c.Title)
	}
	values := make([][]float64, len(c.Series))
	legend := make([]string, len(c.Series))
	for i, s := range c.Series {
		if len(s.Values) != len(c.Labels) {
			return fmt.Errorf("series %q has %d values for %d labels", s.Name, len(s.Values), len(c.Labels))
		}
		vals := make([]float64, len(s.Values))
		for j, v := range s.Values {
			// go-charts cannot place NaN; a missing bar is drawn as zero height.
			if math.IsNaN(v) {
				v = 0
			}
			vals[j] = v
		}
		values[i] = vals
		legend[i] = s.Name
	}

	opts := []charts.OptionFunc{
		charts.TitleTextOptionFunc(c.Title),
		charts.ThemeOptionFunc(r.theme()),
		charts.WidthOptionFunc(r.width()),
		charts.HeightOptionFunc(r.height()),
		charts.PNGTypeOption(),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	}
	if len(c.Series) > 1 {
		opts = append(opts, charts.LegendLabelsOptionFunc(legend, charts.PositionRight))
	}

	var (
		p   *charts.Painter
		err error
	)
	if c.Horizontal {
		opts = append(opts, charts.YAxisDataOptionFunc(c.Labels))
		p, err = charts.HorizontalBarRender(values, opts...)
	} else {
		opts = append(opts, charts.XAxisDataOptionFunc(c.Labels))
		p, err = charts.BarRender(values, opts...)
	}
	if err != nil {
		return fmt.Errorf("failed to render bar chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return utils.SafeWriteFile(path, buf)
}

// BoxChart shows one distribution per group.
type BoxChart struct {
	Title  string
	YLabel string
	Groups []string
	Values [][]float64
}

// Box renders per-group box plots with gonum/plot. Missing values are
// ignored and groups left without values are skipped.
func (r Renderer) Box(path string, c BoxChart) error {
	if len(c.Groups) != len(c.Values) {
		return fmt.Errorf("box chart has %d groups and %d value sets", len(c.Groups), len(c.Values))
	}
	p := r.newPlot(c.Title)
	p.Y.Label.Text = c.YLabel

	var names []string
	for i, vals := range c.Values {
		present := finite(vals)
		if len(present) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(12), float64(len(names)), plotter.Values(present))
		if err != nil {
			return fmt.Errorf("box %s: %w", c.Groups[i], err)
		}
		p.Add(box)
		names = append(names, c.Groups[i])
	}
	if len(names) == 0 {
		return r.placeholder(path, c.Title)
	}
	p.NominalX(names...)
	return r.save(p, path)
}

// ScatterChart plots paired values with an optional fitted line.
type ScatterChart struct {
	Title  string
	XLabel string
	YLabel string
	X, Y   []float64
	// Trend, when set, is drawn over the points (e.g. a fitted line).
	Trend func(x float64) float64
}

// Scatter renders a scatter plot with gonum/plot.
func (r Renderer) Scatter(path string, c ScatterChart) error {
	if len(c.X) != len(c.Y) {
		return fmt.Errorf("scatter has %d x and %d y values", len(c.X), len(c.Y))
	}
	var pts plotter.XYs
	for i := range c.X {
		if math.IsNaN(c.X[i]) || math.IsNaN(c.Y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: c.X[i], Y: c.Y[i]})
	}
	if len(pts) == 0 {
		return r.placeholder(path, c.Title)
	}
	p := r.newPlot(c.Title)
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = plotutil.Color(0)
	p.Add(scatter)

	if c.Trend != nil {
		line := plotter.NewFunction(c.Trend)
		line.Color = plotutil.Color(1)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add("trend", line)
	}
	return r.save(p, path)
}

// placeholder writes a titled empty chart for inputs with nothing to draw.
func (r Renderer) placeholder(path, title string) error {
	p := r.newPlot(title)
	p.HideAxes()
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
		Labels: []string{"no data"},
	})
	if err != nil {
		return err
	}
	labels.TextStyle[0].XAlign = text.XCenter
	p.Add(labels)
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	return r.save(p, path)
}

func (r Renderer) newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	return p
}

// save encodes p as PNG at the renderer's pixel size.
func (r Renderer) save(p *plot.Plot, path string) error {
	w, err := p.WriterTo(pixels(r.width()), pixels(r.height()), "png")
	if err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// pixels converts a pixel count to a length at the PNG canvas' 96 dpi.
func pixels(n int) vg.Length { return vg.Length(n) * vg.Inch / 96 }

func finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
