package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
)

// Matrix is a square grid of values in [-1, 1], such as a correlation matrix.
type Matrix struct {
	Title   string
	Columns []string
	Values  [][]float64
}

// grid adapts Matrix to plotter.GridXYZ. Row 0 is drawn at the top.
type grid struct{ m Matrix }

func (g grid) Dims() (c, r int)   { return len(g.m.Columns), len(g.m.Columns) }
func (g grid) Z(c, r int) float64 { return g.m.Values[len(g.m.Columns)-1-r][c] }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// Heatmap renders an annotated matrix on a diverging blue-red scale fixed
// to [-1, 1]. Undefined cells are grey and labelled "nan".
func (r Renderer) Heatmap(path string, m Matrix) error {
	n := len(m.Columns)
	if n == 0 {
		return r.placeholder(path, m.Title)
	}
	if len(m.Values) != n {
		return fmt.Errorf("heatmap has %d columns and %d rows", n, len(m.Values))
	}
	for i, row := range m.Values {
		if len(row) != n {
			return fmt.Errorf("heatmap row %d has %d values, want %d", i, len(row), n)
		}
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	hm := plotter.NewHeatMap(grid{m}, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 200}

	p := r.newPlot(m.Title)
	p.Add(hm)

	var (
		xys    []plotter.XY
		labels []string
		ticksX []plot.Tick
		ticksY []plot.Tick
	)
	for i, name := range m.Columns {
		ticksX = append(ticksX, plot.Tick{Value: float64(i), Label: name})
		ticksY = append(ticksY, plot.Tick{Value: float64(n - 1 - i), Label: name})
		for j := range m.Columns {
			v := m.Values[i][j]
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			if math.IsNaN(v) {
				labels = append(labels, "nan")
			} else {
				labels = append(labels, fmt.Sprintf("%.2f", v))
			}
		}
	}
	annot, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range annot.TextStyle {
		annot.TextStyle[i].XAlign = text.XCenter
		annot.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(annot)
	p.X.Tick.Marker = plot.ConstantTicks(ticksX)
	p.Y.Tick.Marker = plot.ConstantTicks(ticksY)
	return r.save(p, path)
}
