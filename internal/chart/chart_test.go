package chart

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic), "%s is not a PNG", path)
}

func TestBars(t *testing.T) {
	r := Renderer{Width: 640, Height: 360}
	dir := t.TempDir()

	vertical := filepath.Join(dir, "bars.png")
	require.NoError(t, r.Bars(vertical, BarChart{
		Title:  "Mental distress by state",
		Labels: []string{"CA", "NY", "TX"},
		Series: []Series{{Name: "mean", Values: []float64{12.5, 13.1, math.NaN()}}},
	}))
	assertPNG(t, vertical)

	horizontal := filepath.Join(dir, "nested", "hbars.png")
	require.NoError(t, r.Bars(horizontal, BarChart{
		Title:      "Top cities",
		Labels:     []string{"A", "B"},
		Series:     []Series{{Name: "above", Values: []float64{3, 0}}, {Name: "below", Values: []float64{0, 1}}},
		Horizontal: true,
	}))
	assertPNG(t, horizontal)

	err := r.Bars(filepath.Join(dir, "bad.png"), BarChart{Labels: []string{"A"}, Series: []Series{{Values: []float64{1, 2}}}})
	assert.Error(t, err)
}

func TestBoxScatterHeatmap(t *testing.T) {
	r := Renderer{Width: 480, Height: 320, Theme: "dark"}
	dir := t.TempDir()

	box := filepath.Join(dir, "box.png")
	require.NoError(t, r.Box(box, BoxChart{
		Title:  "Obesity by state",
		Groups: []string{"CA", "NY", "EMPTY"},
		Values: [][]float64{{30, 31, 29, 35}, {28, 27, math.NaN()}, {math.NaN()}},
	}))
	assertPNG(t, box)

	scatter := filepath.Join(dir, "scatter.png")
	require.NoError(t, r.Scatter(scatter, ScatterChart{
		Title: "Dental vs distress",
		X:     []float64{1, 2, 3, math.NaN()},
		Y:     []float64{2, 4, 6, 1},
		Trend: func(x float64) float64 { return 2 * x },
	}))
	assertPNG(t, scatter)

	heat := filepath.Join(dir, "heat.png")
	require.NoError(t, r.Heatmap(heat, Matrix{
		Title:   "Correlation",
		Columns: []string{"a", "b"},
		Values:  [][]float64{{1, -0.4}, {-0.4, math.NaN()}},
	}))
	assertPNG(t, heat)

	assert.Error(t, r.Heatmap(filepath.Join(dir, "bad.png"), Matrix{Columns: []string{"a", "b"}, Values: [][]float64{{1}}}))
}

func TestEmptyInputsRenderPlaceholder(t *testing.T) {
	r := Renderer{}
	dir := t.TempDir()
	for name, render := range map[string]func(string) error{
		"bars":    func(p string) error { return r.Bars(p, BarChart{Title: "empty"}) },
		"box":     func(p string) error { return r.Box(p, BoxChart{Title: "empty"}) },
		"scatter": func(p string) error { return r.Scatter(p, ScatterChart{Title: "empty"}) },
		"heatmap": func(p string) error { return r.Heatmap(p, Matrix{Title: "empty"}) },
	} {
		p := filepath.Join(dir, name+".png")
		require.NoError(t, render(p), name)
		assertPNG(t, p)
	}
}

func TestThemeFallback(t *testing.T) {
	assert.Equal(t, "light", Renderer{Theme: "neon"}.theme())
	assert.Equal(t, "grafana", Renderer{Theme: " Grafana "}.theme())
	assert.Equal(t, defaultWidth, Renderer{}.width())
}
