package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// LinearFit is a least-squares line y = Intercept + Slope*x.
type LinearFit struct {
	Intercept float64
	Slope     float64
	R         float64
	N         int
}

// Fit regresses y on x over the points where both are present.
func Fit(x, y []float64) (LinearFit, error) {
	if len(x) != len(y) {
		return LinearFit{}, invalid("fit needs equal lengths, got %d and %d", len(x), len(y))
	}
	xs, ys := completePairs(x, y)
	if len(xs) < 2 || constant(xs) {
		return LinearFit{}, invalid("fit needs at least two points with distinct x")
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r := math.NaN()
	if !constant(ys) {
		r = clamp(stat.Correlation(xs, ys, nil))
	}
	return LinearFit{Intercept: alpha, Slope: beta, R: r, N: len(xs)}, nil
}

// At evaluates the fitted line.
func (f LinearFit) At(x float64) float64 { return f.Intercept + f.Slope*x }
