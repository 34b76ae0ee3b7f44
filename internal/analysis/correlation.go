package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
	// N[i][j] is the number of pairwise-complete observations behind Values[i][j].
	N [][]int
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
	N    int
}

// PearsonMatrix correlates every pair of columns in wt using the rows where
// both values are present. Pairs with fewer than two such rows or with a
// constant side are NaN. The diagonal is 1 for columns with nonzero
// variance and NaN otherwise.
func PearsonMatrix(wt *WideTable) *CorrMatrix {
	cols := wt.Columns()
	n := len(cols)
	data := make([][]float64, n)
	for i, c := range cols {
		data[i], _ = wt.Column(c)
	}
	m := &CorrMatrix{Columns: cols, Values: make([][]float64, n), N: make([][]int, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.N[i] = make([]int, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			xs, ys := completePairs(data[a], data[b])
			m.N[a][b], m.N[b][a] = len(xs), len(xs)
			var r float64
			switch {
			case len(xs) < 2 || constant(xs) || constant(ys):
				r = math.NaN()
			case a == b:
				r = 1
			default:
				r = clamp(stat.Correlation(xs, ys, nil))
			}
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m
}

// At returns the correlation between two named columns.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return math.NaN(), false
	}
	return m.Values[ia][ib], true
}

// Pairs lists the off-diagonal pairs ordered by |r| descending; undefined
// pairs come last.
func (m *CorrMatrix) Pairs() []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j], N: m.N[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ri, rj := pairs[i].R, pairs[j].R
		switch {
		case math.IsNaN(ri):
			return false
		case math.IsNaN(rj):
			return true
		}
		ai, aj := math.Abs(ri), math.Abs(rj)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	return pairs
}

func completePairs(x, y []float64) (xs, ys []float64) {
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

func constant(vals []float64) bool {
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}

func clamp(r float64) float64 {
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}
