package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"gonum.org/v1/gonum/stat"
)

// Aliased names a metric slice's est column inside a wide table.
type Aliased struct {
	Slice MetricSlice
	Alias string
}

// As pairs a slice with the column name it takes in a join.
func As(m MetricSlice, alias string) Aliased { return Aliased{Slice: m, Alias: alias} }

// WideTable has one row per entity key and one float column per metric.
type WideTable struct {
	Key string
	// Duplicates counts input rows skipped because their key was already seen.
	Duplicates int

	keys    []string
	columns []string
	values  [][]float64 // row-major
	index   map[string]int
}

// NewWideTable returns an empty table with the given key and columns.
func NewWideTable(key string, columns []string) *WideTable {
	return &WideTable{
		Key:     key,
		columns: append([]string(nil), columns...),
		index:   map[string]int{},
	}
}

// AddRow appends a row. Keys must be unique and vals must match the columns.
func (w *WideTable) AddRow(key string, vals []float64) error {
	if len(vals) != len(w.columns) {
		return invalid("row %q has %d values, table has %d columns", key, len(vals), len(w.columns))
	}
	if _, dup := w.index[key]; dup {
		return invalid("duplicate key %q", key)
	}
	w.index[key] = len(w.keys)
	w.keys = append(w.keys, key)
	w.values = append(w.values, append([]float64(nil), vals...))
	return nil
}

// Len returns the number of rows.
func (w *WideTable) Len() int { return len(w.keys) }

// Keys returns the row keys in table order.
func (w *WideTable) Keys() []string { return append([]string(nil), w.keys...) }

// Columns returns the value column names.
func (w *WideTable) Columns() []string { return append([]string(nil), w.columns...) }

// Column returns a copy of one value column.
func (w *WideTable) Column(name string) ([]float64, bool) {
	ci := w.colIndex(name)
	if ci < 0 {
		return nil, false
	}
	out := make([]float64, len(w.values))
	for i, row := range w.values {
		out[i] = row[ci]
	}
	return out, true
}

// Value returns the cell at row r and column c.
func (w *WideTable) Value(r, c int) float64 { return w.values[r][c] }

// Lookup returns the value for an entity key and column name.
func (w *WideTable) Lookup(key, column string) (float64, bool) {
	r, ok := w.index[key]
	ci := w.colIndex(column)
	if !ok || ci < 0 {
		return math.NaN(), false
	}
	return w.values[r][ci], true
}

func (w *WideTable) colIndex(name string) int {
	for i, c := range w.columns {
		if c == name {
			return i
		}
	}
	return -1
}

func checkKey(key string) error {
	if !records.IsKnown(key) || records.IsNumeric(key) {
		return &records.SchemaError{Kind: "column", Name: key, Known: []string{records.ColGeo, records.ColState, records.ColSource, records.ColPeriod}}
	}
	return nil
}

// Join reduces each slice to (key, est renamed to its alias) and inner-joins
// them on key. Rows with a missing value in any column are dropped. Row order
// follows the first slice. An empty result comes back as an empty table
// together with an *EmptyJoinError.
func Join(key string, parts ...Aliased) (*WideTable, error) {
	if key == "" {
		key = records.ColGeo
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, invalid("join needs at least one slice")
	}
	aliases := make([]string, len(parts))
	seen := map[string]bool{}
	for i, p := range parts {
		alias := p.Alias
		if alias == "" {
			alias = p.Slice.Metric
		}
		if seen[alias] {
			return nil, invalid("duplicate join column %q", alias)
		}
		seen[alias] = true
		aliases[i] = alias
	}

	wt := NewWideTable(key, aliases)
	lookups := make([]map[string]float64, len(parts))
	var order []string
	for i, p := range parts {
		m := map[string]float64{}
		for _, o := range p.Slice.Rows() {
			k, _ := o.Text(key)
			if _, dup := m[k]; dup {
				wt.Duplicates++
				continue
			}
			m[k] = o.Est
			if i == 0 {
				order = append(order, k)
			}
		}
		lookups[i] = m
	}

	for _, k := range order {
		vals := make([]float64, len(parts))
		complete := true
		for i, m := range lookups {
			v, ok := m[k]
			if !ok || math.IsNaN(v) {
				complete = false
				break
			}
			vals[i] = v
		}
		if complete {
			if err := wt.AddRow(k, vals); err != nil {
				return nil, err
			}
		}
	}
	if wt.Len() == 0 {
		return wt, &EmptyJoinError{Key: key, Columns: aliases}
	}
	return wt, nil
}

// Pivot builds a wide table of mean est per (key, metric), with rows sorted
// by key and columns in the given metric order. Cells with no observation
// are NaN unless dropIncomplete removes their rows.
func Pivot(s *records.Store, key string, metrics []string, dropIncomplete bool) (*WideTable, error) {
	if key == "" {
		key = records.ColGeo
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, invalid("pivot needs at least one metric")
	}
	sub, err := s.FilterIn(records.ColMetric, metrics...)
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, m := range metrics {
		if _, dup := col[m]; dup {
			return nil, invalid("duplicate pivot metric %q", m)
		}
		col[m] = i
	}
	cells := map[string][][]float64{}
	for _, o := range sub.Rows() {
		if math.IsNaN(o.Est) {
			continue
		}
		k, _ := o.Text(key)
		if cells[k] == nil {
			cells[k] = make([][]float64, len(metrics))
		}
		ci := col[o.MetricName]
		cells[k][ci] = append(cells[k][ci], o.Est)
	}
	keys := make([]string, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	wt := NewWideTable(key, metrics)
	for _, k := range keys {
		vals := make([]float64, len(metrics))
		complete := true
		for i, xs := range cells[k] {
			if len(xs) == 0 {
				vals[i] = math.NaN()
				complete = false
				continue
			}
			vals[i] = stat.Mean(xs, nil)
		}
		if dropIncomplete && !complete {
			continue
		}
		if err := wt.AddRow(k, vals); err != nil {
			return nil, err
		}
	}
	if wt.Len() == 0 {
		return wt, &EmptyResultWarning{What: fmt.Sprintf("pivot of %v by %s", metrics, key)}
	}
	return wt, nil
}
