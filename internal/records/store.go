package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Store holds the loaded dataset. It is never mutated after construction;
// every transformation returns a new Store, so a Store may be shared by
// concurrent readers.
type Store struct {
	name    string
	columns []string
	rows    []Observation
	dropped []string
}

// NewStore builds a store over rows with every dataset column selected.
func NewStore(name string, rows []Observation) *Store {
	return &Store{
		name:    name,
		columns: append([]string(nil), RequiredColumns...),
		rows:    append([]Observation(nil), rows...),
	}
}

func (s *Store) derive(rows []Observation) *Store {
	return &Store{name: s.name, columns: s.columns, rows: rows, dropped: s.dropped}
}

// Name identifies the source the store was loaded from.
func (s *Store) Name() string { return s.name }

// Len returns the number of rows.
func (s *Store) Len() int { return len(s.rows) }

// Columns returns the selected column names.
func (s *Store) Columns() []string { return append([]string(nil), s.columns...) }

// DroppedColumns lists source columns that are not part of the dataset schema.
func (s *Store) DroppedColumns() []string { return append([]string(nil), s.dropped...) }

// Rows returns a copy of the observations in source order.
func (s *Store) Rows() []Observation { return append([]Observation(nil), s.rows...) }

// Has reports whether column is selected in this store.
func (s *Store) Has(column string) bool {
	for _, c := range s.columns {
		if c == column {
			return true
		}
	}
	return false
}

func (s *Store) require(column string) error {
	if !s.Has(column) {
		return unknownColumn(column, s.columns)
	}
	return nil
}

// SelectColumns returns a store restricted to the named columns.
func (s *Store) SelectColumns(names ...string) (*Store, error) {
	cols := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if err := s.require(n); err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		cols = append(cols, n)
	}
	return &Store{name: s.name, columns: cols, rows: s.rows, dropped: s.dropped}, nil
}

// FilterExact returns the rows whose column equals value. String columns
// compare as text; numeric columns compare as float64, and value may be a
// number or a numeric string. No match yields an empty store.
func (s *Store) FilterExact(column string, value any) (*Store, error) {
	if err := s.require(column); err != nil {
		return nil, err
	}
	if IsNumeric(column) {
		want, err := toFloat(value)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", column, err)
		}
		var out []Observation
		for _, o := range s.rows {
			if v, _ := o.Number(column); v == want {
				out = append(out, o)
			}
		}
		return s.derive(out), nil
	}
	want := fmt.Sprint(value)
	var out []Observation
	for _, o := range s.rows {
		if v, _ := o.Text(column); v == want {
			out = append(out, o)
		}
	}
	return s.derive(out), nil
}

// FilterIn returns rows whose string column matches any of values.
func (s *Store) FilterIn(column string, values ...string) (*Store, error) {
	if err := s.require(column); err != nil {
		return nil, err
	}
	if IsNumeric(column) {
		return nil, fmt.Errorf("filter %s: membership filter needs a text column", column)
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	var out []Observation
	for _, o := range s.rows {
		if v, _ := o.Text(column); set[v] {
			out = append(out, o)
		}
	}
	return s.derive(out), nil
}

// Strings returns a text column in row order.
func (s *Store) Strings(column string) ([]string, error) {
	if err := s.require(column); err != nil {
		return nil, err
	}
	if IsNumeric(column) {
		out := make([]string, len(s.rows))
		for i, o := range s.rows {
			v, _ := o.Number(column)
			if !math.IsNaN(v) {
				out[i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		return out, nil
	}
	out := make([]string, len(s.rows))
	for i, o := range s.rows {
		out[i], _ = o.Text(column)
	}
	return out, nil
}

// Floats returns a numeric column in row order, NaN for missing cells.
func (s *Store) Floats(column string) ([]float64, error) {
	if err := s.require(column); err != nil {
		return nil, err
	}
	if !IsNumeric(column) {
		return nil, fmt.Errorf("column %q is not numeric", column)
	}
	out := make([]float64, len(s.rows))
	for i, o := range s.rows {
		out[i], _ = o.Number(column)
	}
	return out, nil
}

// Distinct returns the distinct values of a text column in first-seen order.
func (s *Store) Distinct(column string) ([]string, error) {
	vals, err := s.Strings(column)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, v := range vals {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// HasMetric reports whether any row carries the metric name.
func (s *Store) HasMetric(metric string) bool {
	for _, o := range s.rows {
		if o.MetricName == metric {
			return true
		}
	}
	return false
}

// RequireMetric returns a SchemaError when the metric never occurs.
func (s *Store) RequireMetric(metric string) error {
	if s.HasMetric(metric) {
		return nil
	}
	known, _ := s.Distinct(ColMetric)
	return &SchemaError{Kind: "metric", Name: metric, Known: known}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case string:
		f, err := ParseNumber(x, NumberFormat{})
		if err != nil {
			return 0, err
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
