package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/healthlens-cli/internal/records"
)

// MetricSlice is the read-only subset of observations for one metric.
type MetricSlice struct {
	Metric string
	store  *records.Store
}

// Slice returns the rows whose metric_name equals metric.
func Slice(s *records.Store, metric string) (MetricSlice, error) {
	sub, err := s.FilterExact(records.ColMetric, metric)
	if err != nil {
		return MetricSlice{}, err
	}
	return MetricSlice{Metric: metric, store: sub}, nil
}

// Len returns the number of rows in the slice.
func (m MetricSlice) Len() int {
	if m.store == nil {
		return 0
	}
	return m.store.Len()
}

// Rows returns a copy of the slice rows in source order.
func (m MetricSlice) Rows() []records.Observation {
	if m.store == nil {
		return nil
	}
	return m.store.Rows()
}

// Store exposes the slice as a store for further filtering.
func (m MetricSlice) Store() *records.Store { return m.store }

// TopN sorts the slice by a numeric column and returns the first n rows.
// The sort is stable, so ties keep source order, and missing values sort
// last in both directions.
func TopN(m MetricSlice, column string, n int, descending bool) ([]records.Observation, error) {
	if n <= 0 {
		return nil, invalid("top-n needs n > 0, got %d", n)
	}
	if !records.IsNumeric(column) {
		return nil, &records.SchemaError{Kind: "column", Name: column, Known: []string{records.ColEst, records.ColLCI, records.ColUCI}}
	}
	if m.store == nil {
		return nil, nil
	}
	if !m.store.Has(column) {
		return nil, &records.SchemaError{Kind: "column", Name: column, Known: m.store.Columns()}
	}
	rows := m.store.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Number(column)
		b, _ := rows[j].Number(column)
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case descending:
			return a > b
		default:
			return a < b
		}
	})
	if n < len(rows) {
		rows = rows[:n]
	}
	return rows, nil
}
