package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Load reads src and builds a Store. Columns outside the dataset schema are
// dropped and reported by Store.DroppedColumns.
func Load(ctx context.Context, src Source, nf NumberFormat) (*Store, error) {
	name := src.Name()
	header, raw, err := src.Read(ctx)
	if err != nil {
		return nil, &IngestError{Source: name, Err: err}
	}
	index := map[string]int{}
	var dropped []string
	for i, h := range header {
		col := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if !IsKnown(col) {
			dropped = append(dropped, strings.TrimSpace(h))
			continue
		}
		if _, dup := index[col]; dup {
			return nil, &IngestError{Source: name, Column: col, Err: errors.New("duplicate column in header")}
		}
		index[col] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &IngestError{Source: name, Err: fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))}
	}

	rows := make([]Observation, 0, len(raw))
	for r, rec := range raw {
		if blank(rec) {
			continue
		}
		var o Observation
		for _, c := range RequiredColumns {
			var cell string
			if idx := index[c]; idx < len(rec) {
				cell = strings.TrimSpace(rec[idx])
			}
			if err := o.set(c, cell, nf); err != nil {
				return nil, &IngestError{Source: name, Row: r + 1, Column: c, Err: err}
			}
		}
		rows = append(rows, o)
	}
	s := NewStore(name, rows)
	s.dropped = dropped
	return s, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
