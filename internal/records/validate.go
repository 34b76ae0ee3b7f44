package records

import (
	"fmt"
	"math"
)

// BoundViolation is a row whose estimate falls outside its confidence bounds.
type BoundViolation struct {
	Row    int // 1-based position in the store
	Metric string
	Geo    string
	LCI    float64
	Est    float64
	UCI    float64
}

func (v BoundViolation) String() string {
	return fmt.Sprintf("row %d %s / %s: lci=%g est=%g uci=%g", v.Row, v.Metric, v.Geo, v.LCI, v.Est, v.UCI)
}

// Validate checks lci <= est <= uci for every row, comparing only the
// bounds that are present.
func Validate(s *Store) []BoundViolation {
	var out []BoundViolation
	for i, o := range s.rows {
		if math.IsNaN(o.Est) {
			continue
		}
		bad := (!math.IsNaN(o.LCI) && o.LCI > o.Est) || (!math.IsNaN(o.UCI) && o.Est > o.UCI)
		if bad {
			out = append(out, BoundViolation{Row: i + 1, Metric: o.MetricName, Geo: o.GeoName, LCI: o.LCI, Est: o.Est, UCI: o.UCI})
		}
	}
	return out
}
