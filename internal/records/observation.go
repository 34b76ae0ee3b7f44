package records

import "math"

// Column names of the survey dataset.
const (
	ColMetric     = "metric_name"
	ColPeriod     = "data_period"
	ColEst        = "est"
	ColLCI        = "lci"
	ColUCI        = "uci"
	ColGeo        = "geo_name"
	ColState      = "state_abbr"
	ColPeriodType = "period_type"
	ColSource     = "source_name"
)

// RequiredColumns lists the columns every source must provide, in canonical order.
var RequiredColumns = []string{
	ColMetric, ColPeriod, ColEst, ColLCI, ColUCI,
	ColGeo, ColState, ColPeriodType, ColSource,
}

var numericColumns = map[string]bool{ColEst: true, ColLCI: true, ColUCI: true}

// IsKnown reports whether name is one of the dataset columns.
func IsKnown(name string) bool {
	for _, c := range RequiredColumns {
		if c == name {
			return true
		}
	}
	return false
}

// IsNumeric reports whether the column holds float values.
func IsNumeric(name string) bool { return numericColumns[name] }

// Observation is one row of the dataset. Missing numeric cells are NaN.
type Observation struct {
	MetricName string  `json:"metric_name"`
	DataPeriod string  `json:"data_period"`
	Est        float64 `json:"est"`
	LCI        float64 `json:"lci"`
	UCI        float64 `json:"uci"`
	GeoName    string  `json:"geo_name"`
	StateAbbr  string  `json:"state_abbr"`
	PeriodType string  `json:"period_type"`
	SourceName string  `json:"source_name"`
}

// Text returns the value of a string column.
func (o Observation) Text(column string) (string, bool) {
	switch column {
	case ColMetric:
		return o.MetricName, true
	case ColPeriod:
		return o.DataPeriod, true
	case ColGeo:
		return o.GeoName, true
	case ColState:
		return o.StateAbbr, true
	case ColPeriodType:
		return o.PeriodType, true
	case ColSource:
		return o.SourceName, true
	}
	return "", false
}

// Number returns the value of a numeric column.
func (o Observation) Number(column string) (float64, bool) {
	switch column {
	case ColEst:
		return o.Est, true
	case ColLCI:
		return o.LCI, true
	case ColUCI:
		return o.UCI, true
	}
	return math.NaN(), false
}

func (o *Observation) set(column, raw string, nf NumberFormat) error {
	if IsNumeric(column) {
		v, err := ParseNumber(raw, nf)
		if err != nil {
			return err
		}
		switch column {
		case ColEst:
			o.Est = v
		case ColLCI:
			o.LCI = v
		case ColUCI:
			o.UCI = v
		}
		return nil
	}
	switch column {
	case ColMetric:
		o.MetricName = raw
	case ColPeriod:
		o.DataPeriod = raw
	case ColGeo:
		o.GeoName = raw
	case ColState:
		o.StateAbbr = raw
	case ColPeriodType:
		o.PeriodType = raw
	case ColSource:
		o.SourceName = raw
	}
	return nil
}
