package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"gonum.org/v1/gonum/stat"
)

// Group is the mean of a value column over one group key.
type Group struct {
	Keys  []string
	Mean  float64
	Count int // non-missing values that contributed
}

// Key joins the group keys for display.
func (g Group) Key() string { return strings.Join(g.Keys, " | ") }

// Groups is an ordered list of group means.
type Groups []Group

// AsMap returns key -> mean.
func (gs Groups) AsMap() map[string]float64 {
	out := make(map[string]float64, len(gs))
	for _, g := range gs {
		out[g.Key()] = g.Mean
	}
	return out
}

// GroupFlag marks a group mean relative to a baseline.
type GroupFlag struct {
	Group
	Above bool
}

// GroupMean computes the mean of valueColumn per distinct groupColumn value.
// Missing values are skipped and groups without any value are left out.
func GroupMean(rows []records.Observation, groupColumn, valueColumn string) (Groups, error) {
	return GroupMeans(rows, []string{groupColumn}, valueColumn)
}

// GroupMeans is GroupMean over a composite key. Groups are sorted by key.
func GroupMeans(rows []records.Observation, groupColumns []string, valueColumn string) (Groups, error) {
	if len(groupColumns) == 0 {
		return nil, invalid("group-by needs at least one column")
	}
	for _, c := range groupColumns {
		if !records.IsKnown(c) || records.IsNumeric(c) {
			return nil, &records.SchemaError{Kind: "column", Name: c}
		}
	}
	if !records.IsNumeric(valueColumn) {
		return nil, &records.SchemaError{Kind: "column", Name: valueColumn, Known: []string{records.ColEst, records.ColLCI, records.ColUCI}}
	}
	type acc struct {
		keys []string
		vals []float64
	}
	groups := map[string]*acc{}
	for _, o := range rows {
		v, _ := o.Number(valueColumn)
		if math.IsNaN(v) {
			continue
		}
		keys := make([]string, len(groupColumns))
		for i, c := range groupColumns {
			keys[i], _ = o.Text(c)
		}
		id := strings.Join(keys, "\x00")
		a := groups[id]
		if a == nil {
			a = &acc{keys: keys}
			groups[id] = a
		}
		a.vals = append(a.vals, v)
	}
	out := make(Groups, 0, len(groups))
	for _, a := range groups {
		out = append(out, Group{Keys: a.keys, Mean: stat.Mean(a.vals, nil), Count: len(a.vals)})
	}
	sort.Slice(out, func(i, j int) bool {
		for k := range out[i].Keys {
			if out[i].Keys[k] != out[j].Keys[k] {
				return out[i].Keys[k] < out[j].Keys[k]
			}
		}
		return false
	})
	return out, nil
}

// Baseline is the unweighted mean of valueColumn over all rows. It is not
// the mean of group means: groups with more rows weigh more. NaN when no
// row has a value.
func Baseline(rows []records.Observation, valueColumn string) (float64, error) {
	if !records.IsNumeric(valueColumn) {
		return math.NaN(), &records.SchemaError{Kind: "column", Name: valueColumn}
	}
	vals := make([]float64, 0, len(rows))
	for _, o := range rows {
		if v, _ := o.Number(valueColumn); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	return stat.Mean(vals, nil), nil
}

// AboveBaseline flags each group whose mean is strictly greater than baseline.
func AboveBaseline(groups Groups, baseline float64) []GroupFlag {
	out := make([]GroupFlag, len(groups))
	for i, g := range groups {
		out[i] = GroupFlag{Group: g, Above: g.Mean > baseline}
	}
	return out
}
