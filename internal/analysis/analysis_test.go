package analysis

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(metric, geo, state string, est float64) records.Observation {
	return records.Observation{
		MetricName: metric, DataPeriod: "2019", Est: est, LCI: est - 1, UCI: est + 1,
		GeoName: geo, StateAbbr: state, PeriodType: "1 Year", SourceName: "BRFSS",
	}
}

func store(rows ...records.Observation) *records.Store {
	return records.NewStore("test.csv", rows)
}

func TestSliceKeepsOneMetric(t *testing.T) {
	s := store(
		obs("Obesity", "A", "CA", 30),
		obs("Diabetes", "A", "CA", 10),
		obs("Obesity", "B", "NY", 40),
	)
	m, err := Slice(s, "Obesity")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	for _, o := range m.Rows() {
		assert.Equal(t, "Obesity", o.MetricName)
	}

	empty, err := Slice(s, "Nothing")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestTopNDisjoint(t *testing.T) {
	var rows []records.Observation
	for i := 0; i < 25; i++ {
		rows = append(rows, obs("Obesity", fmt.Sprintf("city-%02d", i), "CA", float64(i)))
	}
	m, err := Slice(store(rows...), "Obesity")
	require.NoError(t, err)

	top, err := TopN(m, records.ColEst, 10, true)
	require.NoError(t, err)
	bottom, err := TopN(m, records.ColEst, 10, false)
	require.NoError(t, err)
	require.Len(t, top, 10)
	require.Len(t, bottom, 10)
	assert.InDelta(t, 24, top[0].Est, 1e-9)
	assert.InDelta(t, 0, bottom[0].Est, 1e-9)

	seen := map[string]bool{}
	for _, o := range top {
		seen[o.GeoName] = true
	}
	for _, o := range bottom {
		assert.False(t, seen[o.GeoName], "%s in both top and bottom", o.GeoName)
	}
}

func TestTopNMissingLastAndStable(t *testing.T) {
	m, err := Slice(store(
		obs("Obesity", "nan", "CA", math.NaN()),
		obs("Obesity", "first", "CA", 5),
		obs("Obesity", "second", "CA", 5),
		obs("Obesity", "high", "CA", 9),
	), "Obesity")
	require.NoError(t, err)

	desc, err := TopN(m, records.ColEst, 10, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "first", "second", "nan"}, geos(desc))

	asc, err := TopN(m, records.ColEst, 10, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "high", "nan"}, geos(asc))
}

func TestTopNInvalid(t *testing.T) {
	m, err := Slice(store(obs("Obesity", "A", "CA", 1)), "Obesity")
	require.NoError(t, err)
	_, err = TopN(m, records.ColEst, 0, true)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = TopN(m, records.ColGeo, 3, true)
	var se *records.SchemaError
	assert.ErrorAs(t, err, &se)
}

func geos(rows []records.Observation) []string {
	out := make([]string, len(rows))
	for i, o := range rows {
		out[i] = o.GeoName
	}
	return out
}

func joinStore() *records.Store {
	return store(
		obs("Obesity", "A", "CA", 30),
		obs("Obesity", "B", "NY", 40),
		obs("Obesity", "C", "TX", 35),
		obs("Diabetes", "A", "CA", 10),
		obs("Diabetes", "B", "NY", 20),
		obs("Diabetes", "D", "WA", 15),
	)
}

func TestJoinTwoMetrics(t *testing.T) {
	s := joinStore()
	ob, _ := Slice(s, "Obesity")
	di, _ := Slice(s, "Diabetes")

	wt, err := Join(records.ColGeo, As(ob, "obesity"), As(di, "diabetes"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, wt.Keys())
	assert.Equal(t, []string{"obesity", "diabetes"}, wt.Columns())
	assert.LessOrEqual(t, wt.Len(), ob.Len())
	assert.LessOrEqual(t, wt.Len(), di.Len())

	v, ok := wt.Lookup("B", "diabetes")
	require.True(t, ok)
	assert.InDelta(t, 20, v, 1e-9)

	cm := PearsonMatrix(wt)
	r, ok := cm.At("obesity", "diabetes")
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestJoinCommutesOnRowSet(t *testing.T) {
	s := joinStore()
	ob, _ := Slice(s, "Obesity")
	di, _ := Slice(s, "Diabetes")

	ab, err := Join("", As(ob, ""), As(di, ""))
	require.NoError(t, err)
	ba, err := Join("", As(di, ""), As(ob, ""))
	require.NoError(t, err)
	assert.ElementsMatch(t, ab.Keys(), ba.Keys())
	assert.Equal(t, []string{"Obesity", "Diabetes"}, ab.Columns())
}

func TestJoinDropsMissingAndDuplicates(t *testing.T) {
	s := store(
		obs("Obesity", "A", "CA", 30),
		obs("Obesity", "A", "CA", 99),
		obs("Obesity", "B", "NY", 40),
		obs("Diabetes", "A", "CA", 10),
		obs("Diabetes", "B", "NY", math.NaN()),
	)
	ob, _ := Slice(s, "Obesity")
	di, _ := Slice(s, "Diabetes")
	wt, err := Join(records.ColGeo, As(ob, "o"), As(di, "d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, wt.Keys())
	assert.Equal(t, 1, wt.Duplicates)
	v, _ := wt.Lookup("A", "o")
	assert.InDelta(t, 30, v, 1e-9, "first occurrence wins")
}

func TestJoinEmptyIsWarning(t *testing.T) {
	s := store(obs("Obesity", "A", "CA", 30), obs("Diabetes", "B", "NY", 10))
	ob, _ := Slice(s, "Obesity")
	di, _ := Slice(s, "Diabetes")
	wt, err := Join(records.ColGeo, As(ob, "o"), As(di, "d"))
	require.Error(t, err)
	assert.True(t, IsWarning(err))
	var je *EmptyJoinError
	require.ErrorAs(t, err, &je)
	require.NotNil(t, wt)
	assert.Equal(t, 0, wt.Len())
}

func TestJoinRejectsBadInput(t *testing.T) {
	s := joinStore()
	ob, _ := Slice(s, "Obesity")
	_, err := Join(records.ColGeo, As(ob, "x"), As(ob, "x"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Join(records.ColEst, As(ob, "x"))
	var se *records.SchemaError
	assert.ErrorAs(t, err, &se)

	_, err = Join(records.ColGeo)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPivot(t *testing.T) {
	s := store(
		obs("Dental", "A", "CA", 60),
		obs("Dental", "A", "CA", 70),
		obs("Diabetes", "A", "CA", 10),
		obs("Dental", "B", "NY", 50),
	)
	wt, err := Pivot(s, records.ColGeo, []string{"Dental", "Diabetes"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, wt.Keys())
	v, _ := wt.Lookup("A", "Dental")
	assert.InDelta(t, 65, v, 1e-9)
	v, _ = wt.Lookup("B", "Diabetes")
	assert.True(t, math.IsNaN(v))

	complete, err := Pivot(s, records.ColGeo, []string{"Dental", "Diabetes"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, complete.Keys())

	_, err = Pivot(s, records.ColGeo, []string{"Nothing"}, true)
	assert.True(t, IsWarning(err))
}

func TestGroupMeanAndBaseline(t *testing.T) {
	rows := []records.Observation{
		obs("Premature", "x", "CA", 10),
		obs("Premature", "y", "CA", 20),
		obs("Premature", "z", "NY", 5),
		obs("Premature", "w", "NY", math.NaN()),
	}
	groups, err := GroupMean(rows, records.ColState, records.ColEst)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"CA": 15, "NY": 5}, groups.AsMap())
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 1, groups[1].Count)

	base, err := Baseline(rows, records.ColEst)
	require.NoError(t, err)
	assert.InDelta(t, 35.0/3.0, base, 1e-9)

	flags := AboveBaseline(groups, base)
	require.Len(t, flags, 2)
	assert.True(t, flags[0].Above)
	assert.False(t, flags[1].Above)

	equal := AboveBaseline(Groups{{Keys: []string{"EQ"}, Mean: 5}}, 5)
	assert.False(t, equal[0].Above, "equal to baseline is not above")
}

func TestGroupMeansComposite(t *testing.T) {
	a := obs("Obesity", "x", "CA", 10)
	b := obs("Obesity", "y", "CA", 20)
	b.SourceName = "NVSS"
	c := obs("Diabetes", "z", "CA", 4)
	groups, err := GroupMeans([]records.Observation{a, b, c}, []string{records.ColMetric, records.ColSource}, records.ColEst)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "Diabetes | BRFSS", groups[0].Key())
	assert.Equal(t, "Obesity | NVSS", groups[2].Key())

	_, err = GroupMean(nil, records.ColEst, records.ColEst)
	var se *records.SchemaError
	assert.ErrorAs(t, err, &se)
	_, err = GroupMeans(nil, nil, records.ColEst)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPearsonMatrixProperties(t *testing.T) {
	wt := NewWideTable(records.ColGeo, []string{"a", "b", "flat", "sparse"})
	rows := [][]float64{
		{1, 2, 7, 1},
		{2, 1, 7, math.NaN()},
		{3, 5, 7, math.NaN()},
		{4, 3, 7, math.NaN()},
	}
	for i, r := range rows {
		require.NoError(t, wt.AddRow(fmt.Sprint(i), r))
	}
	cm := PearsonMatrix(wt)
	n := len(cm.Columns)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a, b := cm.Values[i][j], cm.Values[j][i]
			if math.IsNaN(a) {
				assert.True(t, math.IsNaN(b))
				continue
			}
			assert.InDelta(t, a, b, 1e-12)
			assert.LessOrEqual(t, math.Abs(a), 1.0)
		}
	}
	assert.Equal(t, 1.0, cm.Values[0][0])
	assert.Equal(t, 1.0, cm.Values[1][1])
	assert.True(t, math.IsNaN(cm.Values[2][2]), "constant column has no defined correlation")
	assert.True(t, math.IsNaN(cm.Values[0][2]))
	assert.True(t, math.IsNaN(cm.Values[0][3]), "one complete pair is not enough")
	assert.Equal(t, 1, cm.N[0][3])
	assert.Equal(t, 4, cm.N[0][1])

	pairs := cm.Pairs()
	require.NotEmpty(t, pairs)
	assert.Equal(t, "a", pairs[0].A)
	assert.Equal(t, "b", pairs[0].B)
	assert.True(t, math.IsNaN(pairs[len(pairs)-1].R))
}

func TestFit(t *testing.T) {
	fit, err := Fit([]float64{1, 2, 3, math.NaN()}, []float64{3, 5, 7, 100})
	require.NoError(t, err)
	assert.InDelta(t, 1, fit.Intercept, 1e-9)
	assert.InDelta(t, 2, fit.Slope, 1e-9)
	assert.InDelta(t, 1, fit.R, 1e-9)
	assert.Equal(t, 3, fit.N)
	assert.InDelta(t, 11, fit.At(5), 1e-9)

	_, err = Fit([]float64{2, 2}, []float64{1, 3})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Fit([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDescribeMarkdown(t *testing.T) {
	bad := obs("Obesity", "B|ad", "NY", 50)
	bad.UCI = 40
	s := store(obs("Obesity", "A", "CA", 30), bad)
	rep := Describe(s, 5)
	assert.Equal(t, 2, rep.Rows)
	assert.Len(t, rep.Cols, len(records.RequiredColumns))
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "1 rows violate")

	var est ColumnSummary
	for _, c := range rep.Cols {
		if c.Name == records.ColEst {
			est = c
		}
	}
	assert.Equal(t, "numeric", est.Kind)
	assert.InDelta(t, 40, est.Mean, 1e-9)
	assert.InDelta(t, 40, est.Median, 1e-9)
	assert.InDelta(t, 35, est.Q25, 1e-9)

	md := rep.Markdown()
	assert.True(t, strings.HasPrefix(md, "[DATASET SUMMARY]\n"))
	assert.Contains(t, md, "Shape: 2 rows x 9 columns")
	assert.Contains(t, md, "[SCHEMA]")
	assert.Contains(t, md, "[HEAD AND SAMPLE ROWS]")
	assert.Contains(t, md, "B/ad")
	assert.Contains(t, md, "[NOTES]")
}

func TestDescribeTruncatesOnRunes(t *testing.T) {
	long := strings.Repeat("ü", 100)
	rep := &Report{
		Cols:    []ColumnSummary{{Name: records.ColGeo, Kind: "categorical"}},
		Samples: [][]string{{long}},
	}
	md := rep.Markdown()
	assert.True(t, utf8.ValidString(md))
	assert.Contains(t, md, strings.Repeat("ü", 77)+"...")
	assert.NotContains(t, md, strings.Repeat("ü", 78))
}

func TestQuantile(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, quantile(v, 0.25), 1e-9)
	assert.InDelta(t, 2.5, quantile(v, 0.5), 1e-9)
	assert.Equal(t, 1.0, quantile(v, 0))
	assert.Equal(t, 4.0, quantile(v, 1))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}
