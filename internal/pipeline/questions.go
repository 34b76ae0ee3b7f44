package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/KaramelBytes/healthlens-cli/internal/analysis"
	"github.com/KaramelBytes/healthlens-cli/internal/chart"
	"github.com/KaramelBytes/healthlens-cli/internal/records"
)

// Metric names used by the built-in questions.
const (
	MetricObesity          = "Obesity"
	MetricDiabetes         = "Diabetes"
	MetricMentalDistress   = "Frequent Mental Distress"
	MetricPhysicalDistress = "Frequent Physical Distress"
	MetricFirearmSuicides  = "Firearm Suicides"
	MetricBingeDrinking    = "Binge Drinking"
	MetricPrematureDeaths  = "Premature Deaths (All Causes)"
	MetricDentalCare       = "Dental Care"
)

var registry = []Question{
	{ID: 1, Slug: "obesity-extremes", Title: "Cities with the highest and lowest obesity rates", run: obesityExtremes},
	{ID: 2, Slug: "mental-vs-diabetes", Title: "Frequent mental distress vs diabetes", run: mentalVsDiabetes},
	{ID: 3, Slug: "firearm-binge-distress", Title: "Firearm suicides vs binge drinking and mental distress", run: firearmBingeDistress},
	{ID: 4, Slug: "mental-distress-by-state", Title: "Frequent mental distress by state", run: mentalDistressByState},
	{ID: 5, Slug: "premature-deaths-vs-national", Title: "States above or below the national premature death average", run: prematureVsNational},
	{ID: 6, Slug: "dental-vs-physical", Title: "Dental care vs frequent physical distress", run: dentalVsPhysical},
	{ID: 7, Slug: "metric-by-source", Title: "Metric estimates by data source", run: metricBySource},
	{ID: 8, Slug: "dental-vs-diabetes", Title: "Lack of dental care vs diabetes", run: dentalVsDiabetes},
	{ID: 9, Slug: "premature-deaths-top", Title: "Cities with the highest premature death rates", run: prematureTop},
	{ID: 10, Slug: "obesity-by-state", Title: "Obesity distribution within states", run: obesityByState},
}

func obesityExtremes(_ context.Context, s *records.Store, env Env, res *Result) error {
	m, err := requireSlice(s, MetricObesity)
	if err != nil {
		return err
	}
	n := env.topN()
	top, err := analysis.TopN(m, records.ColEst, n, true)
	if err != nil {
		return err
	}
	bottom, err := analysis.TopN(m, records.ColEst, n, false)
	if err != nil {
		return err
	}
	res.Tables = append(res.Tables,
		rankTable(fmt.Sprintf("Top %d cities by obesity rate", n), top),
		rankTable(fmt.Sprintf("Bottom %d cities by obesity rate", n), bottom),
	)
	if err := renderRanking(env, res, chartPath(env, res, "top"), fmt.Sprintf("Top %d Cities by Obesity Rate", n), top); err != nil {
		return err
	}
	return renderRanking(env, res, chartPath(env, res, "bottom"), fmt.Sprintf("Bottom %d Cities by Obesity Rate", n), bottom)
}

func mentalVsDiabetes(_ context.Context, s *records.Store, env Env, res *Result) error {
	return correlate(s, env, res, "Mental Distress vs Diabetes",
		metricAlias{MetricMentalDistress, "mental_distress"},
		metricAlias{MetricDiabetes, "diabetes"},
	)
}

func firearmBingeDistress(_ context.Context, s *records.Store, env Env, res *Result) error {
	return correlate(s, env, res, "Firearm Suicides, Binge Drinking and Mental Distress",
		metricAlias{MetricFirearmSuicides, "firearm_suicide"},
		metricAlias{MetricBingeDrinking, "binge_drinking"},
		metricAlias{MetricMentalDistress, "mental_distress"},
	)
}

func mentalDistressByState(_ context.Context, s *records.Store, env Env, res *Result) error {
	m, err := requireSlice(s, MetricMentalDistress)
	if err != nil {
		return err
	}
	groups, err := analysis.GroupMean(m.Rows(), records.ColState, records.ColEst)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		res.warn(&analysis.EmptyResultWarning{What: MetricMentalDistress + " by state"})
	}
	t := Table{Title: "Average frequent mental distress by state", Headers: []string{"State", "Mean", "Cities"}}
	labels := make([]string, len(groups))
	vals := make([]float64, len(groups))
	for i, g := range groups {
		t.Rows = append(t.Rows, []string{g.Key(), num(g.Mean), strconv.Itoa(g.Count)})
		labels[i], vals[i] = g.Key(), g.Mean
	}
	res.Tables = append(res.Tables, t)
	return renderBars(env, res, chartPath(env, res, ""), chart.BarChart{
		Title:  "Average Rate of Frequent Mental Distress by State",
		Labels: labels,
		Series: []chart.Series{{Name: "mean", Values: vals}},
	})
}

func prematureVsNational(_ context.Context, s *records.Store, env Env, res *Result) error {
	m, err := requireSlice(s, MetricPrematureDeaths)
	if err != nil {
		return err
	}
	rows := m.Rows()
	groups, err := analysis.GroupMean(rows, records.ColState, records.ColEst)
	if err != nil {
		return err
	}
	baseline, err := analysis.Baseline(rows, records.ColEst)
	if err != nil {
		return err
	}
	if math.IsNaN(baseline) {
		res.warn(&analysis.EmptyResultWarning{What: MetricPrematureDeaths + " national average"})
	}
	res.note("National average: %s", num(baseline))

	flags := analysis.AboveBaseline(groups, baseline)
	t := Table{Title: "Premature deaths by state vs national average", Headers: []string{"State", "Mean", "Above national"}}
	labels := make([]string, len(flags))
	above := make([]float64, len(flags))
	below := make([]float64, len(flags))
	var nAbove int
	for i, f := range flags {
		t.Rows = append(t.Rows, []string{f.Key(), num(f.Mean), strconv.FormatBool(f.Above)})
		labels[i] = f.Key()
		if f.Above {
			above[i], below[i] = f.Mean, math.NaN()
			nAbove++
		} else {
			above[i], below[i] = math.NaN(), f.Mean
		}
	}
	res.Tables = append(res.Tables, t)
	res.note("%d of %d states above the national average", nAbove, len(flags))
	return renderBars(env, res, chartPath(env, res, ""), chart.BarChart{
		Title:  fmt.Sprintf("State Estimates Compared to National Average (%s)", num(baseline)),
		Labels: labels,
		Series: []chart.Series{
			{Name: "Above national avg", Values: above},
			{Name: "At or below", Values: below},
		},
	})
}

func dentalVsPhysical(_ context.Context, s *records.Store, env Env, res *Result) error {
	wt, err := joinMetrics(s, res,
		metricAlias{MetricDentalCare, "dental_care"},
		metricAlias{MetricPhysicalDistress, "physical_distress"},
	)
	if err != nil {
		return err
	}
	x, _ := wt.Column("dental_care")
	y, _ := wt.Column("physical_distress")
	sc := chart.ScatterChart{
		Title:  "Dental Care vs Physical Distress",
		XLabel: "Dental Care (%)",
		YLabel: "Physical Distress (%)",
		X:      x,
		Y:      y,
	}
	fit, err := analysis.Fit(x, y)
	switch {
	case err == nil:
		res.note("Trend: physical_distress = %.3f + %.3f * dental_care (r = %s, n = %d)", fit.Intercept, fit.Slope, num(fit.R), fit.N)
		sc.Trend = fit.At
	case errors.Is(err, analysis.ErrInvalidArgument):
		res.warn(fmt.Errorf("no trend line: %w", err))
	default:
		return err
	}
	res.Tables = append(res.Tables, wideTable("Dental care and physical distress by city", wt))
	return renderScatter(env, res, chartPath(env, res, ""), sc)
}

func metricBySource(_ context.Context, s *records.Store, env Env, res *Result) error {
	groups, err := analysis.GroupMeans(s.Rows(), []string{records.ColMetric, records.ColSource}, records.ColEst)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		res.warn(&analysis.EmptyResultWarning{What: "metric by source"})
	}
	t := Table{Title: "Mean estimate by metric and source", Headers: []string{"Metric", "Source", "Mean", "Rows"}}
	var metrics, sources []string
	seenM, seenS := map[string]bool{}, map[string]bool{}
	cell := map[[2]string]float64{}
	for _, g := range groups {
		metric, source := g.Keys[0], g.Keys[1]
		t.Rows = append(t.Rows, []string{metric, source, num(g.Mean), strconv.Itoa(g.Count)})
		if !seenM[metric] {
			seenM[metric] = true
			metrics = append(metrics, metric)
		}
		if !seenS[source] {
			seenS[source] = true
			sources = append(sources, source)
		}
		cell[[2]string{metric, source}] = g.Mean
	}
	sort.Strings(sources)
	res.Tables = append(res.Tables, t)

	series := make([]chart.Series, len(sources))
	for i, src := range sources {
		vals := make([]float64, len(metrics))
		for j, m := range metrics {
			v, ok := cell[[2]string{m, src}]
			if !ok {
				v = math.NaN()
			}
			vals[j] = v
		}
		series[i] = chart.Series{Name: src, Values: vals}
	}
	return renderBars(env, res, chartPath(env, res, ""), chart.BarChart{
		Title:      "Comparison of Metrics by Source",
		Labels:     metrics,
		Series:     series,
		Horizontal: true,
	})
}

func dentalVsDiabetes(_ context.Context, s *records.Store, env Env, res *Result) error {
	metrics := []string{MetricDentalCare, MetricDiabetes}
	for _, m := range metrics {
		if err := s.RequireMetric(m); err != nil {
			return err
		}
	}
	wt, err := analysis.Pivot(s, records.ColGeo, metrics, true)
	if err != nil {
		if !analysis.IsWarning(err) {
			return err
		}
		res.warn(err)
	}
	cm := analysis.PearsonMatrix(wt)
	r, _ := cm.At(MetricDentalCare, MetricDiabetes)
	res.note("Correlation between lack of Dental Care and Diabetes: %s (n = %d)", num(r), wt.Len())
	res.Tables = append(res.Tables, wideTable("Mean estimate per city", wt))

	x, _ := wt.Column(MetricDentalCare)
	y, _ := wt.Column(MetricDiabetes)
	return renderScatter(env, res, chartPath(env, res, ""), chart.ScatterChart{
		Title:  fmt.Sprintf("Dental Care vs Diabetes Rates by City (r = %s)", num(r)),
		XLabel: "Lack of Dental Care (%)",
		YLabel: "Diabetes Prevalence (%)",
		X:      x,
		Y:      y,
	})
}

func prematureTop(_ context.Context, s *records.Store, env Env, res *Result) error {
	m, err := requireSlice(s, MetricPrematureDeaths)
	if err != nil {
		return err
	}
	top, err := analysis.TopN(m, records.ColEst, 15, true)
	if err != nil {
		return err
	}
	res.Tables = append(res.Tables, rankTable("Top 15 cities by premature death rate", top))
	return renderRanking(env, res, chartPath(env, res, ""), "Top 15 Cities by Premature Death Rates", top)
}

func obesityByState(_ context.Context, s *records.Store, env Env, res *Result) error {
	m, err := requireSlice(s, MetricObesity)
	if err != nil {
		return err
	}
	byState := map[string][]float64{}
	for _, o := range m.Rows() {
		if math.IsNaN(o.Est) {
			continue
		}
		byState[o.StateAbbr] = append(byState[o.StateAbbr], o.Est)
	}
	states := make([]string, 0, len(byState))
	for st := range byState {
		states = append(states, st)
	}
	sort.Strings(states)
	if len(states) == 0 {
		res.warn(&analysis.EmptyResultWarning{What: MetricObesity + " by state"})
	}

	groups, err := analysis.GroupMean(m.Rows(), records.ColState, records.ColEst)
	if err != nil {
		return err
	}
	t := Table{Title: "Obesity by state", Headers: []string{"State", "Cities", "Mean", "Min", "Max", "Spread"}}
	means := groups.AsMap()
	values := make([][]float64, len(states))
	for i, st := range states {
		vals := byState[st]
		values[i] = vals
		lo, hi := vals[0], vals[0]
		for _, v := range vals {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		t.Rows = append(t.Rows, []string{st, strconv.Itoa(len(vals)), num(means[st]), num(lo), num(hi), num(hi - lo)})
	}
	res.Tables = append(res.Tables, t)
	return renderBox(env, res, chartPath(env, res, ""), chart.BoxChart{
		Title:  "Distribution of Obesity Rates by State",
		YLabel: "Estimated Rate (%)",
		Groups: states,
		Values: values,
	})
}

type metricAlias struct {
	Metric string
	Alias  string
}

// joinMetrics joins metric slices on geo_name. An empty join is recorded as
// a warning and the empty table is returned.
func joinMetrics(s *records.Store, res *Result, parts ...metricAlias) (*analysis.WideTable, error) {
	aliased := make([]analysis.Aliased, len(parts))
	for i, p := range parts {
		m, err := requireSlice(s, p.Metric)
		if err != nil {
			return nil, err
		}
		aliased[i] = analysis.As(m, p.Alias)
	}
	wt, err := analysis.Join(records.ColGeo, aliased...)
	if err != nil {
		if !analysis.IsWarning(err) {
			return nil, err
		}
		res.warn(err)
	}
	if wt.Duplicates > 0 {
		res.note("%d duplicate city rows ignored in the join", wt.Duplicates)
	}
	return wt, nil
}

func correlate(s *records.Store, env Env, res *Result, title string, parts ...metricAlias) error {
	wt, err := joinMetrics(s, res, parts...)
	if err != nil {
		return err
	}
	cm := analysis.PearsonMatrix(wt)
	res.note("%d cities with all of: %s", wt.Len(), joinAliases(parts))
	t := Table{Title: "Pearson correlation", Headers: append([]string{""}, cm.Columns...)}
	for i, c := range cm.Columns {
		row := []string{c}
		for j := range cm.Columns {
			row = append(row, num(cm.Values[i][j]))
		}
		t.Rows = append(t.Rows, row)
	}
	res.Tables = append(res.Tables, t)
	for _, p := range cm.Pairs() {
		res.note("r(%s, %s) = %s", p.A, p.B, num(p.R))
	}
	path := chartPath(env, res, "")
	if path == "" {
		return nil
	}
	if err := env.Renderer.Heatmap(path, chart.Matrix{Title: title, Columns: cm.Columns, Values: cm.Values}); err != nil {
		return err
	}
	res.Charts = append(res.Charts, path)
	return nil
}

func joinAliases(parts []metricAlias) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p.Alias
	}
	return out
}

func rankTable(title string, rows []records.Observation) Table {
	t := Table{Title: title, Headers: []string{"#", "City", "State", "Estimate", "Period"}}
	for i, o := range rows {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), o.GeoName, o.StateAbbr, num(o.Est), o.DataPeriod})
	}
	return t
}

func wideTable(title string, wt *analysis.WideTable) Table {
	t := Table{Title: title, Headers: append([]string{wt.Key}, wt.Columns()...)}
	for r, k := range wt.Keys() {
		row := []string{k}
		for c := range wt.Columns() {
			row = append(row, num(wt.Value(r, c)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func renderRanking(env Env, res *Result, path, title string, rows []records.Observation) error {
	labels := make([]string, len(rows))
	vals := make([]float64, len(rows))
	// Horizontal bars grow upwards, so the first rank goes last.
	for i, o := range rows {
		j := len(rows) - 1 - i
		labels[j], vals[j] = o.GeoName, o.Est
	}
	return renderBars(env, res, path, chart.BarChart{
		Title:      title,
		Labels:     labels,
		Series:     []chart.Series{{Name: records.ColEst, Values: vals}},
		Horizontal: true,
	})
}

func renderBars(env Env, res *Result, path string, c chart.BarChart) error {
	if path == "" {
		return nil
	}
	if err := env.Renderer.Bars(path, c); err != nil {
		return err
	}
	res.Charts = append(res.Charts, path)
	return nil
}

func renderScatter(env Env, res *Result, path string, c chart.ScatterChart) error {
	if path == "" {
		return nil
	}
	if err := env.Renderer.Scatter(path, c); err != nil {
		return err
	}
	res.Charts = append(res.Charts, path)
	return nil
}

func renderBox(env Env, res *Result, path string, c chart.BoxChart) error {
	if path == "" {
		return nil
	}
	if err := env.Renderer.Box(path, c); err != nil {
		return err
	}
	res.Charts = append(res.Charts, path)
	return nil
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
