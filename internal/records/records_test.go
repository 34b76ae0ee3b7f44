package records

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const healthCSV = `metric_name,group_name,data_period,est,lci,uci,geo_name,state_abbr,period_type,source_name
Obesity,Total,2019,31.2,30.1,32.4,Akron,OH,1 Year,BRFSS
Obesity,Total,2019,28.0,27.0,29.0,Austin,TX,1 Year,BRFSS
Diabetes,Total,2019,11.5,10.9,12.2,Akron,OH,1 Year,BRFSS
Diabetes,Total,2019,,,,"Austin",TX,1 Year,BRFSS
Premature Deaths (All Causes),Total,2018,"1,234.5",1200,1270,Akron,OH,1 Year,NVSS
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func loadCSV(t *testing.T, content string) *Store {
	t.Helper()
	src, err := SourceForPath(writeFile(t, "health.csv", content), SourceOptions{})
	require.NoError(t, err)
	s, err := Load(context.Background(), src, NumberFormat{})
	require.NoError(t, err)
	return s
}

func TestLoadCSV(t *testing.T) {
	s := loadCSV(t, healthCSV)
	assert.Equal(t, "health.csv", s.Name())
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, RequiredColumns, s.Columns())
	assert.Equal(t, []string{"group_name"}, s.DroppedColumns())

	rows := s.Rows()
	assert.Equal(t, "Akron", rows[0].GeoName)
	assert.InDelta(t, 31.2, rows[0].Est, 1e-9)
	assert.True(t, math.IsNaN(rows[3].Est), "empty est should be NaN")
	assert.InDelta(t, 1234.5, rows[4].Est, 1e-9)
}

func TestLoadMissingColumn(t *testing.T) {
	src := &CSVSource{Path: writeFile(t, "bad.csv", "metric_name,est\nObesity,1\n")}
	_, err := Load(context.Background(), src, NumberFormat{})
	var ie *IngestError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Error(), "missing required columns")
	assert.Contains(t, ie.Error(), "geo_name")
}

func TestLoadUnreadable(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv")}
	_, err := Load(context.Background(), src, NumberFormat{})
	var ie *IngestError
	require.ErrorAs(t, err, &ie)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMalformedNumber(t *testing.T) {
	content := strings.Join(RequiredColumns, ",") + "\nObesity,2019,abc,1,2,Akron,OH,1 Year,BRFSS\n"
	src := &CSVSource{Path: writeFile(t, "bad.csv", content)}
	_, err := Load(context.Background(), src, NumberFormat{})
	var ie *IngestError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Row)
	assert.Equal(t, ColEst, ie.Column)
}

func TestSourceForPathUnsupported(t *testing.T) {
	_, err := SourceForPath("data.parquet", SourceOptions{})
	var ie *IngestError
	assert.ErrorAs(t, err, &ie)
}

func TestSelectColumns(t *testing.T) {
	s := loadCSV(t, healthCSV)
	narrow, err := s.SelectColumns(ColGeo, ColEst)
	require.NoError(t, err)
	assert.Equal(t, []string{ColGeo, ColEst}, narrow.Columns())
	assert.Equal(t, s.Len(), narrow.Len())

	_, err = narrow.FilterExact(ColMetric, "Obesity")
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ColMetric, se.Name)

	_, err = s.SelectColumns("group_name")
	require.ErrorAs(t, err, &se)
}

func TestFilterExact(t *testing.T) {
	s := loadCSV(t, healthCSV)

	ob, err := s.FilterExact(ColMetric, "Obesity")
	require.NoError(t, err)
	assert.Equal(t, 2, ob.Len())
	for _, o := range ob.Rows() {
		assert.Equal(t, "Obesity", o.MetricName)
	}

	byNum, err := s.FilterExact(ColEst, 28)
	require.NoError(t, err)
	require.Equal(t, 1, byNum.Len())
	assert.Equal(t, "Austin", byNum.Rows()[0].GeoName)

	byStr, err := s.FilterExact(ColEst, "28.0")
	require.NoError(t, err)
	assert.Equal(t, 1, byStr.Len())

	none, err := s.FilterExact(ColMetric, "Smoking")
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())

	// the source store is untouched
	assert.Equal(t, 5, s.Len())
}

func TestFilterInAndDistinct(t *testing.T) {
	s := loadCSV(t, healthCSV)
	sub, err := s.FilterIn(ColMetric, "Obesity", "Diabetes")
	require.NoError(t, err)
	assert.Equal(t, 4, sub.Len())

	metrics, err := s.Distinct(ColMetric)
	require.NoError(t, err)
	assert.Equal(t, []string{"Obesity", "Diabetes", "Premature Deaths (All Causes)"}, metrics)

	assert.NoError(t, s.RequireMetric("Diabetes"))
	var se *SchemaError
	require.ErrorAs(t, s.RequireMetric("Smoking"), &se)
	assert.Equal(t, "metric", se.Kind)
}

func TestFloats(t *testing.T) {
	s := loadCSV(t, healthCSV)
	ests, err := s.Floats(ColEst)
	require.NoError(t, err)
	assert.Len(t, ests, 5)
	_, err = s.Floats(ColGeo)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	nan := math.NaN()
	s := NewStore("mem", []Observation{
		{MetricName: "Obesity", GeoName: "A", Est: 30, LCI: 29, UCI: 31},
		{MetricName: "Obesity", GeoName: "B", Est: 40, LCI: 41, UCI: 45},
		{MetricName: "Obesity", GeoName: "C", Est: 50, LCI: nan, UCI: 49},
		{MetricName: "Obesity", GeoName: "D", Est: nan, LCI: 1, UCI: 0},
	})
	v := Validate(s)
	require.Len(t, v, 2)
	assert.Equal(t, "B", v[0].Geo)
	assert.Equal(t, 2, v[0].Row)
	assert.Equal(t, "C", v[1].Geo)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		nf   NumberFormat
		want float64
	}{
		{"12.5", NumberFormat{}, 12.5},
		{"12,5", NumberFormat{}, 12.5},
		{"1,000", NumberFormat{}, 1000},
		{"1.234,5", NumberFormat{}, 1234.5},
		{"45%", NumberFormat{}, 45},
		{"1 234,5", NumberFormat{DecimalSeparator: ',', ThousandsSeparator: ' '}, 1234.5},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.in, tt.nf)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
	for _, missing := range []string{"", "NA", "nan", " - "} {
		got, err := ParseNumber(missing, NumberFormat{})
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got), missing)
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := "Health"
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	rows := [][]any{
		{"metric_name", "data_period", "est", "lci", "uci", "geo_name", "state_abbr", "period_type", "source_name"},
		{"Obesity", "2019", 31.2, 30.1, 32.4, "Akron", "OH", "1 Year", "BRFSS"},
		{"Diabetes", "2019", 11.5, 10.9, 12.2, "Akron", "OH", "1 Year", "BRFSS"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	path := filepath.Join(t.TempDir(), "health.xlsx")
	require.NoError(t, f.SaveAs(path))

	src, err := SourceForPath(path, SourceOptions{Sheet: "health"})
	require.NoError(t, err)
	s, err := Load(context.Background(), src, NumberFormat{})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.InDelta(t, 11.5, s.Rows()[1].Est, 1e-9)

	_, err = Load(context.Background(), &XLSXSource{Path: path, Sheet: "Missing"}, NumberFormat{})
	var ie *IngestError
	assert.ErrorAs(t, err, &ie)
}

func TestLoadSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE observations (
		metric_name TEXT, data_period TEXT, est REAL, lci REAL, uci REAL,
		geo_name TEXT, state_abbr TEXT, period_type TEXT, source_name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO observations VALUES
		('Obesity','2019',31.5,30.1,32.4,'Akron','OH','1 Year','BRFSS'),
		('Obesity','2019',NULL,NULL,NULL,'Austin','TX','1 Year','BRFSS')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src, err := SourceForPath(path, SourceOptions{})
	require.NoError(t, err)
	assert.Equal(t, "health.db#observations", src.Name())
	s, err := Load(context.Background(), src, NumberFormat{})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.InDelta(t, 31.5, s.Rows()[0].Est, 1e-9)
	assert.True(t, math.IsNaN(s.Rows()[1].Est))

	_, err = Load(context.Background(), &SQLiteSource{Path: path, Table: "x; DROP"}, NumberFormat{})
	assert.Error(t, err)
}
