package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func transactionResult(t *testing.T) *pipeline.Result {
	t.Helper()
	db := testutil.SetupSeededDB(t)
	p, err := pipeline.New(pipeline.Deps{Benchmarks: db.Storage, Deals: db.Storage})
	require.NoError(t, err)

	res, err := p.RunTransactions(context.Background(), testutil.LoyaltyBatch(t, 40, 8), testutil.CasualAmerican)
	require.NoError(t, err)
	return res
}

func TestTables(t *testing.T) {
	res := transactionResult(t)

	tables := Tables(res)
	require.Len(t, tables, 4)

	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = tb.Name
		for _, row := range tb.Rows {
			assert.Len(t, row, len(tb.Header), tb.Name)
		}
	}
	assert.Equal(t, []string{TableSummary, TableGaps, TableTactical, TableRecommendations}, names)

	assert.Len(t, tables[1].Rows, 7)
	assert.Len(t, tables[2].Rows, len(res.Performance.Issues))
	assert.Len(t, tables[3].Rows, len(res.Plan.All))
	assert.Equal(t, 1, tables[3].Rows[0][0])

	// Defaulted KPIs carry their provenance.
	var lowConfidence int
	for _, row := range tables[1].Rows {
		if row[5] == string(model.ConfidenceLow) {
			lowConfidence++
		}
	}
	assert.Equal(t, 4, lowConfidence)
}

func TestTables_NoBenchmark(t *testing.T) {
	res := &pipeline.Result{
		ID:          "r1",
		GeneratedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Segment:     model.Segment{CuisineType: "Nordic", DiningModel: "Bistro"},
		Outcome:     pipeline.OutcomeNoBenchmark,
		Message:     "No benchmark data available",
	}

	tables := Tables(res)
	assert.Empty(t, tables[1].Rows)
	assert.Empty(t, tables[2].Rows)
	assert.Empty(t, tables[3].Rows)
	assert.Contains(t, tables[0].Rows, []any{"Message", "No benchmark data available"})
}

func TestCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: ""},
		{in: "x", want: "x"},
		{in: 12.5, want: "12.5"},
		{in: 3, want: "3"},
		{in: true, want: "yes"},
		{in: false, want: "no"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cell(tt.in))
	}
}

func TestCLIFormatter_Format(t *testing.T) {
	res := transactionResult(t)
	f := NewCLIFormatter()

	out := f.Format(res)
	assert.Contains(t, out, "Restaurant Performance Report")
	assert.Contains(t, out, "American - Casual Dining")
	assert.Contains(t, out, "Grade "+string(res.Grade()))
	assert.Contains(t, out, "Low Customer Loyalty")
	assert.Contains(t, out, "Critical issues need immediate attention")
	assert.Contains(t, out, "default value")
	assert.NotContains(t, out, "Customer loyalty rate")

	f.Explain = true
	assert.Contains(t, f.Format(res), "Customer loyalty rate")
}

func TestCLIFormatter_NoBenchmark(t *testing.T) {
	f := NewCLIFormatter()
	out := f.Format(&pipeline.Result{
		Outcome: pipeline.OutcomeNoBenchmark,
		Message: "No benchmark data available for Nordic - Bistro.",
	})
	assert.Contains(t, out, "No benchmark data available for Nordic - Bistro.")
	assert.NotContains(t, out, "Recommended Deals")

	assert.Contains(t, f.Format(nil), "No report available")
}

func TestCLIFormatter_Lists(t *testing.T) {
	f := NewCLIFormatter()

	assert.Contains(t, f.FormatRuns(nil), "No analysis runs")
	runs := f.FormatRuns([]model.RunRecord{{
		ID:        "abc",
		CreatedAt: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		Segment:   testutil.CasualAmerican,
		Source:    model.SourceAggregate,
		Grade:     "C",
	}})
	assert.Contains(t, runs, "abc")
	assert.Contains(t, runs, "2024-02-03 04:05:06")

	assert.Contains(t, f.FormatSegments(nil), "flavyr seed")
	assert.Contains(t, f.FormatSegments([]model.Segment{testutil.CasualAmerican}), "American - Casual Dining")
}

func TestExcelExporter(t *testing.T) {
	res := transactionResult(t)
	e := NewExcelExporter()

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{TableSummary, TableGaps, TableTactical, TableRecommendations}, f.GetSheetList())

	rows, err := f.GetRows(TableGaps)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, "KPI", rows[0][0])

	recs, err := f.GetRows(TableRecommendations)
	require.NoError(t, err)
	assert.Len(t, recs, len(res.Plan.All)+1)
}

func TestExcelExporter_WriteFile(t *testing.T) {
	res := transactionResult(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, NewExcelExporter().WriteFile(res, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Len(t, f.GetSheetList(), 4)

	assert.Error(t, NewExcelExporter().WriteFile(nil, path))
}
