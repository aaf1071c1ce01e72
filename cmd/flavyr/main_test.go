package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/flavyr/internal/ingest"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/storage"
	"github.com/Veraticus/flavyr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type env struct {
	dir    string
	config string
	db     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		db:     filepath.Join(dir, "data", "flavyr.db"),
	}
	require.NoError(t, os.WriteFile(e.config, []byte("logging:\n  level: error\n"), 0600))
	return e
}

func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config, "--db", e.db}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *env) write(t *testing.T, name string, records [][]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(records))
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

// dailyRecords lays out days of benchmark-level metrics scaled by scale.
func dailyRecords(t *testing.T, days int, scale float64) [][]string {
	t.Helper()
	seed, err := storage.DefaultSeed()
	require.NoError(t, err)

	var bench map[string]float64
	for _, r := range seed.MetricRecords() {
		if r.Segment == testutil.CasualAmerican {
			bench = r.Values
		}
	}
	require.NotNil(t, bench)

	records := [][]string{ingest.RestaurantColumns}
	for d := 0; d < days; d++ {
		row := []string{
			time.Date(2024, 1, 1+d, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			testutil.CasualAmerican.CuisineType,
			testutil.CasualAmerican.DiningModel,
		}
		for _, kpi := range ingest.RestaurantColumns[3:] {
			row = append(row, strconv.FormatFloat(bench[kpi]*scale, 'f', -1, 64))
		}
		records = append(records, row)
	}
	return records
}

func transactionRecords(txns []model.Transaction) [][]string {
	records := [][]string{ingest.TransactionColumns}
	for _, txn := range txns {
		records = append(records, []string{
			txn.Date.Format("2006-01-02"),
			strconv.FormatFloat(txn.Amount, 'f', 2, 64),
			txn.CustomerID,
			txn.ItemName,
			txn.DayOfWeek.String(),
		})
	}
	return records
}

func TestSeedAndSegments(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalogue loaded")

	out, err = e.run(t, "", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "already had data")

	out, err = e.run(t, "", "segments")
	require.NoError(t, err)
	assert.Contains(t, out, "American - Casual Dining")
}

func TestSeedReplace(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "seed")
	require.NoError(t, err)

	out, err := e.run(t, "n\n", "seed", "--replace")
	require.NoError(t, err)
	assert.Contains(t, out, "Seed canceled")

	out, err = e.run(t, "y\n", "seed", "--replace")
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot saved")
	assert.Contains(t, out, "Catalogue loaded")

	out, err = e.run(t, "", "snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "(auto)")
}

func TestAnalyze(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "seed")
	require.NoError(t, err)

	path := e.write(t, "daily.csv", dailyRecords(t, 3, 0.5))
	xlsx := filepath.Join(e.dir, "report.xlsx")

	out, err := e.run(t, "", "analyze", path, "--progress=false", "--xlsx", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "Restaurant Performance Report")
	assert.Contains(t, out, "Critical issues need immediate attention")
	assert.Contains(t, out, "Report written to")

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	assert.Len(t, f.GetSheetList(), 4)
	require.NoError(t, f.Close())

	out, err = e.run(t, "", "analyze", path, "--format", "json")
	require.NoError(t, err)
	res, err := pipeline.DecodeResult([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeOK, res.Outcome)

	out, err = e.run(t, "", "runs")
	require.NoError(t, err)
	assert.Contains(t, out, res.ID)

	out, err = e.run(t, "", "runs", "show", res.ID, "--explain")
	require.NoError(t, err)
	assert.Contains(t, out, res.ID)
	assert.Contains(t, out, "Step 1")
}

func TestAnalyze_Errors(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "seed")
	require.NoError(t, err)

	bad := e.write(t, "bad.csv", [][]string{{"date", "covers"}, {"2024-01-01", "10"}})
	out, err := e.run(t, "", "analyze", bad)
	require.Error(t, err)
	assert.Contains(t, out, "Missing required columns")

	records := dailyRecords(t, 1, 1.0)
	records[1][1] = "Nordic"
	nordic := e.write(t, "nordic.csv", records)
	out, err = e.run(t, "", "analyze", nordic, "--progress=false")
	require.Error(t, err)
	assert.Contains(t, out, "No benchmark data available for Nordic - Casual Dining")

	_, err = e.run(t, "", "analyze", nordic, "--format", "yaml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestTransactions(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "seed")
	require.NoError(t, err)

	path := e.write(t, "pos.csv", transactionRecords(testutil.LoyaltyBatch(t, 40, 8)))

	out, err := e.run(t, "", "transactions", path,
		"--cuisine", "American", "--dining-model", "Casual Dining", "--format", "json")
	require.NoError(t, err)

	var res pipeline.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, model.SourceTransactions, res.Source)
	assert.NotEmpty(t, res.TacticalRecs)

	_, err = e.run(t, "", "transactions", path)
	assert.Error(t, err, "segment flags are required")
}

func TestSnapshotCommands(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "seed")
	require.NoError(t, err)

	out, err := e.run(t, "", "snapshot", "create", "--tag", "manual")
	require.NoError(t, err)
	assert.Contains(t, out, "Created snapshot")

	out, err = e.run(t, "", "backup", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "manual")

	out, err = e.run(t, "", "snapshot", "delete", "manual")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted snapshot manual")
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "flavyr dev")
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		want string
		size int64
	}{
		{size: 512, want: "512 B"},
		{size: 2048, want: "2.0 KB"},
		{size: 5 << 20, want: "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFileSize(tt.size))
	}
}
