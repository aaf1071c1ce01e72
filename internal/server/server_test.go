package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/flavyr/internal/ingest"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db     *testutil.TestDB
	server *Server
	ts     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupSeededDB(t)
	p, err := pipeline.New(pipeline.Deps{
		Benchmarks: db.Storage,
		Deals:      db.Storage,
		Runs:       db.Storage,
		Uploads:    db.Storage,
	})
	require.NoError(t, err)

	s, err := New(p, db.Storage, nil, Options{})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &fixture{db: db, server: s, ts: ts}
}

func (f *fixture) do(t *testing.T, method, path, contentType string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, f.ts.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func aggregateBody(t *testing.T, actual model.MetricRecord) io.Reader {
	t.Helper()
	data, err := json.Marshal(aggregateRequest{
		Metrics:     actual.Values,
		CuisineType: actual.Segment.CuisineType,
		DiningModel: actual.Segment.DiningModel,
	})
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func transactionCSV(t *testing.T, txns []model.Transaction) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(ingest.TransactionColumns))
	for _, txn := range txns {
		require.NoError(t, w.Write([]string{
			txn.Date.Format("2006-01-02"),
			strconv.FormatFloat(txn.Amount, 'f', 2, 64),
			txn.CustomerID,
			txn.ItemName,
			txn.DayOfWeek.String(),
		}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return &buf
}

func TestNew_Requires(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p, err := pipeline.New(pipeline.Deps{Benchmarks: db.Storage, Deals: db.Storage})
	require.NoError(t, err)

	_, err = New(nil, db.Storage, nil, Options{})
	assert.Error(t, err)
	_, err = New(p, nil, nil, Options{})
	assert.Error(t, err)
}

func TestUploadLimit(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p, err := pipeline.New(pipeline.Deps{Benchmarks: db.Storage, Deals: db.Storage})
	require.NoError(t, err)
	s, err := New(p, db.Storage, nil, Options{MaxUploadBytes: 16})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze/aggregate",
		aggregateBody(t, db.Actual(testutil.CasualAmerican, 1.0)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndSegments(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, body = f.do(t, http.MethodGet, "/v1/segments", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var segments []model.Segment
	require.NoError(t, json.Unmarshal(body, &segments))
	assert.Contains(t, segments, testutil.CasualAmerican)
}

func TestAnalyzeAggregate(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/v1/analyze/aggregate", "application/json",
		aggregateBody(t, f.db.Actual(testutil.CasualAmerican, 0.5)))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	res, err := pipeline.DecodeResult(body)
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeOK, res.Outcome)
	assert.True(t, res.Plan.Critical)
	assert.NotEmpty(t, res.Plan.Top)

	// The run is retrievable by ID.
	resp, body = f.do(t, http.MethodGet, "/v1/runs/"+res.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored, err := pipeline.DecodeResult(body)
	require.NoError(t, err)
	assert.Equal(t, res.ID, stored.ID)

	resp, body = f.do(t, http.MethodGet, "/v1/runs?limit=5", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var runs []model.RunRecord
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, res.ID, runs[0].ID)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.server.metrics.analyses.WithLabelValues("aggregate", "ok")))
}

func TestAnalyzeAggregate_CSV(t *testing.T) {
	f := newFixture(t)
	bench := f.db.Benchmark(testutil.CasualAmerican)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(ingest.RestaurantColumns))
	for day := 1; day <= 3; day++ {
		row := []string{
			time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			testutil.CasualAmerican.CuisineType,
			testutil.CasualAmerican.DiningModel,
		}
		for _, kpi := range ingest.RestaurantColumns[3:] {
			row = append(row, strconv.FormatFloat(bench.Values[kpi], 'f', -1, 64))
		}
		require.NoError(t, w.Write(row))
	}
	w.Flush()

	resp, body := f.do(t, http.MethodPost, "/v1/analyze/aggregate", "text/csv; charset=utf-8", &buf)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	n, err := f.db.Storage.CountRestaurantRows(context.Background(), testutil.CasualAmerican)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAnalyzeAggregate_Errors(t *testing.T) {
	f := newFixture(t)

	nordic := f.db.Actual(testutil.CasualAmerican, 1.0)
	nordic.Segment = model.Segment{CuisineType: "Nordic", DiningModel: "Bistro"}
	missing := f.db.Actual(testutil.CasualAmerican, 1.0)
	delete(missing.Values, model.KPICovers)

	tests := []struct {
		body        io.Reader
		name        string
		contentType string
		contains    string
		wantStatus  int
	}{
		{
			name:        "no benchmark",
			contentType: "application/json",
			body:        aggregateBody(t, nordic),
			wantStatus:  http.StatusNotFound,
			contains:    "No benchmark data available for Nordic - Bistro",
		},
		{
			name:        "missing metric",
			contentType: "application/json",
			body:        aggregateBody(t, missing),
			wantStatus:  http.StatusBadRequest,
			contains:    model.KPICovers,
		},
		{
			name:        "bad json",
			contentType: "application/json",
			body:        strings.NewReader("{"),
			wantStatus:  http.StatusBadRequest,
			contains:    "invalid JSON body",
		},
		{
			name:        "no segment",
			contentType: "application/json",
			body:        strings.NewReader(`{"metrics":{}}`),
			wantStatus:  http.StatusBadRequest,
			contains:    "cuisine_type and dining_model are required",
		},
		{
			name:        "invalid csv",
			contentType: "text/csv",
			body:        strings.NewReader("date,avg_ticket\n2024-01-01,10\n"),
			wantStatus:  http.StatusBadRequest,
			contains:    "Missing required columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, "/v1/analyze/aggregate", tt.contentType, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Contains(t, string(body), tt.contains)
		})
	}

	assert.Equal(t, 1.0, promtest.ToFloat64(f.server.metrics.analyses.WithLabelValues("aggregate", "no_benchmark")))
}

func TestAnalyzeTransactions(t *testing.T) {
	f := newFixture(t)
	path := "/v1/analyze/transactions?cuisine_type=American&dining_model=Casual+Dining"

	resp, body := f.do(t, http.MethodPost, path, "text/csv",
		transactionCSV(t, testutil.LoyaltyBatch(t, 40, 8)))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	res, err := pipeline.DecodeResult(body)
	require.NoError(t, err)
	assert.Equal(t, model.SourceTransactions, res.Source)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 48, res.Summary.Transactions)
	assert.NotEmpty(t, res.TacticalRecs)

	resp, body = f.do(t, http.MethodPost, "/v1/analyze/transactions", "text/csv",
		transactionCSV(t, testutil.LoyaltyBatch(t, 5, 1)))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "query parameters are required")

	resp, body = f.do(t, http.MethodPost, path, "text/csv", strings.NewReader("date,total\n"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var eb errorBody
	require.NoError(t, json.Unmarshal(body, &eb))
	assert.Equal(t, "upload failed validation", eb.Error)
	assert.NotEmpty(t, eb.Details)
}

func TestAnalyzeJSONRows(t *testing.T) {
	f := newFixture(t)
	bench := f.db.Benchmark(testutil.CasualAmerican)

	var rows []ingest.Row
	for day := 1; day <= 2; day++ {
		row := ingest.Row{
			"date":         time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			"cuisine_type": testutil.CasualAmerican.CuisineType,
			"dining_model": testutil.CasualAmerican.DiningModel,
		}
		for _, kpi := range ingest.RestaurantColumns[3:] {
			row[kpi] = bench.Values[kpi]
		}
		rows = append(rows, row)
	}
	data, err := json.Marshal(aggregateRequest{Rows: rows})
	require.NoError(t, err)

	resp, body := f.do(t, http.MethodPost, "/v1/analyze/aggregate", "application/json", bytes.NewReader(data))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	n, err := f.db.Storage.CountRestaurantRows(context.Background(), testutil.CasualAmerican)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var txns []ingest.Row
	for _, txn := range testutil.LoyaltyBatch(t, 40, 8) {
		txns = append(txns, ingest.Row{
			"date":        txn.Date.Format("2006-01-02"),
			"total":       txn.Amount,
			"customer_id": txn.CustomerID,
			"item_name":   txn.ItemName,
			"day_of_week": txn.DayOfWeek.String(),
		})
	}
	data, err = json.Marshal(transactionsRequest{
		CuisineType:  testutil.CasualAmerican.CuisineType,
		DiningModel:  testutil.CasualAmerican.DiningModel,
		Transactions: txns,
	})
	require.NoError(t, err)

	resp, body = f.do(t, http.MethodPost, "/v1/analyze/transactions", "application/json", bytes.NewReader(data))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res, err := pipeline.DecodeResult(body)
	require.NoError(t, err)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 48, res.Summary.Transactions)

	resp, body = f.do(t, http.MethodPost, "/v1/analyze/transactions", "application/json",
		strings.NewReader(`{"cuisine_type":"American","dining_model":"Casual Dining","transactions":[]}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "upload failed validation")
}

func TestRuns_Errors(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/v1/runs/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/v1/runs?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/v1/runs", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/health", "", nil)
	resp, body := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `flavyr_http_request_duration_seconds_count{code="200",route="/health"} 1`)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.server.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
