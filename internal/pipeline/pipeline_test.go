package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/testutil"
	"github.com/Veraticus/flavyr/internal/transparency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow     = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	asianService = model.Segment{CuisineType: "Asian", DiningModel: "Quick Service"}
)

func newTestPipeline(t *testing.T, db *testutil.TestDB, opts Options) *Pipeline {
	t.Helper()
	n := 0
	p, err := New(Deps{
		Benchmarks: db.Storage,
		Deals:      db.Storage,
		Runs:       db.Storage,
		Uploads:    db.Storage,
		Clock:      func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return "run-" + string(rune('0'+n))
		},
		Options: opts,
	})
	require.NoError(t, err)
	return p
}

func TestNew_RequiresStores(t *testing.T) {
	db := testutil.SetupSeededDB(t)

	_, err := New(Deps{Deals: db.Storage})
	assert.Error(t, err)

	_, err = New(Deps{Benchmarks: db.Storage})
	assert.Error(t, err)

	p, err := New(Deps{Benchmarks: db.Storage, Deals: db.Storage})
	require.NoError(t, err)
	assert.Equal(t, benchmark.DefaultThreshold, p.deps.Options.Threshold)
	assert.Equal(t, DefaultBenchmarkSampleSize, p.deps.Options.BenchmarkSampleSize)
	assert.NotNil(t, p.Registry())
}

func TestRunAggregate_OnBenchmark(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})
	ctx := context.Background()

	res, err := p.RunAggregate(ctx, db.Actual(testutil.CasualAmerican, 1.0))
	require.NoError(t, err)

	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "run-1", res.ID)
	assert.Equal(t, fixedNow, res.GeneratedAt)
	assert.Equal(t, benchmark.GradeB, res.Grade())
	assert.Empty(t, res.Plan.All)
	assert.False(t, res.Plan.Critical)
	assert.Contains(t, res.Explanations, transparency.ExplainScore)
	assert.NotEmpty(t, res.Audit)

	runs, err := db.Storage.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "B", runs[0].Grade)
	assert.Equal(t, model.SourceAggregate, runs[0].Source)
}

func TestRunAggregate_Underperforming(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{TopLimit: 2})
	ctx := context.Background()

	res, err := p.RunAggregate(ctx, db.Actual(testutil.CasualAmerican, 0.5))
	require.NoError(t, err)

	require.NotNil(t, res.Analysis)
	assert.NotEmpty(t, res.Analysis.Underperforming)
	assert.NotEmpty(t, res.Strategic.Problems)
	assert.True(t, res.Plan.Critical, "a -50% gap is critical")
	assert.Len(t, res.Plan.Top, 2)

	stored, err := db.Storage.GetRun(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, stored.Critical)

	decoded, err := DecodeResult(stored.Result)
	require.NoError(t, err)
	assert.Equal(t, res.ID, decoded.ID)
	assert.Equal(t, res.Strategic.Problems, decoded.Strategic.Problems)
	require.NotEmpty(t, decoded.Plan.All)
	assert.Equal(t, res.Plan.All[0].Severity.Rank(), decoded.Plan.All[0].Severity.Rank())
}

func TestRunAggregate_NoBenchmark(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})
	ctx := context.Background()

	actual := db.Actual(testutil.CasualAmerican, 1.0)
	actual.Segment = model.Segment{CuisineType: "Nordic", DiningModel: "Fine Dining"}

	res, err := p.RunAggregate(ctx, actual)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNoBenchmark))

	var nbErr *common.NoBenchmarkError
	require.ErrorAs(t, err, &nbErr)
	assert.Equal(t, "Nordic - Fine Dining", nbErr.Segment)

	require.NotNil(t, res)
	assert.Equal(t, OutcomeNoBenchmark, res.Outcome)
	assert.Equal(t, nbErr.UserMessage(), res.Message)
	assert.Nil(t, res.Analysis)

	runs, err := db.Storage.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "failed runs are not recorded")
}

func TestRunAggregate_MissingMetric(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})

	actual := db.Actual(testutil.CasualAmerican, 1.0)
	delete(actual.Values, model.KPICovers)

	_, err := p.RunAggregate(context.Background(), actual)
	assert.ErrorIs(t, err, common.ErrMissingMetric)
}

func TestRunDaily_StoresUploadedRows(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})
	ctx := context.Background()

	bench := db.Benchmark(testutil.CasualAmerican)
	var rows []model.RestaurantDay
	for i := 0; i < 2; i++ {
		values := make(map[string]float64, len(bench.Values))
		for k, v := range bench.Values {
			values[k] = v
		}
		rows = append(rows, model.RestaurantDay{
			Date:    time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Segment: testutil.CasualAmerican,
			Values:  values,
		})
	}

	res, err := p.RunDaily(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, model.SourceAggregate, res.Source)
	assert.Equal(t, 2, res.Confidence.Factors.DaysOfData)

	n, err := db.Storage.CountRestaurantRows(ctx, testutil.CasualAmerican)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = p.RunDaily(ctx, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRunTransactions(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})
	ctx := context.Background()

	// 40 customers, 8 of them repeat: 20% loyalty against a 35% benchmark.
	txns := testutil.LoyaltyBatch(t, 40, 8)

	res, err := p.RunTransactions(ctx, txns, testutil.CasualAmerican)
	require.NoError(t, err)

	assert.Equal(t, model.SourceTransactions, res.Source)
	assert.Len(t, res.Provenance, 7)
	assert.Equal(t, []string{
		model.KPILaborCostPct,
		model.KPIFoodCostPct,
		model.KPITableTurnover,
		model.KPISalesPerSqft,
	}, res.LowConfidence)
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.Tactical)
	require.NotNil(t, res.Summary)
	require.NotNil(t, res.Performance)
	assert.Equal(t, 48, res.Summary.Transactions)
	assert.InDelta(t, 20.0, res.Performance.Loyalty.Actual, 1e-9)

	var loyalty bool
	for _, r := range res.TacticalRecs {
		if r.IssueType == "Low Customer Loyalty" {
			loyalty = true
			assert.Equal(t, model.ProblemCustomerLoyalty, r.BusinessProblem)
		}
	}
	assert.True(t, loyalty)

	for _, key := range []string{
		transparency.ExplainLoyalty,
		transparency.ExplainAOV,
		transparency.ExplainSlowDay,
		transparency.ExplainItems,
		transparency.ExplainScore,
	} {
		assert.Contains(t, res.Explanations, key)
	}
	assert.Equal(t, 48, res.Confidence.Factors.SampleSize)

	steps := make([]int, 0, len(res.Audit))
	for _, e := range res.Audit {
		steps = append(steps, e.Step)
	}
	for i, s := range steps {
		assert.Equal(t, i+1, s)
	}
}

func TestRunTransactions_NoTransactionBenchmark(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})
	ctx := context.Background()

	// The seed has a KPI benchmark for this segment but no transaction benchmark.
	bench, err := db.Storage.GetBenchmark(ctx, asianService)
	require.NoError(t, err)
	require.NotNil(t, bench)

	res, err := p.RunTransactions(ctx, testutil.LoyaltyBatch(t, 20, 10), asianService)
	require.ErrorIs(t, err, common.ErrNoBenchmark)

	var nbErr *common.NoBenchmarkError
	require.ErrorAs(t, err, &nbErr)
	assert.Equal(t, "transaction", nbErr.Kind)

	require.NotNil(t, res)
	assert.Equal(t, OutcomeNoBenchmark, res.Outcome)
	assert.Equal(t, nbErr.UserMessage(), res.Message)
	assert.Nil(t, res.Performance)
	assert.Empty(t, res.Plan.All)

	runs, err := db.Storage.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "stopped runs are not recorded")
}

func TestRunTransactions_Errors(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})
	ctx := context.Background()

	_, err := p.RunTransactions(ctx, nil, testutil.CasualAmerican)
	assert.ErrorIs(t, err, common.ErrNoTransactions)

	res, err := p.RunTransactions(ctx, testutil.LoyaltyBatch(t, 10, 2), model.Segment{CuisineType: "x", DiningModel: "y"})
	assert.ErrorIs(t, err, common.ErrNoBenchmark)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeNoBenchmark, res.Outcome)
	assert.NotEmpty(t, res.Provenance)
}

func TestRunAggregate_Cancelled(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunAggregate(ctx, db.Actual(testutil.CasualAmerican, 1.0))
	require.ErrorIs(t, err, context.Canceled)

	runs, err := db.Storage.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestProgress(t *testing.T) {
	db := testutil.SetupSeededDB(t)
	p := newTestPipeline(t, db, Options{})

	var stages []string
	var last int
	p = p.WithProgress(func(stage string, pct int) {
		assert.GreaterOrEqual(t, pct, last, "progress never goes backwards")
		last = pct
		stages = append(stages, stage)
	})

	_, err := p.RunTransactions(context.Background(), testutil.LoyaltyBatch(t, 20, 5), testutil.CasualAmerican)
	require.NoError(t, err)

	require.NotEmpty(t, stages)
	assert.Equal(t, "Done", stages[len(stages)-1])
	assert.Equal(t, 100, last)
}
