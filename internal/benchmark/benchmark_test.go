package benchmark

import (
	"errors"
	"testing"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeKPIRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg, err := model.NewRegistry(
		model.KPIDefinition{Key: model.KPIAvgTicket, DisplayName: "Average Ticket Size", Polarity: model.HigherIsBetter, BusinessProblem: model.ProblemBoostAOV},
		model.KPIDefinition{Key: model.KPICovers, DisplayName: "Total Covers", Polarity: model.HigherIsBetter, BusinessProblem: model.ProblemIncreaseSales},
		model.KPIDefinition{Key: model.KPICustomerRepeat, DisplayName: "Customer Repeat Rate", Polarity: model.HigherIsBetter, BusinessProblem: model.ProblemCustomerLoyalty},
	)
	require.NoError(t, err)
	return reg
}

func record(kind model.RecordKind, values map[string]float64) model.MetricRecord {
	r := model.NewMetricRecord(kind, model.Segment{CuisineType: "Italian", DiningModel: "Casual"})
	for k, v := range values {
		r.Set(k, v)
	}
	return r
}

func TestComputeGap(t *testing.T) {
	tests := []struct {
		name      string
		polarity  model.Polarity
		actual    float64
		benchmark float64
		want      float64
	}{
		{name: "zero benchmark higher", actual: 50, benchmark: 0, polarity: model.HigherIsBetter, want: 0},
		{name: "zero benchmark lower", actual: 50, benchmark: 0, polarity: model.LowerIsBetter, want: 0},
		{name: "above benchmark", actual: 110, benchmark: 100, polarity: model.HigherIsBetter, want: 10},
		{name: "below benchmark", actual: 90, benchmark: 100, polarity: model.HigherIsBetter, want: -10},
		{name: "cost below benchmark is good", actual: 0.27, benchmark: 0.30, polarity: model.LowerIsBetter, want: 10},
		{name: "cost above benchmark is bad", actual: 0.33, benchmark: 0.30, polarity: model.LowerIsBetter, want: -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeGap(tt.actual, tt.benchmark, tt.polarity), 1e-9)
		})
	}
}

func TestComputeGap_ZeroBenchmarkForEveryKPI(t *testing.T) {
	for _, def := range model.DefaultRegistry().Definitions() {
		assert.Equal(t, 0.0, ComputeGap(123.4, 0, def.Polarity), def.Key)
	}
}

func TestComputeGap_LowerIsBetterAlwaysInverted(t *testing.T) {
	for _, def := range model.DefaultRegistry().Definitions() {
		if def.Polarity != model.LowerIsBetter {
			continue
		}
		for _, bench := range []float64{0.1, 1, 28, 1000} {
			assert.Greater(t, ComputeGap(bench*0.8, bench, def.Polarity), 0.0, def.Key)
		}
	}
}

func TestComputeAllGaps_MissingMetric(t *testing.T) {
	reg := threeKPIRegistry(t)
	actual := record(model.RecordActual, map[string]float64{model.KPIAvgTicket: 32, model.KPICovers: 180})
	bench := record(model.RecordBenchmark, map[string]float64{model.KPIAvgTicket: 35, model.KPICovers: 200, model.KPICustomerRepeat: 0.4})

	_, err := ComputeAllGaps(actual, bench, reg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMissingMetric))

	var mme *common.MissingMetricError
	require.True(t, errors.As(err, &mme))
	assert.Equal(t, model.KPICustomerRepeat, mme.KPI)
	assert.Equal(t, "actual", mme.Record)
}

func TestAnalyze_EndToEnd(t *testing.T) {
	reg := threeKPIRegistry(t)
	actual := record(model.RecordActual, map[string]float64{
		model.KPIAvgTicket: 32.00, model.KPICovers: 180, model.KPICustomerRepeat: 0.35,
	})
	bench := record(model.RecordBenchmark, map[string]float64{
		model.KPIAvgTicket: 35.00, model.KPICovers: 200, model.KPICustomerRepeat: 0.40,
	})

	a, err := Analyze(actual, bench, reg)
	require.NoError(t, err)

	assert.InDelta(t, -8.571, a.Gaps[model.KPIAvgTicket].GapPct, 0.001)
	assert.InDelta(t, -10.0, a.Gaps[model.KPICovers].GapPct, 1e-9)
	assert.InDelta(t, -12.5, a.Gaps[model.KPICustomerRepeat].GapPct, 1e-9)

	// mean is about -10.36, just past the C floor of -10
	assert.Equal(t, GradeD, a.Grade)

	require.Len(t, a.Ranked, 3)
	assert.Equal(t, model.KPICustomerRepeat, a.Ranked[0].KPI)
	assert.Equal(t, model.KPICovers, a.Ranked[1].KPI)
	assert.Equal(t, model.KPIAvgTicket, a.Ranked[2].KPI)

	require.Len(t, a.Underperforming, 3)
	assert.Equal(t, model.KPIAvgTicket, a.Underperforming[0].KPI)

	assert.Equal(t, StatusCounts{Warning: 3}, a.Counts)
	assert.Contains(t, a.Summary, "- Customer Repeat Rate: 12.5% below benchmark")
	assert.Equal(t, model.Segment{CuisineType: "Italian", DiningModel: "Casual"}, a.Segment)
}

func TestRankBySeverity(t *testing.T) {
	reg := model.DefaultRegistry()
	gaps := map[string]Gap{
		model.KPIAvgTicket:      {KPI: model.KPIAvgTicket, GapPct: -3},
		model.KPICovers:         {KPI: model.KPICovers, GapPct: -12},
		model.KPILaborCostPct:   {KPI: model.KPILaborCostPct, GapPct: 4},
		model.KPIFoodCostPct:    {KPI: model.KPIFoodCostPct, GapPct: -12},
		model.KPICustomerRepeat: {KPI: model.KPICustomerRepeat, GapPct: -20},
	}

	ranked := RankBySeverity(gaps, reg)
	keys := make([]string, len(ranked))
	for i, g := range ranked {
		keys[i] = g.KPI
		if i > 0 {
			assert.LessOrEqual(t, ranked[i-1].GapPct, g.GapPct)
		}
	}
	assert.Equal(t, []string{
		model.KPICustomerRepeat, model.KPICovers, model.KPIFoodCostPct, model.KPIAvgTicket, model.KPILaborCostPct,
	}, keys)

	reranked := make(map[string]Gap, len(ranked))
	for _, g := range ranked {
		reranked[g.KPI] = g
	}
	assert.Equal(t, ranked, RankBySeverity(reranked, reg))
}

func TestUnderperforming_StrictThreshold(t *testing.T) {
	reg := model.DefaultRegistry()
	gaps := map[string]Gap{
		model.KPIAvgTicket: {KPI: model.KPIAvgTicket, GapPct: -5},
		model.KPICovers:    {KPI: model.KPICovers, GapPct: -5.01},
	}
	under := Underperforming(gaps, reg, DefaultThreshold)
	require.Len(t, under, 1)
	assert.Equal(t, model.KPICovers, under[0].KPI)
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		want Grade
		mean float64
	}{
		{mean: 25, want: GradeA},
		{mean: 10, want: GradeA},
		{mean: 9.99, want: GradeB},
		{mean: 0, want: GradeB},
		{mean: -0.01, want: GradeC},
		{mean: -10, want: GradeC},
		{mean: -10.01, want: GradeD},
		{mean: -20, want: GradeD},
		{mean: -20.01, want: GradeF},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.mean), "mean %v", tt.mean)
	}
}

func TestOverallGrade_Empty(t *testing.T) {
	reg := model.DefaultRegistry()
	assert.Equal(t, GradeNone, OverallGrade(nil, reg))
	assert.Equal(t, 0.0, PerformanceScore(nil, reg))
}

func TestOverallGrade_SumsInRegistryOrder(t *testing.T) {
	reg := model.DefaultRegistry()
	// Values whose float sum depends on the order they are added in.
	values := []float64{-1e16, 3, 1e16, -40, -0.1, -3.3, 1}
	gaps := make(map[string]Gap, len(values))
	var want float64
	for i, k := range reg.Keys() {
		gaps[k] = Gap{KPI: k, GapPct: values[i]}
		want += values[i]
	}
	want /= float64(len(values))

	for i := 0; i < 50; i++ {
		mean, ok := meanGap(gaps, reg)
		require.True(t, ok)
		require.Equal(t, want, mean)
		assert.Equal(t, GradeFor(want), OverallGrade(gaps, reg))
	}
}

func TestPerformanceScore(t *testing.T) {
	tests := []struct {
		mean float64
		want float64
	}{
		{mean: 30, want: 100},
		{mean: 20, want: 100},
		{mean: 10, want: 85},
		{mean: 0, want: 70},
		{mean: -20, want: 35},
		{mean: -40, want: 0},
		{mean: -41, want: 0},
		{mean: -3, want: 64.8},
	}
	for _, tt := range tests {
		gaps := map[string]Gap{"x": {KPI: "x", GapPct: tt.mean}}
		assert.InDelta(t, tt.want, PerformanceScore(gaps, model.DefaultRegistry()), 1e-9, "mean %v", tt.mean)
	}
}

func TestCountByStatusAndStatus(t *testing.T) {
	gaps := map[string]Gap{
		"a": {GapPct: -16},
		"b": {GapPct: -15},
		"c": {GapPct: -5},
		"d": {GapPct: 3},
	}
	assert.Equal(t, StatusCounts{Critical: 1, Warning: 1, Good: 2}, CountByStatus(gaps))

	assert.Equal(t, StatusExcellent, Status(10))
	assert.Equal(t, StatusGood, Status(0))
	assert.Equal(t, StatusNeedsAttention, Status(-10))
	assert.Equal(t, StatusCritical, Status(-10.5))
}

func TestSummary_AllWithinRange(t *testing.T) {
	reg := threeKPIRegistry(t)
	values := map[string]float64{model.KPIAvgTicket: 35, model.KPICovers: 200, model.KPICustomerRepeat: 0.4}
	a, err := Analyze(record(model.RecordActual, values), record(model.RecordBenchmark, values), reg)
	require.NoError(t, err)
	assert.Equal(t, "All KPIs are within the benchmark range.", a.Summary)
	assert.Equal(t, GradeB, a.Grade)
	assert.Empty(t, a.Underperforming)
}
