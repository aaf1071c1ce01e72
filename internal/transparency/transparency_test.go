package transparency

import (
	"testing"
	"time"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/performance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var segment = model.Segment{CuisineType: "Mexican", DiningModel: "Fast Casual"}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name string
		f    Factors
		want float64
	}{
		{name: "best case", f: Factors{SampleSize: 1000, DaysOfData: 60, BenchmarkSampleSize: 500}, want: 1.0},
		{name: "worst case", f: Factors{}, want: 0.25},
		{name: "middle", f: Factors{SampleSize: 500, DaysOfData: 30, BenchmarkSampleSize: 100}, want: 0.75},
		{name: "small", f: Factors{SampleSize: 100, DaysOfData: 14, BenchmarkSampleSize: 99}, want: 0.45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ConfidenceScore(tt.f), 1e-9)
		})
	}
}

func TestAssess(t *testing.T) {
	c := Assess(Factors{SampleSize: 40, DaysOfData: 7, BenchmarkSampleSize: 500, Locations: 1})
	require.Len(t, c.Reasons, 4)
	assert.Contains(t, c.Reasons[0], "small sample")
	assert.Contains(t, c.Reasons[1], "short time range")
	assert.Contains(t, c.Reasons[2], "500+ restaurants")
	assert.Contains(t, c.Reasons[3], "Single location")
	assert.InDelta(t, 0.45, c.Score, 1e-9)
}

func TestBar(t *testing.T) {
	assert.Equal(t, "███████░░░ 75%", Bar(0.75))
	assert.Equal(t, "██████████ 100%", Bar(1))
	assert.Equal(t, "░░░░░░░░░░ 0%", Bar(0))
}

func TestSeverityScale(t *testing.T) {
	bands := SeverityScale(performance.MetricSlowestDay, model.LevelHigh)
	require.Len(t, bands, 4)
	for _, b := range bands {
		assert.Equal(t, b.Level == model.LevelHigh, b.Current, b.Range)
	}

	aov := SeverityScale(performance.MetricAOV, model.LevelGood)
	require.Len(t, aov, 3)
	assert.True(t, aov[2].Current)

	assert.Nil(t, SeverityScale("unknown", model.LevelHigh))
}

func TestLoyaltyExplanation(t *testing.T) {
	e := Loyalty(performance.LoyaltyResult{
		Actual: 30, Benchmark: 35, Gap: -5, TotalCustomers: 10, RepeatCustomers: 3, NewCustomers: 7,
	}, segment)

	require.Len(t, e.Steps, 4)
	assert.Contains(t, e.Steps[2].Lines, "Calculation: (3 / 10) x 100")
	assert.Contains(t, e.Steps[3].Lines, "Restaurant type: Mexican - Fast Casual")
	assert.Contains(t, e.Steps[3].Lines, "Gap: -5.0 percentage points")
}

func TestSlowDayExplanation(t *testing.T) {
	e := SlowDay(performance.SlowDayResult{
		ActualDay: time.Tuesday, ExpectedDay: time.Monday, Count: 12, AverageCount: 20,
		ActualDropPct: 40, BenchmarkDropPct: 30, DropGap: 10,
	}, segment)
	last := e.Steps[len(e.Steps)-1]
	assert.Contains(t, last.Lines, "Day matches expectation: No")
	assert.Contains(t, last.Lines, "Drop versus expected: +10.0pp")
}

func TestScoreExplanation(t *testing.T) {
	a := &benchmark.Analysis{
		Gaps:  map[string]benchmark.Gap{"a": {GapPct: -10}, "b": {GapPct: -20}},
		Score: 43.8,
		Grade: benchmark.GradeD,
	}
	e := Score(a)
	assert.Contains(t, e.Steps[0].Lines, "Mean gap: -15.0%")
	assert.Contains(t, e.Steps[2].Lines, "Your grade: D")
}

func TestTrail(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	trail := NewTrail(func() time.Time { return fixed })
	trail.Add("Loaded benchmark", map[string]any{"segment": segment.String()})
	trail.Add("Computed gaps", nil)

	entries := trail.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Step)
	assert.Equal(t, 2, entries[1].Step)
	assert.Equal(t, fixed, entries[1].Timestamp)

	var zero Trail
	zero.Add("works without clock", nil)
	assert.Len(t, zero.Entries(), 1)
}
