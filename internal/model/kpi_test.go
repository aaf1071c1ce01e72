package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	assert.Equal(t, 7, reg.Len())
	assert.Equal(t, []string{
		KPIAvgTicket, KPICovers, KPILaborCostPct, KPIFoodCostPct,
		KPITableTurnover, KPISalesPerSqft, KPICustomerRepeat,
	}, reg.Keys())

	def, ok := reg.Get(KPIFoodCostPct)
	require.True(t, ok)
	assert.Equal(t, LowerIsBetter, def.Polarity)
	assert.Equal(t, ProblemProfitMargins, def.BusinessProblem)

	problem, ok := reg.Problem(KPISalesPerSqft)
	require.True(t, ok)
	assert.Equal(t, ProblemSlowDays, problem)

	assert.Equal(t, 2, reg.Index(KPILaborCostPct))
	assert.Equal(t, -1, reg.Index("unknown"))
	assert.Equal(t, "unknown", reg.DisplayName("unknown"))
}

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name string
		defs []KPIDefinition
	}{
		{
			name: "duplicate key",
			defs: []KPIDefinition{
				{Key: "a", Polarity: HigherIsBetter},
				{Key: "a", Polarity: LowerIsBetter},
			},
		},
		{
			name: "missing key",
			defs: []KPIDefinition{{Polarity: HigherIsBetter}},
		},
		{
			name: "bad polarity",
			defs: []KPIDefinition{{Key: "a", Polarity: "sideways"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs...)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_DefinitionsIsCopy(t *testing.T) {
	reg := DefaultRegistry()
	defs := reg.Definitions()
	defs[0].DisplayName = "changed"

	d, _ := reg.Get(KPIAvgTicket)
	assert.Equal(t, "Average Ticket Size", d.DisplayName)
}

func TestSplitDealTypes(t *testing.T) {
	assert.Equal(t, []string{"Happy Hour", "Bundle Deal"}, SplitDealTypes(" Happy Hour ;; Bundle Deal; "))
	assert.Nil(t, SplitDealTypes("   "))
	assert.Equal(t, []string{"BOGO"}, Deal{DealTypes: "BOGO"}.Types())
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Wednesday")
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, d)

	_, err = ParseWeekday("wednesday")
	assert.Error(t, err)
	_, err = ParseWeekday("Wed")
	assert.Error(t, err)

	assert.Equal(t, 0, WeekdayOrder(time.Monday))
	assert.Equal(t, 6, WeekdayOrder(time.Sunday))
	assert.True(t, IsWeekend(time.Saturday))
	assert.False(t, IsWeekend(time.Friday))
}

func TestDerivedAggregate_LowConfidence(t *testing.T) {
	reg := DefaultRegistry()
	agg := DerivedAggregate{
		Provenance: map[string]Provenance{
			KPIAvgTicket:    {Derived: true, Confidence: ConfidenceHigh},
			KPISalesPerSqft: {Derived: false, Confidence: ConfidenceLow},
			KPIFoodCostPct:  {Derived: false, Confidence: ConfidenceLow},
		},
	}
	assert.Equal(t, []string{KPIFoodCostPct, KPISalesPerSqft}, agg.LowConfidence(reg))
}
