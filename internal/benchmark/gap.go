// Package benchmark compares restaurant KPIs against segment benchmarks and
// grades the result.
package benchmark

import (
	"sort"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/model"
)

// DefaultThreshold is the gap percentage below which a KPI underperforms.
const DefaultThreshold = -5.0

// Gap is the signed percentage difference between an actual value and its
// benchmark. A negative GapPct always means underperforming.
type Gap struct {
	KPI         string         `json:"kpi"`
	DisplayName string         `json:"display_name"`
	Polarity    model.Polarity `json:"polarity"`
	Actual      float64        `json:"actual"`
	Benchmark   float64        `json:"benchmark"`
	GapPct      float64        `json:"gap_pct"`
}

// ComputeGap returns the percentage gap between actual and benchmark.
// A zero benchmark yields zero. Lower-is-better KPIs are negated so that
// negative means worse for every KPI.
func ComputeGap(actual, benchmark float64, p model.Polarity) float64 {
	if benchmark == 0 {
		return 0
	}
	raw := (actual - benchmark) / benchmark * 100
	if p == model.LowerIsBetter {
		return -raw
	}
	return raw
}

// ComputeAllGaps computes a gap for every registered KPI.
func ComputeAllGaps(actual, bench model.MetricRecord, reg *model.Registry) (map[string]Gap, error) {
	gaps := make(map[string]Gap, reg.Len())
	for _, def := range reg.Definitions() {
		a, ok := actual.Value(def.Key)
		if !ok {
			return nil, &common.MissingMetricError{KPI: def.Key, Record: string(model.RecordActual)}
		}
		b, ok := bench.Value(def.Key)
		if !ok {
			return nil, &common.MissingMetricError{KPI: def.Key, Record: string(model.RecordBenchmark)}
		}
		gaps[def.Key] = Gap{
			KPI:         def.Key,
			DisplayName: def.DisplayName,
			Polarity:    def.Polarity,
			Actual:      a,
			Benchmark:   b,
			GapPct:      ComputeGap(a, b, def.Polarity),
		}
	}
	return gaps, nil
}

// ordered returns the gaps in registry order followed by unknown keys sorted
// by name.
func ordered(gaps map[string]Gap, reg *model.Registry) []Gap {
	out := make([]Gap, 0, len(gaps))
	for _, k := range reg.Keys() {
		if g, ok := gaps[k]; ok {
			out = append(out, g)
		}
	}
	var extra []string
	for k := range gaps {
		if reg.Index(k) < 0 {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, gaps[k])
	}
	return out
}

// RankBySeverity orders gaps from worst to best. Ties keep registry order.
func RankBySeverity(gaps map[string]Gap, reg *model.Registry) []Gap {
	out := ordered(gaps, reg)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GapPct < out[j].GapPct
	})
	return out
}

// Underperforming returns the gaps strictly below threshold in registry order.
func Underperforming(gaps map[string]Gap, reg *model.Registry, threshold float64) []Gap {
	var out []Gap
	for _, g := range ordered(gaps, reg) {
		if g.GapPct < threshold {
			out = append(out, g)
		}
	}
	return out
}
