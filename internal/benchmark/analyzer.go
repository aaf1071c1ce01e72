package benchmark

import (
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/flavyr/internal/model"
)

// Analysis bundles the strategic comparison of one restaurant.
type Analysis struct {
	Gaps            map[string]Gap `json:"gaps"`
	Segment         model.Segment  `json:"segment"`
	Grade           Grade          `json:"grade"`
	Summary         string         `json:"summary"`
	Ranked          []Gap          `json:"ranked"`
	Underperforming []Gap          `json:"underperforming"`
	Counts          StatusCounts   `json:"counts"`
	Score           float64        `json:"score"`
	Threshold       float64        `json:"threshold"`
}

// Analyze compares actual against bench using the default threshold.
func Analyze(actual, bench model.MetricRecord, reg *model.Registry) (*Analysis, error) {
	return AnalyzeWithThreshold(actual, bench, reg, DefaultThreshold)
}

// AnalyzeWithThreshold compares actual against bench.
func AnalyzeWithThreshold(actual, bench model.MetricRecord, reg *model.Registry, threshold float64) (*Analysis, error) {
	gaps, err := ComputeAllGaps(actual, bench, reg)
	if err != nil {
		return nil, err
	}
	ranked := RankBySeverity(gaps, reg)
	return &Analysis{
		Segment:         actual.Segment,
		Gaps:            gaps,
		Ranked:          ranked,
		Underperforming: Underperforming(gaps, reg, threshold),
		Grade:           OverallGrade(gaps, reg),
		Score:           PerformanceScore(gaps, reg),
		Counts:          CountByStatus(gaps),
		Threshold:       threshold,
		Summary:         summarize(ranked, threshold),
	}, nil
}

// summarize lists the three worst underperformers.
func summarize(ranked []Gap, threshold float64) string {
	var lines []string
	for _, g := range ranked {
		if len(lines) == 3 || g.GapPct >= threshold {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %.1f%% below benchmark", g.DisplayName, math.Abs(g.GapPct)))
	}
	if len(lines) == 0 {
		return "All KPIs are within the benchmark range."
	}
	return "Key areas needing attention:\n" + strings.Join(lines, "\n")
}
