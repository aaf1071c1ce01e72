package benchmark

import (
	"math"

	"github.com/Veraticus/flavyr/internal/model"
)

// Grade is the letter grade derived from the mean gap.
type Grade string

// Grades from best to worst. GradeNone is returned when there is nothing to grade.
const (
	GradeA    Grade = "A"
	GradeB    Grade = "B"
	GradeC    Grade = "C"
	GradeD    Grade = "D"
	GradeF    Grade = "F"
	GradeNone Grade = ""
)

// meanGap sums in registry order so the mean is identical across runs.
func meanGap(gaps map[string]Gap, reg *model.Registry) (float64, bool) {
	if len(gaps) == 0 {
		return 0, false
	}
	var sum float64
	for _, g := range ordered(gaps, reg) {
		sum += g.GapPct
	}
	return sum / float64(len(gaps)), true
}

// OverallGrade grades the mean gap.
func OverallGrade(gaps map[string]Gap, reg *model.Registry) Grade {
	mean, ok := meanGap(gaps, reg)
	if !ok {
		return GradeNone
	}
	return GradeFor(mean)
}

// GradeFor maps a mean gap percentage to a letter grade.
func GradeFor(mean float64) Grade {
	switch {
	case mean >= 10:
		return GradeA
	case mean >= 0:
		return GradeB
	case mean >= -10:
		return GradeC
	case mean >= -20:
		return GradeD
	default:
		return GradeF
	}
}

// PerformanceScore converts the mean gap to a 0-100 score rounded to one decimal.
func PerformanceScore(gaps map[string]Gap, reg *model.Registry) float64 {
	mean, ok := meanGap(gaps, reg)
	if !ok {
		return 0
	}
	var score float64
	switch {
	case mean >= 20:
		score = 100
	case mean >= 0:
		score = 70 + mean/20*30
	case mean >= -40:
		score = 70 + mean/40*70
	default:
		score = 0
	}
	return math.Round(score*10) / 10
}

// StatusCounts tallies KPIs by how far they trail the benchmark.
type StatusCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Good     int `json:"good"`
}

// CountByStatus buckets gaps: below -15 critical, below -5 warning, else good.
func CountByStatus(gaps map[string]Gap) StatusCounts {
	var c StatusCounts
	for _, g := range gaps {
		switch {
		case g.GapPct < -15:
			c.Critical++
		case g.GapPct < -5:
			c.Warning++
		default:
			c.Good++
		}
	}
	return c
}

// KPIStatus is the label shown next to a KPI in reports.
type KPIStatus string

// Report statuses.
const (
	StatusExcellent      KPIStatus = "Excellent"
	StatusGood           KPIStatus = "Good"
	StatusNeedsAttention KPIStatus = "Needs Attention"
	StatusCritical       KPIStatus = "Critical"
)

// Status labels a single gap percentage.
func Status(gapPct float64) KPIStatus {
	switch {
	case gapPct >= 10:
		return StatusExcellent
	case gapPct >= 0:
		return StatusGood
	case gapPct >= -10:
		return StatusNeedsAttention
	default:
		return StatusCritical
	}
}
