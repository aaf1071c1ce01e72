package transparency

import (
	"fmt"
	"math"
	"strings"
)

// Factors are the data quality inputs to the confidence score.
type Factors struct {
	SampleSize          int `json:"sample_size"`
	DaysOfData          int `json:"days_of_data"`
	BenchmarkSampleSize int `json:"benchmark_sample_size"`
	Locations           int `json:"locations"`
}

// Confidence is a 0-1 score with the reasons behind it.
type Confidence struct {
	Reasons []string `json:"reasons"`
	Factors Factors  `json:"factors"`
	Score   float64  `json:"score"`
}

// ConfidenceScore weights sample size 0.4, time range 0.3 and benchmark
// depth 0.3.
func ConfidenceScore(f Factors) float64 {
	var score float64
	switch {
	case f.SampleSize >= 1000:
		score += 0.4
	case f.SampleSize >= 500:
		score += 0.3
	case f.SampleSize >= 100:
		score += 0.2
	default:
		score += 0.1
	}
	switch {
	case f.DaysOfData >= 60:
		score += 0.3
	case f.DaysOfData >= 30:
		score += 0.25
	case f.DaysOfData >= 14:
		score += 0.15
	default:
		score += 0.05
	}
	switch {
	case f.BenchmarkSampleSize >= 500:
		score += 0.3
	case f.BenchmarkSampleSize >= 100:
		score += 0.2
	default:
		score += 0.1
	}
	return math.Round(score*100) / 100
}

// Assess scores f and lists the reasons.
func Assess(f Factors) Confidence {
	c := Confidence{Factors: f, Score: ConfidenceScore(f)}

	switch {
	case f.SampleSize >= 1000:
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d transactions (large sample)", f.SampleSize))
	case f.SampleSize >= 500:
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d transactions (adequate sample)", f.SampleSize))
	default:
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d transactions (small sample, limited confidence)", f.SampleSize))
	}

	switch {
	case f.DaysOfData >= 60:
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d days of data (good time range)", f.DaysOfData))
	case f.DaysOfData >= 30:
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d days of data (decent time range)", f.DaysOfData))
	default:
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d days of data (short time range)", f.DaysOfData))
	}

	if f.BenchmarkSampleSize >= 500 {
		c.Reasons = append(c.Reasons, fmt.Sprintf("Benchmark from %d+ restaurants", f.BenchmarkSampleSize))
	} else {
		c.Reasons = append(c.Reasons, "Limited benchmark sample")
	}

	if f.Locations <= 1 {
		c.Reasons = append(c.Reasons, "Single location data, may not reflect full brand performance")
	} else {
		c.Reasons = append(c.Reasons, fmt.Sprintf("Data from %d locations", f.Locations))
	}
	return c
}

// Bar renders a ten cell bar followed by the percentage.
func Bar(score float64) string {
	filled := int(score * 10)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return fmt.Sprintf("%s%s %d%%", strings.Repeat("█", filled), strings.Repeat("░", 10-filled), int(math.Round(score*100)))
}
