// Package transparency explains how each figure in an analysis was derived.
// Everything is returned as structured data so callers choose the rendering.
package transparency

import (
	"fmt"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/performance"
)

// Step is one stage of a derivation.
type Step struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Explanation is a titled sequence of steps.
type Explanation struct {
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// Explanation keys used by the pipeline.
const (
	ExplainLoyalty = "loyalty"
	ExplainAOV     = "aov"
	ExplainSlowDay = "slow_day"
	ExplainItems   = "items"
	ExplainScore   = "score"
)

// Loyalty explains the repeat customer rate.
func Loyalty(r performance.LoyaltyResult, segment model.Segment) Explanation {
	return Explanation{
		Title: "Customer loyalty rate",
		Steps: []Step{
			{Title: "Count your customers", Lines: []string{
				"Source: uploaded transaction data, unique customer IDs",
				fmt.Sprintf("Total customers found: %d", r.TotalCustomers),
			}},
			{Title: "Identify repeat customers", Lines: []string{
				"Customers with two or more visits",
				fmt.Sprintf("Repeat customers: %d", r.RepeatCustomers),
				fmt.Sprintf("New customers (one visit): %d", r.NewCustomers),
			}},
			{Title: "Calculate loyalty rate", Lines: []string{
				"Formula: (repeat customers / total customers) x 100",
				fmt.Sprintf("Calculation: (%d / %d) x 100", r.RepeatCustomers, r.TotalCustomers),
				fmt.Sprintf("Your loyalty rate: %.1f%%", r.Actual),
			}},
			{Title: "Compare to industry benchmark", Lines: []string{
				"Restaurant type: " + segment.String(),
				fmt.Sprintf("Industry benchmark: %.1f%%", r.Benchmark),
				fmt.Sprintf("Gap: %+.1f percentage points", r.Gap),
			}},
		},
	}
}

// AOV explains average order value and weekend uplift.
func AOV(r performance.AOVResult, totalRevenue float64, transactions int, segment model.Segment) Explanation {
	return Explanation{
		Title: "Average order value",
		Steps: []Step{
			{Title: "Calculate total revenue", Lines: []string{
				"Source: sum of all transaction totals",
				fmt.Sprintf("Total revenue: $%.2f", totalRevenue),
			}},
			{Title: "Count transactions", Lines: []string{
				fmt.Sprintf("Total transactions: %d", transactions),
			}},
			{Title: "Calculate average order value", Lines: []string{
				"Formula: total revenue / total transactions",
				fmt.Sprintf("Calculation: $%.2f / %d", totalRevenue, transactions),
				fmt.Sprintf("Your AOV: $%.2f", r.Actual),
			}},
			{Title: "Analyze day-of-week pattern", Lines: []string{
				fmt.Sprintf("Weekday average (Mon-Fri): $%.2f", r.WeekendUplift.WeekdayAvg),
				fmt.Sprintf("Weekend average (Sat-Sun): $%.2f", r.WeekendUplift.WeekendAvg),
				fmt.Sprintf("Weekend uplift: %.1f%% (expected %.1f%%)", r.WeekendUplift.ActualPct, r.WeekendUplift.BenchmarkPct),
			}},
			{Title: "Compare to industry benchmark", Lines: []string{
				"Restaurant type: " + segment.String(),
				fmt.Sprintf("Industry benchmark: $%.2f (weekday x5 + weekend x2, over 7 days)", r.Benchmark),
				fmt.Sprintf("Gap: %+.1f%%", r.GapPct),
			}},
		},
	}
}

// SlowDay explains the slowest day drop.
func SlowDay(r performance.SlowDayResult, segment model.Segment) Explanation {
	matches := "No"
	if r.DayMatches {
		matches = "Yes"
	}
	return Explanation{
		Title: "Slowest day",
		Steps: []Step{
			{Title: "Count transactions by day", Lines: []string{
				fmt.Sprintf("Your slowest day: %s", r.ActualDay),
				fmt.Sprintf("Transactions on %s: %d", r.ActualDay, r.Count),
			}},
			{Title: "Calculate average daily transactions", Lines: []string{
				fmt.Sprintf("Average per day: %.0f transactions", r.AverageCount),
			}},
			{Title: "Calculate performance drop", Lines: []string{
				"Formula: (average - slowest) / average x 100",
				fmt.Sprintf("Calculation: (%.0f - %d) / %.0f x 100", r.AverageCount, r.Count, r.AverageCount),
				fmt.Sprintf("Your drop: %.1f%% below average", r.ActualDropPct),
			}},
			{Title: "Compare to industry pattern", Lines: []string{
				"Restaurant type: " + segment.String(),
				fmt.Sprintf("Expected slowest day: %s", r.ExpectedDay),
				fmt.Sprintf("Expected drop: %.0f%% below average", r.BenchmarkDropPct),
				"Day matches expectation: " + matches,
				fmt.Sprintf("Drop versus expected: %+.1fpp", r.DropGap),
			}},
		},
	}
}

// Items explains menu concentration.
func Items(r performance.ItemResult, topRevenue, totalRevenue float64) Explanation {
	status := "Healthy balance"
	if r.TopShareCritical {
		status = "High concentration risk"
	}
	return Explanation{
		Title: "Item performance",
		Steps: []Step{
			{Title: "Analyze top item", Lines: []string{
				"Top revenue item: " + r.TopItem,
				fmt.Sprintf("Revenue from this item: $%.2f", topRevenue),
				fmt.Sprintf("Total revenue: $%.2f", totalRevenue),
				fmt.Sprintf("Top item share: %.1f%%", r.TopSharePct),
			}},
			{Title: "Check menu concentration risk", Lines: []string{
				fmt.Sprintf("Healthy range: under %.0f%% from a single item", r.TopShareBench),
				"Status: " + status,
			}},
			{Title: "Identify poor performers", Lines: []string{
				fmt.Sprintf("Items earning under %.1f%% of revenue: %d", r.BottomThreshold, len(r.PoorPerformers)),
				fmt.Sprintf("Flagged when more than %d", performance.MaxLowPerformers),
			}},
		},
	}
}

// Score explains the 0-100 performance score and the letter grade.
func Score(a *benchmark.Analysis) Explanation {
	var sum float64
	for _, g := range a.Gaps {
		sum += g.GapPct
	}
	mean := 0.0
	if len(a.Gaps) > 0 {
		mean = sum / float64(len(a.Gaps))
	}
	return Explanation{
		Title: "Performance score",
		Steps: []Step{
			{Title: "Average the KPI gaps", Lines: []string{
				fmt.Sprintf("KPIs compared: %d", len(a.Gaps)),
				fmt.Sprintf("Mean gap: %+.1f%%", mean),
			}},
			{Title: "Map the mean to a score", Lines: []string{
				"20% or more above benchmark scores 100",
				"At benchmark scores 70",
				"40% or more below benchmark scores 0",
				fmt.Sprintf("Your score: %.1f", a.Score),
			}},
			{Title: "Assign a grade", Lines: []string{
				"A at +10% or better, B at 0%, C at -10%, D at -20%, F below",
				fmt.Sprintf("Your grade: %s", a.Grade),
			}},
		},
	}
}
