package model

import (
	"strings"
	"time"
)

// Deal is one row of the deal catalogue.
type Deal struct {
	BusinessProblem string `json:"business_problem" yaml:"business_problem"`
	DealTypes       string `json:"deal_types" yaml:"deal_types"`
	Rationale       string `json:"rationale" yaml:"rationale"`
}

// Types splits the semicolon-delimited deal types.
func (d Deal) Types() []string {
	return SplitDealTypes(d.DealTypes)
}

// SplitDealTypes parses a semicolon-separated list, dropping blanks.
func SplitDealTypes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DealMapping maps a transaction metric or issue type to a business problem.
type DealMapping struct {
	Key             string `json:"key" yaml:"key"`
	BusinessProblem string `json:"business_problem" yaml:"business_problem"`
	Priority        int    `json:"priority" yaml:"priority"`
}

// TransactionBenchmark holds segment expectations for transaction-level metrics.
type TransactionBenchmark struct {
	Segment                Segment      `json:"segment"`
	LoyaltyRatePct         float64      `json:"loyalty_rate_pct"`
	AOVWeekday             float64      `json:"aov_weekday"`
	AOVWeekend             float64      `json:"aov_weekend"`
	AOVVariationPct        float64      `json:"aov_variation_pct"`
	SlowDayDropPct         float64      `json:"slow_day_drop_pct"`
	TopItemSharePct        float64      `json:"top_item_share_pct"`
	BottomItemThresholdPct float64      `json:"bottom_item_threshold_pct"`
	ExpectedSlowestDay     time.Weekday `json:"expected_slowest_day"`
}

// DefaultTransactionBenchmark returns the fallback expectations used when a
// seed row leaves a field blank.
func DefaultTransactionBenchmark(segment Segment) TransactionBenchmark {
	return TransactionBenchmark{
		Segment:                segment,
		LoyaltyRatePct:         35.0,
		AOVWeekday:             25.0,
		AOVWeekend:             32.0,
		AOVVariationPct:        28.0,
		ExpectedSlowestDay:     time.Monday,
		SlowDayDropPct:         30.0,
		TopItemSharePct:        20.0,
		BottomItemThresholdPct: 2.5,
	}
}
