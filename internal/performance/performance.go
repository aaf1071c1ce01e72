// Package performance compares transaction-level metrics against segment
// expectations and reports categorical issues.
package performance

import (
	"sort"
	"time"

	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/transactions"
)

// Issue types.
const (
	IssueLowLoyalty        = "Low Customer Loyalty"
	IssueLowAOV            = "Low Average Order Value"
	IssueLowWeekendUplift  = "Low Weekend Uplift"
	IssueSlowDayDrop       = "Excessive Slow Day Drop"
	IssueSingleItem        = "Over-reliance on Single Item"
	IssueTooManyLowSellers = "Too Many Low Performers"
)

// Issue categories.
const (
	CategoryLoyalty = "Customer Loyalty"
	CategoryAOV     = "Average Order Value"
	CategoryWeekend = "Weekend Performance"
	CategorySlowDay = "Slow Day Performance"
	CategoryMenu    = "Menu Performance"
)

// Metric keys used for deal mappings.
const (
	MetricLoyaltyRate     = "loyalty_rate"
	MetricAOV             = "aov"
	MetricWeekendUplift   = "weekend_uplift"
	MetricSlowestDay      = "slowest_day"
	MetricTopItemShare    = "top_item_concentration"
	MetricLowPerformerCnt = "bottom_items_count"
)

// Fixed thresholds.
const (
	LoyaltyCriticalPct    = 25.0
	LoyaltyHighPct        = 30.0
	LoyaltyMediumGapPP    = 5.0
	AOVHighRatio          = 0.90
	AOVMediumRatio        = 0.95
	WeekendUpliftMinPct   = 15.0
	SlowDayCriticalPct    = 40.0
	SlowDayHighPct        = 35.0
	SlowDayMediumMarginPP = 5.0
	TopItemCriticalPct    = 30.0
	MaxLowPerformers      = 5
)

// LoyaltyResult compares the repeat customer rate with the benchmark.
type LoyaltyResult struct {
	Thresholds      map[model.Level]string `json:"thresholds"`
	Level           model.Level            `json:"level"`
	Actual          float64                `json:"actual"`
	Benchmark       float64                `json:"benchmark"`
	Gap             float64                `json:"gap"`
	GapPct          float64                `json:"gap_pct"`
	TotalCustomers  int                    `json:"total_customers"`
	RepeatCustomers int                    `json:"repeat_customers"`
	NewCustomers    int                    `json:"new_customers"`
}

// UpliftResult compares weekend order value with weekday order value.
type UpliftResult struct {
	ActualPct    float64 `json:"actual_pct"`
	BenchmarkPct float64 `json:"benchmark_pct"`
	WeekendAvg   float64 `json:"weekend_avg"`
	WeekdayAvg   float64 `json:"weekday_avg"`
	HasIssue     bool    `json:"has_issue"`
}

// AOVResult compares average order value with the blended benchmark.
type AOVResult struct {
	Level         model.Level  `json:"level"`
	Actual        float64      `json:"actual"`
	Benchmark     float64      `json:"benchmark"`
	Gap           float64      `json:"gap"`
	GapPct        float64      `json:"gap_pct"`
	WeekendUplift UpliftResult `json:"weekend_uplift"`
}

// SlowDayResult compares the slowest day's drop against the benchmark.
type SlowDayResult struct {
	Level            model.Level  `json:"level"`
	ActualDay        time.Weekday `json:"actual_day"`
	ExpectedDay      time.Weekday `json:"expected_day"`
	ActualDropPct    float64      `json:"actual_drop_pct"`
	BenchmarkDropPct float64      `json:"benchmark_drop_pct"`
	DropGap          float64      `json:"drop_gap"`
	AverageCount     float64      `json:"average_count"`
	Count            int          `json:"count"`
	DayMatches       bool         `json:"day_matches"`
}

// PoorItem is an item whose revenue share is below the threshold.
type PoorItem struct {
	Name     string  `json:"name"`
	SharePct float64 `json:"share_pct"`
	Revenue  float64 `json:"revenue"`
}

// ItemResult describes menu concentration.
type ItemResult struct {
	TopItem          string     `json:"top_item"`
	PoorPerformers   []PoorItem `json:"poor_performers"`
	TopSharePct      float64    `json:"top_share_pct"`
	TopShareBench    float64    `json:"top_share_benchmark"`
	BottomThreshold  float64    `json:"bottom_threshold"`
	TopShareWarning  bool       `json:"top_share_warning"`
	TopShareCritical bool       `json:"top_share_critical"`
	TooManyPoor      bool       `json:"too_many_poor"`
}

// Issue is one tactical finding.
type Issue struct {
	Category   string      `json:"category"`
	IssueType  string      `json:"issue_type"`
	Metric     string      `json:"metric"`
	Level      model.Level `json:"level"`
	Subject    string      `json:"subject,omitempty"`
	Actual     float64     `json:"actual"`
	Benchmark  float64     `json:"benchmark"`
	IsCritical bool        `json:"is_critical"`
}

// Report is the full comparison of one batch.
type Report struct {
	Benchmark   model.TransactionBenchmark `json:"benchmark"`
	Issues      []Issue                    `json:"issues"`
	Items       ItemResult                 `json:"items"`
	Loyalty     LoyaltyResult              `json:"loyalty"`
	SlowDay     SlowDayResult              `json:"slow_day"`
	AOV         AOVResult                  `json:"aov"`
	HasCritical bool                       `json:"has_critical"`
	HasHigh     bool                       `json:"has_high"`
}

// Compare evaluates a tactical analysis against bench.
func Compare(a *transactions.Analysis, bench model.TransactionBenchmark) *Report {
	r := &Report{
		Benchmark: bench,
		Loyalty:   CompareLoyalty(a.Loyalty, bench.LoyaltyRatePct),
		AOV:       CompareAOV(a.AOV, bench),
		SlowDay:   CompareSlowDay(a.Slowest, bench),
		Items:     CompareItems(a.Items, bench),
	}

	if r.Loyalty.Level != model.LevelGood {
		r.Issues = append(r.Issues, Issue{
			Category:  CategoryLoyalty,
			IssueType: IssueLowLoyalty,
			Metric:    MetricLoyaltyRate,
			Level:     r.Loyalty.Level,
			Actual:    r.Loyalty.Actual,
			Benchmark: r.Loyalty.Benchmark,
		})
	}
	if r.AOV.Level != model.LevelGood {
		r.Issues = append(r.Issues, Issue{
			Category:  CategoryAOV,
			IssueType: IssueLowAOV,
			Metric:    MetricAOV,
			Level:     r.AOV.Level,
			Actual:    r.AOV.Actual,
			Benchmark: r.AOV.Benchmark,
		})
	}
	if r.AOV.WeekendUplift.HasIssue {
		r.Issues = append(r.Issues, Issue{
			Category:  CategoryWeekend,
			IssueType: IssueLowWeekendUplift,
			Metric:    MetricWeekendUplift,
			Level:     model.LevelMedium,
			Actual:    r.AOV.WeekendUplift.ActualPct,
			Benchmark: r.AOV.WeekendUplift.BenchmarkPct,
		})
	}
	if r.SlowDay.Level != model.LevelGood {
		r.Issues = append(r.Issues, Issue{
			Category:  CategorySlowDay,
			IssueType: IssueSlowDayDrop,
			Metric:    MetricSlowestDay,
			Level:     r.SlowDay.Level,
			Subject:   r.SlowDay.ActualDay.String(),
			Actual:    r.SlowDay.ActualDropPct,
			Benchmark: r.SlowDay.BenchmarkDropPct,
		})
	}
	if r.Items.TopShareCritical {
		r.Issues = append(r.Issues, Issue{
			Category:   CategoryMenu,
			IssueType:  IssueSingleItem,
			Metric:     MetricTopItemShare,
			Level:      model.LevelMedium,
			Subject:    r.Items.TopItem,
			Actual:     r.Items.TopSharePct,
			Benchmark:  r.Items.TopShareBench,
			IsCritical: true,
		})
	}
	if r.Items.TooManyPoor {
		r.Issues = append(r.Issues, Issue{
			Category:  CategoryMenu,
			IssueType: IssueTooManyLowSellers,
			Metric:    MetricLowPerformerCnt,
			Level:     model.LevelMedium,
			Actual:    float64(len(r.Items.PoorPerformers)),
			Benchmark: MaxLowPerformers,
		})
	}

	sort.SliceStable(r.Issues, func(i, j int) bool {
		return r.Issues[i].Level.Order() < r.Issues[j].Level.Order()
	})
	for _, is := range r.Issues {
		r.HasCritical = r.HasCritical || is.Level == model.LevelCritical
		r.HasHigh = r.HasHigh || is.Level == model.LevelHigh
	}
	return r
}

// CompareLoyalty grades the loyalty rate. Absolute floors apply before the
// benchmark gap is considered.
func CompareLoyalty(l transactions.LoyaltyStats, benchPct float64) LoyaltyResult {
	res := LoyaltyResult{
		Actual:          l.RatePct,
		Benchmark:       benchPct,
		Gap:             l.RatePct - benchPct,
		TotalCustomers:  l.TotalCustomers,
		RepeatCustomers: l.RepeatCustomers,
		NewCustomers:    l.NewCustomers,
		Thresholds: map[model.Level]string{
			model.LevelCritical: "<25%",
			model.LevelHigh:     "25-30%",
			model.LevelMedium:   "more than 5pp below benchmark",
			model.LevelGood:     "within 5pp of benchmark or above",
		},
	}
	if benchPct > 0 {
		res.GapPct = res.Gap / benchPct * 100
	}

	switch {
	case l.RatePct < LoyaltyCriticalPct:
		res.Level = model.LevelCritical
	case l.RatePct < LoyaltyHighPct:
		res.Level = model.LevelHigh
	case res.Gap < -LoyaltyMediumGapPP:
		res.Level = model.LevelMedium
	default:
		res.Level = model.LevelGood
	}
	return res
}

// BlendedAOV weights weekday and weekend benchmarks by days per week.
func BlendedAOV(weekday, weekend float64) float64 {
	return (weekday*5 + weekend*2) / 7
}

// CompareAOV grades order value and weekend uplift.
func CompareAOV(aov transactions.AOVStats, bench model.TransactionBenchmark) AOVResult {
	blended := BlendedAOV(bench.AOVWeekday, bench.AOVWeekend)
	res := AOVResult{
		Actual:    aov.Overall,
		Benchmark: blended,
		Gap:       aov.Overall - blended,
	}
	if blended > 0 {
		res.GapPct = res.Gap / blended * 100
	}

	switch {
	case aov.Overall < blended*AOVHighRatio:
		res.Level = model.LevelHigh
	case aov.Overall < blended*AOVMediumRatio:
		res.Level = model.LevelMedium
	default:
		res.Level = model.LevelGood
	}

	var weekend, weekday []float64
	for _, d := range model.Weekdays {
		v, ok := aov.ByDay[d]
		if !ok {
			continue
		}
		if model.IsWeekend(d) {
			weekend = append(weekend, v)
		} else {
			weekday = append(weekday, v)
		}
	}
	up := UpliftResult{
		BenchmarkPct: bench.AOVVariationPct,
		WeekendAvg:   mean(weekend),
		WeekdayAvg:   mean(weekday),
	}
	if up.WeekdayAvg > 0 {
		up.ActualPct = (up.WeekendAvg - up.WeekdayAvg) / up.WeekdayAvg * 100
	}
	up.HasIssue = up.ActualPct < WeekendUpliftMinPct
	res.WeekendUplift = up
	return res
}

// CompareSlowDay grades how far the slowest day falls below the daily average.
func CompareSlowDay(s transactions.SlowestDays, bench model.TransactionBenchmark) SlowDayResult {
	counts := make([]float64, 0, len(s.Days))
	for _, d := range model.Weekdays {
		if st, ok := s.Days[d]; ok {
			counts = append(counts, float64(st.Count))
		}
	}
	avg := mean(counts)

	res := SlowDayResult{
		ActualDay:        s.ByCount.Day,
		ExpectedDay:      bench.ExpectedSlowestDay,
		DayMatches:       s.ByCount.Day == bench.ExpectedSlowestDay,
		Count:            s.ByCount.Count,
		AverageCount:     avg,
		BenchmarkDropPct: bench.SlowDayDropPct,
	}
	if avg > 0 {
		res.ActualDropPct = (avg - float64(s.ByCount.Count)) / avg * 100
	}
	res.DropGap = res.ActualDropPct - bench.SlowDayDropPct

	switch {
	case res.ActualDropPct > SlowDayCriticalPct:
		res.Level = model.LevelCritical
	case res.ActualDropPct > SlowDayHighPct:
		res.Level = model.LevelHigh
	case res.ActualDropPct > bench.SlowDayDropPct+SlowDayMediumMarginPP:
		res.Level = model.LevelMedium
	default:
		res.Level = model.LevelGood
	}
	return res
}

// CompareItems measures revenue concentration across the whole menu.
func CompareItems(items transactions.ItemRanking, bench model.TransactionBenchmark) ItemResult {
	res := ItemResult{
		TopShareBench:   bench.TopItemSharePct,
		BottomThreshold: bench.BottomItemThresholdPct,
	}
	if items.TotalRevenue <= 0 {
		return res
	}

	if len(items.TopByRevenue) > 0 {
		top := items.TopByRevenue[0]
		res.TopItem = top.Name
		res.TopSharePct = top.Revenue / items.TotalRevenue * 100
	}
	res.TopShareCritical = res.TopSharePct > TopItemCriticalPct
	res.TopShareWarning = res.TopSharePct > bench.TopItemSharePct

	for i := len(items.All) - 1; i >= 0; i-- {
		it := items.All[i]
		share := it.Revenue / items.TotalRevenue * 100
		if share < bench.BottomItemThresholdPct {
			res.PoorPerformers = append(res.PoorPerformers, PoorItem{Name: it.Name, SharePct: share, Revenue: it.Revenue})
		}
	}
	res.TooManyPoor = len(res.PoorPerformers) > MaxLowPerformers
	return res
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
