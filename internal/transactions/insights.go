package transactions

import (
	"fmt"
	"time"

	"github.com/Veraticus/flavyr/internal/model"
)

// LoyaltyProgramThreshold is the loyalty rate below which a loyalty program
// is suggested.
const LoyaltyProgramThreshold = 30.0

// Recommendations builds day and item specific suggestions from an analysis.
func Recommendations(a *Analysis) []string {
	var recs []string

	slow := a.Slowest.ByCount
	recs = append(recs, fmt.Sprintf(
		"Run a promotion on %s to boost traffic (currently lowest at %d transactions)",
		slow.Day, slow.Count))

	if a.Slowest.ByRevenue.Day != slow.Day {
		recs = append(recs, fmt.Sprintf(
			"Focus on upselling on %s - it has transactions but low revenue ($%.2f)",
			a.Slowest.ByRevenue.Day, a.Slowest.ByRevenue.Revenue))
	}

	if low, high, ok := aovExtremes(a.AOV.ByDay); ok {
		recs = append(recs, fmt.Sprintf(
			"Implement a bundling strategy on %s to increase AOV (currently $%.2f vs $%.2f on %s)",
			low, a.AOV.ByDay[low], a.AOV.ByDay[high], high))
	}

	if len(a.Items.BottomByRevenue) > 0 {
		b := a.Items.BottomByRevenue[0]
		recs = append(recs, fmt.Sprintf(
			"Consider removing or reformulating '%s' (lowest revenue item at $%.2f)", b.Name, b.Revenue))
	}

	if len(a.Items.TopByRevenue) > 0 {
		top := a.Items.TopByRevenue[0]
		recs = append(recs, fmt.Sprintf(
			"Feature '%s' prominently - top revenue driver at $%.2f", top.Name, top.Revenue))
	}

	if a.Loyalty.RatePct < LoyaltyProgramThreshold {
		recs = append(recs, fmt.Sprintf(
			"Launch a loyalty program - only %.1f%% of customers return (%d of %d customers)",
			a.Loyalty.RatePct, a.Loyalty.RepeatCustomers, a.Loyalty.TotalCustomers))
	}

	return recs
}

// aovExtremes returns the weekdays with the lowest and highest AOV.
func aovExtremes(byDay map[time.Weekday]float64) (low, high time.Weekday, ok bool) {
	for _, d := range model.Weekdays {
		v, present := byDay[d]
		if !present {
			continue
		}
		if !ok {
			low, high, ok = d, d, true
			continue
		}
		if v < byDay[low] {
			low = d
		}
		if v > byDay[high] {
			high = d
		}
	}
	return low, high, ok
}
