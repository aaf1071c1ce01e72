// Package transactions derives tactical metrics from point-of-sale
// transactions: slowest days, loyalty, order value and item rankings.
package transactions

import (
	"math"
	"sort"
	"time"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/model"
)

// DayStats aggregates the transactions of one weekday.
type DayStats struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// DayCount names the weekday with the fewest transactions.
type DayCount struct {
	Day   time.Weekday `json:"day"`
	Count int          `json:"count"`
}

// DayRevenue names the weekday with the lowest revenue.
type DayRevenue struct {
	Day     time.Weekday `json:"day"`
	Revenue float64      `json:"revenue"`
}

// SlowestDays holds both notions of a slow day. They may differ.
type SlowestDays struct {
	Days      map[time.Weekday]DayStats `json:"days"`
	ByCount   DayCount                  `json:"by_count"`
	ByRevenue DayRevenue                `json:"by_revenue"`
}

// LoyaltyStats describes how many customers came back.
type LoyaltyStats struct {
	RatePct         float64 `json:"rate_pct"`
	TotalCustomers  int     `json:"total_customers"`
	RepeatCustomers int     `json:"repeat_customers"`
	NewCustomers    int     `json:"new_customers"`
}

// AOVStats holds average order value overall and per weekday.
type AOVStats struct {
	ByDay   map[time.Weekday]float64 `json:"by_day"`
	Overall float64                  `json:"overall"`
}

// ItemStats aggregates sales of one menu item.
type ItemStats struct {
	Name     string  `json:"name"`
	Revenue  float64 `json:"revenue"`
	Quantity int     `json:"quantity"`
}

// ItemRanking lists best and worst sellers.
type ItemRanking struct {
	TopByRevenue    []ItemStats `json:"top_by_revenue"`
	TopByQuantity   []ItemStats `json:"top_by_quantity"`
	BottomByRevenue []ItemStats `json:"bottom_by_revenue"`
	All             []ItemStats `json:"all"`
	TotalRevenue    float64     `json:"total_revenue"`
}

// Analysis is the full tactical breakdown of one batch.
type Analysis struct {
	Items            ItemRanking  `json:"items"`
	Slowest          SlowestDays  `json:"slowest"`
	AOV              AOVStats     `json:"aov"`
	Recommendations  []string     `json:"recommendations"`
	Loyalty          LoyaltyStats `json:"loyalty"`
	TotalRevenue     float64      `json:"total_revenue"`
	TransactionCount int          `json:"transaction_count"`
}

const rankSize = 3

// Analyze runs every tactical fold over txns.
func Analyze(txns []model.Transaction) (*Analysis, error) {
	if len(txns) == 0 {
		return nil, common.ErrNoTransactions
	}

	a := &Analysis{
		Slowest:          FindSlowestDays(txns),
		Loyalty:          Loyalty(txns),
		AOV:              AverageOrderValue(txns),
		Items:            RankItems(txns),
		TransactionCount: len(txns),
	}
	for _, t := range txns {
		a.TotalRevenue += t.Amount
	}
	a.Recommendations = Recommendations(a)
	return a, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func byDay(txns []model.Transaction) map[time.Weekday]DayStats {
	days := make(map[time.Weekday]DayStats)
	for _, t := range txns {
		s := days[t.DayOfWeek]
		s.Count++
		s.Revenue += t.Amount
		days[t.DayOfWeek] = s
	}
	return days
}

// FindSlowestDays finds the weekday with the fewest transactions and the one
// with the lowest revenue. Ties go to the earlier day, Monday first.
func FindSlowestDays(txns []model.Transaction) SlowestDays {
	days := byDay(txns)
	out := SlowestDays{Days: days}

	first := true
	for _, d := range model.Weekdays {
		s, ok := days[d]
		if !ok {
			continue
		}
		if first || s.Count < out.ByCount.Count {
			out.ByCount = DayCount{Day: d, Count: s.Count}
		}
		if first || s.Revenue < out.ByRevenue.Revenue {
			out.ByRevenue = DayRevenue{Day: d, Revenue: s.Revenue}
		}
		first = false
	}
	return out
}

// Loyalty computes the share of customers with more than one transaction.
func Loyalty(txns []model.Transaction) LoyaltyStats {
	visits := make(map[string]int)
	for _, t := range txns {
		visits[t.CustomerID]++
	}

	var repeat int
	for _, n := range visits {
		if n > 1 {
			repeat++
		}
	}

	stats := LoyaltyStats{
		TotalCustomers:  len(visits),
		RepeatCustomers: repeat,
		NewCustomers:    len(visits) - repeat,
	}
	if len(visits) > 0 {
		stats.RatePct = round(float64(repeat)/float64(len(visits))*100, 2)
	}
	return stats
}

// AverageOrderValue computes the mean transaction amount overall and per
// weekday, rounded to cents.
func AverageOrderValue(txns []model.Transaction) AOVStats {
	stats := AOVStats{ByDay: make(map[time.Weekday]float64)}
	if len(txns) == 0 {
		return stats
	}

	var total float64
	for _, t := range txns {
		total += t.Amount
	}
	stats.Overall = round(total/float64(len(txns)), 2)

	for d, s := range byDay(txns) {
		stats.ByDay[d] = round(s.Revenue/float64(s.Count), 2)
	}
	return stats
}

// RankItems aggregates revenue and quantity per item and picks the top and
// bottom sellers.
func RankItems(txns []model.Transaction) ItemRanking {
	index := make(map[string]int)
	var items []ItemStats
	var total float64
	for _, t := range txns {
		total += t.Amount
		i, ok := index[t.ItemName]
		if !ok {
			i = len(items)
			index[t.ItemName] = i
			items = append(items, ItemStats{Name: t.ItemName})
		}
		items[i].Revenue += t.Amount
		items[i].Quantity++
	}

	byRevenue := make([]ItemStats, len(items))
	copy(byRevenue, items)
	sort.SliceStable(byRevenue, func(i, j int) bool {
		if byRevenue[i].Revenue != byRevenue[j].Revenue {
			return byRevenue[i].Revenue > byRevenue[j].Revenue
		}
		return byRevenue[i].Name < byRevenue[j].Name
	})

	byQuantity := make([]ItemStats, len(items))
	copy(byQuantity, items)
	sort.SliceStable(byQuantity, func(i, j int) bool {
		a, b := byQuantity[i], byQuantity[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.Name < b.Name
	})

	bottom := make([]ItemStats, 0, rankSize)
	for i := len(byRevenue) - 1; i >= 0 && len(bottom) < rankSize; i-- {
		bottom = append(bottom, byRevenue[i])
	}

	return ItemRanking{
		TopByRevenue:    head(byRevenue, rankSize),
		TopByQuantity:   head(byQuantity, rankSize),
		BottomByRevenue: bottom,
		All:             byRevenue,
		TotalRevenue:    total,
	}
}

func head(items []ItemStats, n int) []ItemStats {
	if len(items) < n {
		n = len(items)
	}
	out := make([]ItemStats, n)
	copy(out, items[:n])
	return out
}
