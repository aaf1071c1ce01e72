package transactions

import (
	"time"

	"github.com/Veraticus/flavyr/internal/model"
)

// DataSummary describes the shape of a batch for data quality reporting.
type DataSummary struct {
	Start           time.Time            `json:"start"`
	End             time.Time            `json:"end"`
	PerDay          map[time.Weekday]int `json:"per_day"`
	Transactions    int                  `json:"transactions"`
	UniqueCustomers int                  `json:"unique_customers"`
	UniqueItems     int                  `json:"unique_items"`
	Days            int                  `json:"days"`
	RevenueTotal    float64              `json:"revenue_total"`
	RevenueMean     float64              `json:"revenue_mean"`
	RevenueMin      float64              `json:"revenue_min"`
	RevenueMax      float64              `json:"revenue_max"`
}

// Summarize computes counts, date range and revenue spread of txns.
func Summarize(txns []model.Transaction) DataSummary {
	s := DataSummary{PerDay: make(map[time.Weekday]int), Transactions: len(txns)}
	if len(txns) == 0 {
		return s
	}

	customers := make(map[string]struct{})
	items := make(map[string]struct{})
	s.Start, s.End = txns[0].Date, txns[0].Date
	s.RevenueMin, s.RevenueMax = txns[0].Amount, txns[0].Amount

	for _, t := range txns {
		customers[t.CustomerID] = struct{}{}
		items[t.ItemName] = struct{}{}
		s.PerDay[t.DayOfWeek]++
		s.RevenueTotal += t.Amount
		if t.Amount < s.RevenueMin {
			s.RevenueMin = t.Amount
		}
		if t.Amount > s.RevenueMax {
			s.RevenueMax = t.Amount
		}
		if t.Date.Before(s.Start) {
			s.Start = t.Date
		}
		if t.Date.After(s.End) {
			s.End = t.Date
		}
	}

	s.UniqueCustomers = len(customers)
	s.UniqueItems = len(items)
	s.RevenueMean = round(s.RevenueTotal/float64(len(txns)), 2)
	s.Days = int(s.End.Sub(s.Start).Hours()/24) + 1
	return s
}
