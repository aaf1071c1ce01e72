package model

import (
	"fmt"
	"time"
)

// Transaction represents a single point-of-sale transaction.
type Transaction struct {
	Date       time.Time    `json:"date"`
	CustomerID string       `json:"customer_id"`
	ItemName   string       `json:"item_name"`
	Amount     float64      `json:"total"`
	DayOfWeek  time.Weekday `json:"day_of_week"`
}

// Weekdays lists the days in calendar order starting on Monday.
var Weekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// ParseWeekday parses one of the seven canonical English day names.
func ParseWeekday(name string) (time.Weekday, error) {
	for _, d := range Weekdays {
		if d.String() == name {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid day of week %q", name)
}

// IsWeekend reports whether d is Saturday or Sunday.
func IsWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// WeekdayOrder returns the position of d in Weekdays.
func WeekdayOrder(d time.Weekday) int {
	return (int(d) + 6) % 7
}
