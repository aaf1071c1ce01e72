package transparency

import (
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/performance"
)

// Band is one tier of a severity scale.
type Band struct {
	Level   model.Level `json:"level"`
	Range   string      `json:"range"`
	Meaning string      `json:"meaning"`
	Current bool        `json:"current"`
}

// SeverityScale lists the tiers used for a tactical metric and marks the one
// the restaurant falls in.
func SeverityScale(metric string, level model.Level) []Band {
	var bands []Band
	switch metric {
	case performance.MetricLoyaltyRate:
		bands = []Band{
			{Level: model.LevelCritical, Range: "under 25%", Meaning: "Customer retention is dangerously low"},
			{Level: model.LevelHigh, Range: "25-30%", Meaning: "Significant underperformance"},
			{Level: model.LevelMedium, Range: "over 5pp below benchmark", Meaning: "Below industry standard"},
			{Level: model.LevelGood, Range: "near or above benchmark", Meaning: "Meeting or exceeding expectations"},
		}
	case performance.MetricAOV:
		bands = []Band{
			{Level: model.LevelHigh, Range: "under 90% of benchmark", Meaning: "Customers spend significantly less than competitors"},
			{Level: model.LevelMedium, Range: "90-95% of benchmark", Meaning: "Room for upsells and bundles"},
			{Level: model.LevelGood, Range: "95% of benchmark or more", Meaning: "Competitive or better"},
		}
	case performance.MetricSlowestDay:
		bands = []Band{
			{Level: model.LevelCritical, Range: "over 40% drop", Meaning: "Slowest day far worse than the norm"},
			{Level: model.LevelHigh, Range: "35-40% drop", Meaning: "Notable underperformance"},
			{Level: model.LevelMedium, Range: "over 5pp above expected drop", Meaning: "Could improve"},
			{Level: model.LevelGood, Range: "within 5pp of expected drop", Meaning: "Normal slow day"},
		}
	default:
		return nil
	}
	for i := range bands {
		bands[i].Current = bands[i].Level == level
	}
	return bands
}
