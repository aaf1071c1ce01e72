package recommend

import "sort"

// DefaultTopLimit caps the priority digest.
const DefaultTopLimit = 5

// Plan is the merged, ordered list of recommendations.
type Plan struct {
	All      []Recommendation `json:"all"`
	Top      []Recommendation `json:"top"`
	Critical bool             `json:"critical"`
}

// Merge orders strategic and tactical recommendations on one scale. Ties keep
// strategic items ahead of tactical ones. Generic fallbacks are included.
func Merge(strategic StrategicResult, tactical []Recommendation, limit int) Plan {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	all := make([]Recommendation, 0, len(strategic.Recommendations)+len(strategic.Fallbacks)+len(tactical))
	all = append(all, strategic.Recommendations...)
	all = append(all, strategic.Fallbacks...)
	all = append(all, tactical...)

	sort.SliceStable(all, func(i, j int) bool {
		if c := Compare(all[i].Severity, all[j].Severity); c != 0 {
			return c < 0
		}
		return sourceOrder(all[i].Source) < sourceOrder(all[j].Source)
	})

	plan := Plan{All: all}
	for _, r := range all {
		if r.Severity.IsCritical() {
			plan.Critical = true
			break
		}
	}
	n := limit
	if n > len(all) {
		n = len(all)
	}
	plan.Top = all[:n:n]
	return plan
}

func sourceOrder(s Source) int {
	if s == SourceStrategic {
		return 0
	}
	return 1
}
