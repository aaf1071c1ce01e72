package recommend

import (
	"fmt"
	"strings"
)

// Source says which path produced a recommendation.
type Source string

// Recommendation sources.
const (
	SourceStrategic Source = "strategic"
	SourceTactical  Source = "tactical"
)

// Recommendation pairs a business problem with deals from the catalogue.
type Recommendation struct {
	BusinessProblem string   `json:"business_problem"`
	Rationale       string   `json:"rationale"`
	Source          Source   `json:"source"`
	Insight         string   `json:"insight,omitempty"`
	IssueType       string   `json:"issue_type,omitempty"`
	DealTypes       []string `json:"deal_types"`
	KPIs            []string `json:"kpis,omitempty"`
	Severity        Severity `json:"severity"`
	Priority        int      `json:"priority,omitempty"`
	Generic         bool     `json:"generic"`
}

// Summary renders the first n recommendations as a numbered list with up to
// two deal types each.
func Summary(recs []Recommendation, n int) string {
	if len(recs) == 0 {
		return "No specific recommendations at this time. Your performance is strong across all metrics."
	}
	if n > len(recs) || n <= 0 {
		n = len(recs)
	}

	var b strings.Builder
	for i, r := range recs[:n] {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, r.BusinessProblem)
		if len(r.DealTypes) > 0 {
			deals := r.DealTypes
			if len(deals) > 2 {
				deals = deals[:2]
			}
			fmt.Fprintf(&b, "\n   Recommended deals: %s", strings.Join(deals, ", "))
		}
	}
	return b.String()
}
