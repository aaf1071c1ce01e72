package recommend

import (
	"fmt"
	"math"

	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/performance"
)

type mappedIssue struct {
	problem  string
	issue    performance.Issue
	priority int
}

// Tactical maps each flagged issue to a business problem and produces at
// most one recommendation per problem. The most severe issue for a problem
// wins; ties go to the lower mapping priority.
func Tactical(issues []performance.Issue, mappings []model.DealMapping, catalogue []model.Deal) []Recommendation {
	byKey := make(map[string]model.DealMapping, len(mappings))
	for _, m := range mappings {
		if _, ok := byKey[m.Key]; !ok {
			byKey[m.Key] = m
		}
	}

	var order []string
	winners := make(map[string]mappedIssue)
	for _, is := range issues {
		if is.Level == model.LevelGood {
			continue
		}
		mi := resolve(is, byKey)
		cur, seen := winners[mi.problem]
		if !seen {
			order = append(order, mi.problem)
			winners[mi.problem] = mi
			continue
		}
		if mi.issue.Level.Order() < cur.issue.Level.Order() ||
			(mi.issue.Level.Order() == cur.issue.Level.Order() && mi.priority < cur.priority) {
			winners[mi.problem] = mi
		}
	}

	deals := firstDealPerProblem(catalogue)
	recs := make([]Recommendation, 0, len(order))
	for _, problem := range order {
		mi := winners[problem]
		rec := Recommendation{
			BusinessProblem: problem,
			Source:          SourceTactical,
			IssueType:       mi.issue.IssueType,
			KPIs:            []string{mi.issue.Metric},
			Severity:        CategoricalSeverity(mi.issue.Level),
			Insight:         Insight(mi.issue),
		}
		if mi.priority != math.MaxInt {
			rec.Priority = mi.priority
		}
		if deal, ok := deals[problem]; ok {
			rec.DealTypes = deal.Types()
			rec.Rationale = deal.Rationale
		} else {
			rec.Generic = true
			rec.Rationale = fmt.Sprintf("No catalogue deal covers %q yet. Start from the insight above.", problem)
		}
		recs = append(recs, rec)
	}
	return recs
}

// resolve looks up an explicit mapping by issue type, then by metric key,
// and falls back to the keyword rules.
func resolve(is performance.Issue, byKey map[string]model.DealMapping) mappedIssue {
	if m, ok := byKey[is.IssueType]; ok {
		return mappedIssue{issue: is, problem: m.BusinessProblem, priority: m.Priority}
	}
	if m, ok := byKey[is.Metric]; ok {
		return mappedIssue{issue: is, problem: m.BusinessProblem, priority: m.Priority}
	}
	return mappedIssue{issue: is, problem: MatchRules(DefaultRules, is.IssueType), priority: math.MaxInt}
}
