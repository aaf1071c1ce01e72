package recommend

import (
	"strings"

	"github.com/Veraticus/flavyr/internal/model"
)

// Rule maps an issue type to a business problem when Match succeeds.
type Rule struct {
	Match   func(issueType string) bool
	Problem string
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

// DefaultRules are the keyword fallbacks, evaluated in order.
var DefaultRules = []Rule{
	{Match: containsAny("loyalty"), Problem: model.ProblemCustomerLoyalty},
	{Match: containsAny("aov", "order value"), Problem: model.ProblemBoostAOV},
	{Match: containsAny("slow day"), Problem: model.ProblemSlowDays},
	{Match: containsAny("item", "menu"), Problem: model.ProblemInventoryControl},
}

// FallbackProblem is used when no rule matches.
const FallbackProblem = model.ProblemIncreaseSales

// MatchRules returns the problem of the first rule matching the lowercased
// issue type.
func MatchRules(rules []Rule, issueType string) string {
	lower := strings.ToLower(issueType)
	for _, r := range rules {
		if r.Match(lower) {
			return r.Problem
		}
	}
	return FallbackProblem
}
