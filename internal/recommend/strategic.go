package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/model"
)

// StrategicResult holds catalogue-backed recommendations and generic
// fallbacks for problems the catalogue does not cover.
type StrategicResult struct {
	Problems        []string         `json:"problems"`
	Recommendations []Recommendation `json:"recommendations"`
	Fallbacks       []Recommendation `json:"fallbacks"`
}

// Strategic maps underperforming KPIs to business problems and looks up a
// deal for each. Severity is the worst gap among all KPIs tagged with the
// problem.
func Strategic(gaps map[string]benchmark.Gap, reg *model.Registry, catalogue []model.Deal, threshold float64) StrategicResult {
	deals := firstDealPerProblem(catalogue)

	var res StrategicResult
	kpis := make(map[string][]string)
	for _, g := range benchmark.Underperforming(gaps, reg, threshold) {
		problem, ok := reg.Problem(g.KPI)
		if !ok {
			continue
		}
		if _, seen := kpis[problem]; !seen {
			res.Problems = append(res.Problems, problem)
		}
		kpis[problem] = append(kpis[problem], g.KPI)
	}

	worst := worstGapPerProblem(gaps, reg)
	for _, problem := range res.Problems {
		rec := Recommendation{
			BusinessProblem: problem,
			Source:          SourceStrategic,
			KPIs:            kpis[problem],
			Severity:        NumericSeverity(worst[problem]),
		}
		deal, ok := deals[problem]
		if !ok {
			rec.Generic = true
			rec.Rationale = genericRationale(problem, kpis[problem])
			res.Fallbacks = append(res.Fallbacks, rec)
			continue
		}
		rec.DealTypes = deal.Types()
		rec.Rationale = deal.Rationale
		res.Recommendations = append(res.Recommendations, rec)
	}

	bySeverity := func(recs []Recommendation) {
		sort.SliceStable(recs, func(i, j int) bool {
			return Compare(recs[i].Severity, recs[j].Severity) < 0
		})
	}
	bySeverity(res.Recommendations)
	bySeverity(res.Fallbacks)
	return res
}

func firstDealPerProblem(catalogue []model.Deal) map[string]model.Deal {
	deals := make(map[string]model.Deal, len(catalogue))
	for _, d := range catalogue {
		if _, ok := deals[d.BusinessProblem]; !ok {
			deals[d.BusinessProblem] = d
		}
	}
	return deals
}

func worstGapPerProblem(gaps map[string]benchmark.Gap, reg *model.Registry) map[string]float64 {
	worst := make(map[string]float64)
	for _, g := range gaps {
		problem, ok := reg.Problem(g.KPI)
		if !ok {
			continue
		}
		if cur, seen := worst[problem]; !seen || g.GapPct < cur {
			worst[problem] = g.GapPct
		}
	}
	return worst
}

func genericRationale(problem string, kpis []string) string {
	return fmt.Sprintf("No catalogue deal covers %q yet. Review %s and consider a targeted promotion.",
		problem, strings.Join(kpis, ", "))
}
