// Package report renders pipeline results as terminal text, workbooks and
// plain tables for spreadsheet export.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/pipeline"
)

// Table names, also used as workbook sheet and spreadsheet tab names.
const (
	TableSummary         = "Summary"
	TableGaps            = "KPI Gaps"
	TableTactical        = "Tactical"
	TableRecommendations = "Recommendations"
)

// Table is a named grid of cells. Cells are strings, ints, floats or bools.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Tables flattens a result into the four report tables. Tables without data
// still carry their header.
func Tables(res *pipeline.Result) []Table {
	return []Table{
		summaryTable(res),
		gapsTable(res),
		tacticalTable(res),
		recommendationsTable(res),
	}
}

func summaryTable(res *pipeline.Result) Table {
	t := Table{Name: TableSummary, Header: []string{"Field", "Value"}}
	add := func(field string, value any) {
		t.Rows = append(t.Rows, []any{field, value})
	}

	add("Run ID", res.ID)
	add("Generated", res.GeneratedAt.Format(time.RFC3339))
	add("Segment", res.Segment.String())
	add("Source", string(res.Source))
	add("Outcome", string(res.Outcome))
	if res.Message != "" {
		add("Message", res.Message)
	}
	if a := res.Analysis; a != nil {
		add("Grade", string(a.Grade))
		add("Performance Score", a.Score)
		add("Underperforming KPIs", len(a.Underperforming))
		add("Critical KPIs", a.Counts.Critical)
		add("Warning KPIs", a.Counts.Warning)
		add("Good KPIs", a.Counts.Good)
	}
	if s := res.Summary; s != nil {
		add("Transactions", s.Transactions)
		add("Unique Customers", s.UniqueCustomers)
		add("Unique Items", s.UniqueItems)
		add("Date Range", fmt.Sprintf("%s to %s", s.Start.Format("2006-01-02"), s.End.Format("2006-01-02")))
		add("Total Revenue", round2(s.RevenueTotal))
	}
	add("Recommendations", len(res.Plan.All))
	add("Critical", res.Plan.Critical)
	add("Confidence", res.Confidence.Score)
	for _, w := range res.Warnings {
		add("Warning", w)
	}
	return t
}

func gapsTable(res *pipeline.Result) Table {
	t := Table{
		Name:   TableGaps,
		Header: []string{"KPI", "Actual", "Benchmark", "Gap %", "Status", "Confidence", "Source"},
	}
	if res.Analysis == nil {
		return t
	}
	for _, g := range res.Analysis.Ranked {
		confidence, source := string(model.ConfidenceHigh), "Uploaded data"
		if p, ok := res.Provenance[g.KPI]; ok {
			confidence, source = string(p.Confidence), p.Source
		}
		t.Rows = append(t.Rows, []any{
			g.DisplayName,
			round2(g.Actual),
			round2(g.Benchmark),
			round1(g.GapPct),
			string(benchmark.Status(g.GapPct)),
			confidence,
			source,
		})
	}
	return t
}

func tacticalTable(res *pipeline.Result) Table {
	t := Table{
		Name:   TableTactical,
		Header: []string{"Category", "Issue", "Level", "Subject", "Actual", "Benchmark", "Critical"},
	}
	if res.Performance == nil {
		return t
	}
	for _, is := range res.Performance.Issues {
		t.Rows = append(t.Rows, []any{
			is.Category,
			is.IssueType,
			is.Level.Label(),
			is.Subject,
			round2(is.Actual),
			round2(is.Benchmark),
			is.IsCritical || is.Level == model.LevelCritical,
		})
	}
	return t
}

func recommendationsTable(res *pipeline.Result) Table {
	t := Table{
		Name:   TableRecommendations,
		Header: []string{"Rank", "Source", "Business Problem", "Severity", "Deal Types", "Rationale", "Insight", "Generic"},
	}
	for i, r := range res.Plan.All {
		t.Rows = append(t.Rows, []any{
			i + 1,
			string(r.Source),
			r.BusinessProblem,
			r.Severity.String(),
			strings.Join(r.DealTypes, "; "),
			r.Rationale,
			r.Insight,
			r.Generic,
		})
	}
	return t
}

// Cell renders a table cell as text.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(x)
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
