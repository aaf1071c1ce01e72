package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/cli"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/recommend"
	"github.com/Veraticus/flavyr/internal/transparency"
	"github.com/charmbracelet/lipgloss"
)

// CLIFormatter renders results for terminal display.
type CLIFormatter struct {
	styles *Styles
	// Explain adds the step-by-step explanations after the report.
	Explain bool
}

// NewCLIFormatter creates a new CLI formatter with default styles.
func NewCLIFormatter() *CLIFormatter {
	return &CLIFormatter{
		styles: NewStyles(),
	}
}

// Format renders the full report.
func (f *CLIFormatter) Format(res *pipeline.Result) string {
	if res == nil {
		return f.styles.Error.Render("No report available")
	}

	sections := []string{f.formatHeader(res)}

	if res.Outcome == pipeline.OutcomeNoBenchmark {
		sections = append(sections, f.styles.Warning.Render(cli.WarningIcon+" "+res.Message))
		return strings.Join(sections, "\n\n")
	}

	if res.Plan.Critical {
		sections = append(sections, f.styles.Banner.Render(cli.CriticalIcon+" Critical issues need immediate attention"))
	}
	for _, w := range res.Warnings {
		sections = append(sections, cli.FormatWarning(w))
	}
	if res.Analysis != nil {
		sections = append(sections, f.formatGaps(res))
	}
	if res.Performance != nil {
		sections = append(sections, f.formatTactical(res))
	}
	sections = append(sections, f.formatRecommendations(res.Plan))
	sections = append(sections, f.formatConfidence(res.Confidence))

	if f.Explain {
		for _, key := range []string{
			transparency.ExplainScore,
			transparency.ExplainLoyalty,
			transparency.ExplainAOV,
			transparency.ExplainSlowDay,
			transparency.ExplainItems,
		} {
			if e, ok := res.Explanations[key]; ok {
				sections = append(sections, f.formatExplanation(e))
			}
		}
	}

	return strings.Join(sections, "\n\n")
}

func (f *CLIFormatter) formatHeader(res *pipeline.Result) string {
	title := f.styles.Title.Render(cli.ChartIcon + " Restaurant Performance Report")
	segment := f.styles.Subtitle.Render(fmt.Sprintf("Segment: %s (%s data)", res.Segment, res.Source))
	generated := f.styles.Subtle.Render(fmt.Sprintf("Generated: %s  Run: %s",
		res.GeneratedAt.Format(time.RFC3339), res.ID))

	lines := []string{title, segment, generated}
	if a := res.Analysis; a != nil {
		grade := f.styles.ForGrade(a.Grade).Bold(true).Render("Grade " + string(a.Grade))
		score := f.styles.Score.Render(fmt.Sprintf("Score %.1f/100", a.Score))
		lines = append(lines, grade+"  "+score)
	}
	return strings.Join(lines, "\n")
}

func (f *CLIFormatter) formatGaps(res *pipeline.Result) string {
	const (
		nameWidth   = 28
		numberWidth = 12
		gapWidth    = 10
	)
	title := f.styles.Subtitle.Render("KPI Comparison:")
	header := fmt.Sprintf("%-*s %*s %*s %-*s  %s",
		nameWidth, "KPI",
		numberWidth, "Actual",
		numberWidth, "Benchmark",
		gapWidth, "Gap",
		"Status")
	rows := []string{f.styles.Header.Render(header), f.styles.Subtle.Render(strings.Repeat("─", len(header)+6))}

	for _, g := range res.Analysis.Ranked {
		status := benchmark.Status(g.GapPct)
		name := g.DisplayName
		if p, ok := res.Provenance[g.KPI]; ok && p.Confidence == model.ConfidenceLow {
			name += " *"
		}
		rows = append(rows, fmt.Sprintf("%-*s %*s %*s %s  %s",
			nameWidth, name,
			numberWidth, formatNumber(g.Actual),
			numberWidth, formatNumber(g.Benchmark),
			pad(f.styles.ForStatus(status).Render(fmt.Sprintf("%+.1f%%", g.GapPct)), gapWidth),
			f.styles.ForStatus(status).Render(string(status))))
	}

	out := title + "\n" + strings.Join(rows, "\n")
	if len(res.LowConfidence) > 0 {
		out += "\n" + f.styles.Subtle.Render("* default value, update with actual data for accurate analysis")
	}
	return out + "\n\n" + f.styles.Normal.Render(res.Analysis.Summary)
}

func (f *CLIFormatter) formatTactical(res *pipeline.Result) string {
	title := f.styles.Subtitle.Render("Transaction Findings:")
	issues := res.Performance.Issues
	if len(issues) == 0 {
		return title + "\n" + f.styles.Success.Render(cli.CheckIcon+" No transaction issues found!")
	}

	lines := make([]string, 0, len(issues))
	for _, is := range issues {
		label := f.styles.ForLevel(is.Level).Render(fmt.Sprintf("[%s]", is.Level.Label()))
		line := fmt.Sprintf("%s %s: %s vs %s", label, is.IssueType,
			formatNumber(is.Actual), formatNumber(is.Benchmark))
		if is.Subject != "" {
			line += f.styles.Subtle.Render(" (" + is.Subject + ")")
		}
		lines = append(lines, line)
	}
	return title + "\n" + strings.Join(lines, "\n")
}

func (f *CLIFormatter) formatRecommendations(plan recommend.Plan) string {
	title := f.styles.Subtitle.Render(cli.IdeaIcon + " Recommended Deals:")
	if len(plan.Top) == 0 {
		return title + "\n" + f.styles.Success.Render(recommend.Summary(nil, 0))
	}

	var lines []string
	for i, r := range plan.Top {
		severity := f.severityStyle(r.Severity).Render(r.Severity.String())
		lines = append(lines, fmt.Sprintf("%d. %s %s %s", i+1,
			f.styles.Info.Bold(true).Render(r.BusinessProblem),
			severity,
			f.styles.Subtle.Render("("+string(r.Source)+")")))
		if len(r.DealTypes) > 0 {
			lines = append(lines, "   Deals: "+strings.Join(r.DealTypes, ", "))
		}
		if r.Insight != "" {
			lines = append(lines, "   "+f.styles.Normal.Render(r.Insight))
		}
		if r.Rationale != "" {
			lines = append(lines, "   "+f.styles.Subtle.Render(r.Rationale))
		}
	}
	if more := len(plan.All) - len(plan.Top); more > 0 {
		lines = append(lines, f.styles.Subtle.Render(fmt.Sprintf("... and %d more", more)))
	}
	return title + "\n" + strings.Join(lines, "\n")
}

func (f *CLIFormatter) severityStyle(s recommend.Severity) lipgloss.Style {
	if level, ok := s.Level(); ok {
		return f.styles.ForLevel(level)
	}
	gap, _ := s.Gap()
	switch {
	case gap < recommend.CriticalGap:
		return f.styles.Critical
	case gap < benchmark.DefaultThreshold:
		return f.styles.High
	default:
		return f.styles.Medium
	}
}

func (f *CLIFormatter) formatConfidence(c transparency.Confidence) string {
	title := f.styles.Subtitle.Render("Confidence:")
	lines := []string{f.styles.Score.Render(transparency.Bar(c.Score))}
	for _, r := range c.Reasons {
		lines = append(lines, f.styles.Subtle.Render("• "+r))
	}
	return title + "\n" + strings.Join(lines, "\n")
}

func (f *CLIFormatter) formatExplanation(e transparency.Explanation) string {
	var b strings.Builder
	for i, step := range e.Steps {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.styles.Info.Render(fmt.Sprintf("Step %d: %s", i+1, step.Title)))
		for _, line := range step.Lines {
			b.WriteString("\n  " + line)
		}
	}
	return cli.RenderBox(e.Title, b.String())
}

// FormatRuns renders stored run summaries, most recent first.
func (f *CLIFormatter) FormatRuns(runs []model.RunRecord) string {
	if len(runs) == 0 {
		return f.styles.Subtle.Render("No analysis runs recorded yet.")
	}
	header := fmt.Sprintf("%-36s  %-20s  %-32s  %-12s  %-5s  %s",
		"ID", "Created", "Segment", "Source", "Grade", "Critical")
	lines := []string{f.styles.Header.Render(header)}
	for _, r := range runs {
		critical := ""
		if r.Critical {
			critical = f.styles.Error.Render(cli.CriticalIcon)
		}
		lines = append(lines, fmt.Sprintf("%-36s  %-20s  %-32s  %-12s  %s  %s",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			truncate(r.Segment.String(), 32),
			r.Source,
			pad(f.styles.ForGrade(benchmark.Grade(r.Grade)).Render(r.Grade), 5),
			critical))
	}
	return strings.Join(lines, "\n")
}

// FormatSegments lists the segments with stored benchmarks.
func (f *CLIFormatter) FormatSegments(segments []model.Segment) string {
	if len(segments) == 0 {
		return f.styles.Warning.Render("No benchmark segments loaded. Run 'flavyr seed' first.")
	}
	lines := []string{f.styles.Title.Render(cli.FolderIcon + " Benchmark segments")}
	for _, s := range segments {
		lines = append(lines, "  • "+s.String())
	}
	return strings.Join(lines, "\n")
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e9 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
