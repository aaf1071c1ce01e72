package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/flavyr/internal/recommend"
	"github.com/charmbracelet/lipgloss"
)

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderHeader()}
	if len(m.visible) == 0 {
		sections = append(sections, m.theme.StatusSuccess.Render(recommend.Summary(nil, 0)))
	} else {
		sections = append(sections, m.table.View())
		if m.showDetail {
			if r, ok := m.Selected(); ok {
				sections = append(sections, m.renderDetail(r))
			}
		}
	}
	if m.showHelp {
		sections = append(sections, m.help.View(m.keymap))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	res := m.result
	title := m.theme.Title.Render("🍽️  Recommended Deals")
	if res == nil {
		return title
	}

	info := fmt.Sprintf("%s · %s data", res.Segment, res.Source)
	if grade := res.Grade(); grade != "" {
		info += " · Grade " + string(grade)
	}
	line := m.theme.Subtitle.Render(info)
	if res.Plan.Critical {
		line += "  " + m.theme.StatusError.Render("🚨 critical issues")
	}
	filter := m.theme.Italic.Render(fmt.Sprintf("showing %s (%d of %d)", m.filter, len(m.visible), len(res.Plan.All)))
	return lipgloss.JoinVertical(lipgloss.Left, title, line, filter)
}

func (m Model) renderDetail(r recommend.Recommendation) string {
	var lines []string
	lines = append(lines, m.theme.Bold.Render(r.BusinessProblem)+"  "+m.severityStyle(r.Severity).Render(r.Severity.String()))
	if r.IssueType != "" {
		lines = append(lines, "Issue: "+r.IssueType)
	}
	if len(r.KPIs) > 0 {
		lines = append(lines, "KPIs: "+strings.Join(r.KPIs, ", "))
	}
	if len(r.DealTypes) > 0 {
		lines = append(lines, "Deals:")
		for _, d := range r.DealTypes {
			lines = append(lines, "  • "+d)
		}
	}
	if r.Insight != "" {
		lines = append(lines, "", m.theme.Normal.Render(r.Insight))
	}
	if r.Rationale != "" {
		lines = append(lines, m.theme.Italic.Render(r.Rationale))
	}
	if r.Generic {
		lines = append(lines, m.theme.StatusPending.Render("generic guidance, no mapped deals for this problem"))
	}

	box := m.theme.RoundedBox
	if m.width > 4 {
		box = box.Width(m.width - 4)
	}
	return box.Render(strings.Join(lines, "\n"))
}

func (m Model) severityStyle(s recommend.Severity) lipgloss.Style {
	if s.IsCritical() {
		return m.theme.StatusError
	}
	if _, ok := s.Level(); ok {
		return m.theme.StatusWarning
	}
	return m.theme.StatusInfo
}
