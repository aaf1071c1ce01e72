package report

import (
	"strings"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/cli"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all styling definitions for report formatting.
type Styles struct {
	// Base styles from CLI package
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Info     lipgloss.Style
	Subtle   lipgloss.Style
	Normal   lipgloss.Style

	// Report-specific styles
	Box      lipgloss.Style
	Banner   lipgloss.Style
	Score    lipgloss.Style
	Critical lipgloss.Style
	High     lipgloss.Style
	Medium   lipgloss.Style
	Low      lipgloss.Style
	Header   lipgloss.Style
}

// NewStyles creates a new Styles instance with default styling.
func NewStyles() *Styles {
	s := &Styles{
		Title:    cli.TitleStyle,
		Subtitle: cli.SubtitleStyle,
		Success:  cli.SuccessStyle,
		Warning:  cli.WarningStyle,
		Error:    cli.ErrorStyle,
		Info:     cli.InfoStyle,
		Subtle:   cli.SubtleStyle,
		Normal:   lipgloss.NewStyle(),
	}

	s.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(cli.SubtleColor).
		Padding(0, 1)

	s.Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(cli.ErrorColor).
		Padding(0, 1)

	s.Score = lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PrimaryColor)

	s.Critical = lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.ErrorColor).
		Background(lipgloss.Color("#2D0000"))

	s.High = lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.WarningColor)

	s.Medium = lipgloss.NewStyle().
		Foreground(cli.InfoColor)

	s.Low = lipgloss.NewStyle().
		Foreground(cli.SubtleColor)

	s.Header = cli.SubtleStyle.Bold(true)

	return s
}

// ForLevel returns the style for a tactical severity level.
func (s *Styles) ForLevel(level model.Level) lipgloss.Style {
	switch level {
	case model.LevelCritical:
		return s.Critical
	case model.LevelHigh:
		return s.High
	case model.LevelMedium:
		return s.Medium
	case model.LevelLow:
		return s.Low
	case model.LevelGood:
		return s.Success
	default:
		return s.Normal
	}
}

// ForStatus returns the style for a KPI status label.
func (s *Styles) ForStatus(status benchmark.KPIStatus) lipgloss.Style {
	switch status {
	case benchmark.StatusExcellent, benchmark.StatusGood:
		return s.Success
	case benchmark.StatusNeedsAttention:
		return s.Warning
	default:
		return s.Error
	}
}

// ForGrade returns the style for an overall letter grade.
func (s *Styles) ForGrade(grade benchmark.Grade) lipgloss.Style {
	switch grade {
	case benchmark.GradeA, benchmark.GradeB:
		return s.Success
	case benchmark.GradeC:
		return s.Warning
	case benchmark.GradeNone:
		return s.Subtle
	default:
		return s.Error
	}
}

// pad right-pads text to width, measuring rendered cell width.
func pad(text string, width int) string {
	if n := lipgloss.Width(text); n < width {
		return text + strings.Repeat(" ", width-n)
	}
	return text
}
