package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/recommend"
	"github.com/Veraticus/flavyr/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Filter limits which recommendations are listed.
type Filter int

// Source filters, cycled in order.
const (
	FilterAll Filter = iota
	FilterStrategic
	FilterTactical
)

func (f Filter) String() string {
	switch f {
	case FilterStrategic:
		return "strategic"
	case FilterTactical:
		return "tactical"
	default:
		return "all"
	}
}

func (f Filter) match(r recommend.Recommendation) bool {
	switch f {
	case FilterStrategic:
		return r.Source == recommend.SourceStrategic
	case FilterTactical:
		return r.Source == recommend.SourceTactical
	default:
		return true
	}
}

// reserved rows around the table: header, filter line, help and borders.
const chromeHeight = 8

// Model is the recommendation browser.
type Model struct {
	theme      themes.Theme
	result     *pipeline.Result
	visible    []recommend.Recommendation
	help       help.Model
	table      table.Model
	keymap     KeyMap
	filter     Filter
	width      int
	height     int
	showDetail bool
	showHelp   bool
	quitting   bool
}

func newModel(res *pipeline.Result, cfg Config) Model {
	t := table.New(
		table.WithColumns(columns(cfg.Width)),
		table.WithFocused(true),
		table.WithHeight(max(cfg.Height-chromeHeight, 3)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(cfg.Theme.Border).
		BorderBottom(true).
		Bold(false)
	s.Selected = cfg.Theme.Selected
	t.SetStyles(s)

	m := Model{
		theme:    cfg.Theme,
		result:   res,
		help:     help.New(),
		table:    t,
		keymap:   DefaultKeyMap(),
		width:    cfg.Width,
		height:   cfg.Height,
		showHelp: cfg.ShowHelp,
	}
	m.refresh()
	return m
}

func columns(width int) []table.Column {
	cols := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Source", Width: 12},
		{Title: "Business Problem", Width: 30},
		{Title: "Severity", Width: 14},
		{Title: "Deals", Width: 30},
	}
	used := 0
	for _, c := range cols[:len(cols)-1] {
		used += c.Width + 2
	}
	if rest := width - used - 2; rest > cols[len(cols)-1].Width {
		cols[len(cols)-1].Width = rest
	}
	return cols
}

// refresh rebuilds the table rows for the current filter.
func (m *Model) refresh() {
	m.visible = nil
	if m.result != nil {
		for _, r := range m.result.Plan.All {
			if m.filter.match(r) {
				m.visible = append(m.visible, r)
			}
		}
	}

	rows := make([]table.Row, len(m.visible))
	for i, r := range m.visible {
		rows[i] = table.Row{
			fmt.Sprintf("%d", i+1),
			themes.GetSourceIcon(string(r.Source)) + " " + string(r.Source),
			r.BusinessProblem,
			r.Severity.String(),
			strings.Join(r.DealTypes, ", "),
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Selected returns the highlighted recommendation.
func (m Model) Selected() (recommend.Recommendation, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return recommend.Recommendation{}, false
	}
	return m.visible[i], true
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := max(m.table.Height()-1, 1)

	switch {
	case key.Matches(msg, m.keymap.ForceQuit), key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keymap.ToggleDetail):
		m.showDetail = !m.showDetail
	case key.Matches(msg, m.keymap.ToggleFilter):
		m.filter = (m.filter + 1) % 3
		m.refresh()
	case key.Matches(msg, m.keymap.Up):
		m.table.MoveUp(1)
	case key.Matches(msg, m.keymap.Down):
		m.table.MoveDown(1)
	case key.Matches(msg, m.keymap.PageUp):
		m.table.MoveUp(page)
	case key.Matches(msg, m.keymap.PageDown):
		m.table.MoveDown(page)
	case key.Matches(msg, m.keymap.Home):
		m.table.GotoTop()
	case key.Matches(msg, m.keymap.End):
		m.table.GotoBottom()
	}
	return m, nil
}
