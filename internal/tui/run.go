package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/flavyr/internal/pipeline"
	tea "github.com/charmbracelet/bubbletea"
)

// Browse opens an interactive view of a result's recommendations and blocks
// until the user quits or ctx is cancelled.
func Browse(ctx context.Context, res *pipeline.Result, opts ...Option) error {
	if res == nil {
		return fmt.Errorf("no result to browse")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := tea.NewProgram(newModel(res, cfg), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
