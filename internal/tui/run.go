package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// RunChat runs the chat screen until the user quits or ctx is canceled.
func RunChat(ctx context.Context, opts ...Option) error {
	m := NewModel(ctx, opts...)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat screen failed: %w", err)
	}
	return nil
}
