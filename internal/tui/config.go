package tui

import (
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/Veraticus/rupeeflow/internal/session"
	"github.com/Veraticus/rupeeflow/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme        themes.Theme
	Advisor      service.Advisor
	Transactions []model.Transaction
	Updates      <-chan session.State
	Timeout      time.Duration
	Width        int
	Height       int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:   themes.Default,
		Width:   80,
		Height:  24,
		Timeout: 45 * time.Second,
	}
}

// WithAdvisor sets the advisor that answers questions.
func WithAdvisor(advisor service.Advisor) Option {
	return func(c *Config) {
		c.Advisor = advisor
	}
}

// WithTransactions sets the ledger the advisor reasons about.
func WithTransactions(txns []model.Transaction) Option {
	return func(c *Config) {
		c.Transactions = txns
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithUpdates keeps the ledger current with the states from a session
// manager.
func WithUpdates(updates <-chan session.State) Option {
	return func(c *Config) {
		c.Updates = updates
	}
}
