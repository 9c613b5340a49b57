// Package themes holds the color schemes of the terminal UI.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Normal      lipgloss.Style
	Bold        lipgloss.Style
	UserLabel   lipgloss.Style
	ModelLabel  lipgloss.Style
	UserText    lipgloss.Style
	ModelText   lipgloss.Style
	StatusError lipgloss.Style
	Spinner     lipgloss.Style
	Help        lipgloss.Style
	BorderedBox lipgloss.Style
	Primary     lipgloss.Color
	Secondary   lipgloss.Color
	Muted       lipgloss.Color
	Border      lipgloss.Color
	Foreground  lipgloss.Color
	Error       lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	Primary:    lipgloss.Color("#10b981"),
	Secondary:  lipgloss.Color("#60a5fa"),
	Muted:      lipgloss.Color("#94a3b8"),
	Border:     lipgloss.Color("#404040"),
	Foreground: lipgloss.Color("#fafafa"),
	Error:      lipgloss.Color("#ef4444"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#10b981")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#94a3b8")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Bold: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	UserLabel: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#60a5fa")),
	ModelLabel: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#10b981")),
	UserText: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#e5e5e5")),
	ModelText: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")),
	Spinner: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10b981")),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")),
	BorderedBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(0, 1),
}

// Plain has no colors, for terminals without color support and tests.
var Plain = Theme{
	Title:       lipgloss.NewStyle().Bold(true),
	Subtitle:    lipgloss.NewStyle(),
	Normal:      lipgloss.NewStyle(),
	Bold:        lipgloss.NewStyle().Bold(true),
	UserLabel:   lipgloss.NewStyle().Bold(true),
	ModelLabel:  lipgloss.NewStyle().Bold(true),
	UserText:    lipgloss.NewStyle(),
	ModelText:   lipgloss.NewStyle(),
	StatusError: lipgloss.NewStyle(),
	Spinner:     lipgloss.NewStyle(),
	Help:        lipgloss.NewStyle(),
	BorderedBox: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
}
