package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains the pre-configured lipgloss styles for the chat view.
type Styles struct {
	Title     lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	Message   lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	InputBar  lipgloss.Style
}

// DefaultStyles returns the default chat styling.
func DefaultStyles() *Styles {
	var (
		primary = lipgloss.Color("#7C3AED")
		cyan    = lipgloss.Color("#06B6D4")
		muted   = lipgloss.Color("#6C7086")
		errCol  = lipgloss.Color("#F38BA8")
		border  = lipgloss.Color("#45475A")
	)

	return &Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(primary),
		UserLabel: lipgloss.NewStyle().Bold(true).Foreground(cyan),
		BotLabel:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		Message:   lipgloss.NewStyle().PaddingLeft(2),
		Muted:     lipgloss.NewStyle().Foreground(muted),
		Error:     lipgloss.NewStyle().Foreground(errCol),
		InputBar: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}
