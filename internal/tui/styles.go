package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent      = lipgloss.Color("#1c64f2")
	muted       = lipgloss.Color("#6b7280")
	destructive = lipgloss.Color("#e53935")
	success     = lipgloss.Color("#057a55")
)

// Styles holds the lipgloss styles used by the explorer view.
type Styles struct {
	Title    lipgloss.Style
	Filter   lipgloss.Style
	Banner   lipgloss.Style
	Muted    lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Positive lipgloss.Style
	Negative lipgloss.Style
	Panel    lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Filter:   lipgloss.NewStyle().Foreground(muted),
		Banner:   lipgloss.NewStyle().Foreground(destructive).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Cursor:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		Selected: lipgloss.NewStyle().Bold(true),
		Positive: lipgloss.NewStyle().Foreground(success),
		Negative: lipgloss.NewStyle().Foreground(destructive),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Help: lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}
