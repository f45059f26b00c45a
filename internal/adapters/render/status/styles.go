package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	current lipgloss.Style
	account lipgloss.Style
	detail  lipgloss.Style
	state   lipgloss.Style
	warning lipgloss.Style
	empty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		current: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		account: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		state:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		empty:   lipgloss.NewStyle().Faint(true),
	}
}
