package browse

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title  lipgloss.Style
	Dim    lipgloss.Style
	Body   lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
	Prompt lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Dim:    lipgloss.NewStyle().Faint(true),
		Body:   lipgloss.NewStyle().Padding(1, 2),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}
