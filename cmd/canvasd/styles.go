package main

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	sourceStyle = map[string]lipgloss.Style{
		"manual":    lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		"ai":        lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		"auto":      lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		"hydration": lipgloss.NewStyle().Foreground(lipgloss.Color("135")),
	}

	redoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Faint(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))
)

func source(s string) string {
	if st, ok := sourceStyle[s]; ok {
		return st.Render(s)
	}
	return s
}
