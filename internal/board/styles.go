package board

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5A56E0"))

	draggedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F25D94")).
			Italic(true)

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A49FA5"))

	childStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A49FA5")).
			PaddingLeft(6)

	dropLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F25D94"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F25D94")).
			Padding(0, 1).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			MarginTop(1)
)
