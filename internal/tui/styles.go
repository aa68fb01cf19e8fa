package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorMuted   = lipgloss.Color("#626262")
	colorUser    = lipgloss.Color("#2EC4B6")
	colorError   = lipgloss.Color("#E74C3C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(colorPrimary).
			Padding(0, 1)

	threadStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	activeThreadStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary).
				Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary)

	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorUser)
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	helpStyle      = lipgloss.NewStyle().Foreground(colorMuted)
)
