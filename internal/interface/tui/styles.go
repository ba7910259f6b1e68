package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor  = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6B6B6B"}
	successColor = lipgloss.AdaptiveColor{Light: "#1E8E3E", Dark: "#5FD068"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#C5221F", Dark: "#FF6B6B"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	stepStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	currentStepStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	hintStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)
