package cmd

import "github.com/charmbracelet/lipgloss"

var (
	colorSubtle = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}
	colorActive = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#C08000", Dark: "#F5C542"}
	colorAlert  = lipgloss.AdaptiveColor{Light: "#FF0000", Dark: "#FF4040"}

	labelStyle  = lipgloss.NewStyle().Bold(true).Width(16)
	subtleStyle = lipgloss.NewStyle().Foreground(colorSubtle)
	activeStyle = lipgloss.NewStyle().Foreground(colorActive)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarn)
	alertStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAlert)
)
