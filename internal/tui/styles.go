package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive colors keep text readable on light terminals.
var (
	accentColor    = lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#F97316"} // orange
	secondaryColor = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"} // green
	warningColor   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	errorColor     = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	mutedColor     = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	textColor      = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
)

var (
	bold  = lipgloss.NewStyle().Bold(true)
	muted = lipgloss.NewStyle().Foreground(mutedColor)

	headerStyle = bold.
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accentColor).
			Padding(0, 1).
			MarginBottom(1)

	navStyle         = muted.MarginBottom(1)
	navActiveStyle   = bold.Foreground(accentColor).Underline(true)
	navInactiveStyle = muted

	cardTitleStyle = bold.Foreground(accentColor).MarginBottom(1)
	sectionStyle   = bold.Foreground(secondaryColor)

	metricLabelStyle = muted.Width(16)
	metricValueStyle = bold.Foreground(textColor)

	tableRowStyle      = lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle   = tableRowStyle.Bold(true).Foreground(accentColor).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(mutedColor)
	tableSelectedStyle = tableRowStyle.Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accentColor)

	statusStyle  = muted.MarginTop(1)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	successStyle = lipgloss.NewStyle().Foreground(secondaryColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)

	helpKeyStyle  = bold.Foreground(accentColor).Width(12)
	helpDescStyle = muted
)

// RenderMetric renders a label and its value on one line
func RenderMetric(label, value string) string {
	return metricLabelStyle.Render(label) + metricValueStyle.Render(value)
}

// RenderKeyHelp renders a key binding help item
func RenderKeyHelp(key, desc string) string {
	return helpKeyStyle.Render(key) + helpDescStyle.Render(desc)
}
