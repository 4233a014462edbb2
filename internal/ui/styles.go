package ui

import "github.com/charmbracelet/lipgloss"

var (
	primary   = lipgloss.Color("#00FFFF")
	secondary = lipgloss.Color("#0066FF")
	muted     = lipgloss.Color("#666666")
	danger    = lipgloss.Color("#FF2200")
	success   = lipgloss.Color("#00FF00")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(secondary).
			Padding(0, 1)
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary).MarginTop(1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0FFFF"))
	dimStyle      = lipgloss.NewStyle().Foreground(muted)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(danger)
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(success)
	inputStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondary).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(muted).Width(20)
	frameStyle = lipgloss.NewStyle().Padding(1, 2)
)
