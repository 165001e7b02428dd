package main

import "github.com/charmbracelet/lipgloss"

var (
	systemLabelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8")) // gray
	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")) // blue
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	toolLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")) // magenta

	toolNameStyle   = lipgloss.NewStyle().Bold(true)
	toolResultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // dim gray
	toolErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red

	turnBlockStyle = lipgloss.NewStyle().PaddingLeft(2)
	headerStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
)

const (
	callArrow   = "→ "
	resultArrow = "← "
)
