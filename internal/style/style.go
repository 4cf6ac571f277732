// Package style centralizes lipgloss styles for CLI output.
package style

import "github.com/charmbracelet/lipgloss"

var (
	// Bold marks success and headline output.
	Bold = lipgloss.NewStyle().Bold(true)
	// Dim marks inactive or informational output.
	Dim = lipgloss.NewStyle().Faint(true)
	// Err marks failures.
	Err = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	// Warn marks degraded-but-continuing output.
	Warn = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
