package tty

import "github.com/charmbracelet/lipgloss"

type styles struct {
	running lipgloss.Style
	paused  lipgloss.Style
	idle    lipgloss.Style
	faulted lipgloss.Style
	title   lipgloss.Style
	detail  lipgloss.Style
	err     lipgloss.Style
	help    lipgloss.Style
}

// see test7800's debugger styles for the ANSI colour numbers
func newStyles() styles {
	return styles{
		running: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(0)).Background(lipgloss.ANSIColor(2)).Padding(0, 1),
		paused:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(0)).Background(lipgloss.ANSIColor(3)).Padding(0, 1),
		idle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(4)).Padding(0, 1),
		faulted: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)).Padding(0, 1),
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		err:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(9)),
		help:    lipgloss.NewStyle().Faint(true),
	}
}
