package ui

import "github.com/charmbracelet/lipgloss"

// theme is what every view renders with. Colors adapt to light and dark terminals.
type theme struct {
	heading lipgloss.Style
	saved   lipgloss.Style
	failure lipgloss.Style
	partial lipgloss.Style
	hint    lipgloss.Style
}

var styles = newTheme()

func newTheme() theme {
	tint := func(light, dark string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: light, Dark: dark})
	}
	return theme{
		heading: tint("#5A3FD1", "#7D56F4").Bold(true).MarginBottom(1),
		saved:   tint("#1B873F", "#1DB954").Bold(true), // Spotify green on dark
		failure: tint("#C62828", "#FF5F5F").Bold(true),
		partial: tint("#B26A00", "#FFAF00"),
		hint:    tint("#6E6E6E", "#8A8A8A").Italic(true),
	}
}
