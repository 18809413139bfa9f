package report

import (
	"aodash/chatfmt"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	section  lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	meta     lipgloss.Style
	empty    lipgloss.Style
	barFill  lipgloss.Style
	barEmpty lipgloss.Style
	bracket  lipgloss.Style
	combat   lipgloss.Style
	economy  lipgloss.Style
	self     lipgloss.Style
	other    lipgloss.Style
	repeat   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff69b4")),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		section:  lipgloss.NewStyle().MarginTop(1),
		label:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(14),
		value:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		meta:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		empty:    lipgloss.NewStyle().Faint(true),
		barFill:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		barEmpty: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		bracket:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		combat:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		economy:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		self:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(chatfmt.ColorSelf)),
		other:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(chatfmt.ColorOther)),
		repeat:   lipgloss.NewStyle().Faint(true),
	}
}
