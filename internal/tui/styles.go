package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	UserBubble lipgloss.Style
	BotBubble  lipgloss.Style
	Meta       lipgloss.Style
	Label      lipgloss.Style
	Banner     lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		UserBubble: lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("24")).Padding(0, 1),
		BotBubble:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1),
		Meta:       lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true),
		Label:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		Banner:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		Muted:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Success:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
}
