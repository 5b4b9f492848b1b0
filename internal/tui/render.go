package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chat-relay/internal/session"
)

// MetaTimeFormat renders message timestamps in the local zone.
const MetaTimeFormat = "02.01.2006 15:04:05"

// Render projects the whole message list into a string. It keeps no state
// between calls; the caller re-renders after every change.
func Render(msgs []session.Message, styles Styles, width int) string {
	if len(msgs) == 0 {
		return ""
	}
	if width < 10 {
		width = 10
	}
	bubbleWidth := width * 3 / 4

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		style, align := styles.BotBubble, lipgloss.Left
		if m.Role == session.RoleUser {
			style, align = styles.UserBubble, lipgloss.Right
		}
		bubble := style.MaxWidth(bubbleWidth).Render(wrap(m.Text, bubbleWidth-2))
		meta := styles.Meta.Render(m.TS.Local().Format(MetaTimeFormat))
		block := lipgloss.JoinVertical(align, bubble, meta)
		b.WriteString(lipgloss.PlaceHorizontal(width, align, block))
	}
	return b.String()
}

func wrap(text string, width int) string {
	if width < 1 || lipgloss.Width(text) <= width {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
