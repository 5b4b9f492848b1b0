// Package tui provides the Bubble Tea front-end of the chat client.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"chat-relay/internal/session"
)

// Run starts the program and blocks until it exits. Cancelling ctx quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// ReplyMsg delivers the outcome of a relay round trip for a turn.
type ReplyMsg struct {
	Turn  *session.Turn
	Reply string
	Err   error
}

// SavedMsg delivers the outcome of a save action.
type SavedMsg struct {
	Result session.SaveResult
	Err    error
}

func runTurn(ctx context.Context, turn *session.Turn) tea.Cmd {
	return func() tea.Msg {
		reply, err := turn.Run(ctx)
		return ReplyMsg{Turn: turn, Reply: reply, Err: err}
	}
}

func saveTranscript(ctx context.Context, c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		res, err := c.SaveTranscript(ctx)
		return SavedMsg{Result: res, Err: err}
	}
}
