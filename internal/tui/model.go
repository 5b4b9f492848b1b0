package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chat-relay/internal/session"
)

var _ tea.Model = Model{}

type focus int

const (
	focusFirstName focus = iota
	focusLastName
	focusComposer
	focusCount
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusError
	statusSuccess
)

type Options struct {
	Controller  *session.Controller
	Styles      Styles
	Instruction string
	Task        string

	// Context bounds every relay call started by the model.
	Context context.Context
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	// Exported for test access.
	FirstName textinput.Model
	LastName  textinput.Model
	Composer  textinput.Model
	Viewport  viewport.Model

	ctrl        *session.Controller
	ctx         context.Context
	styles      Styles
	instruction string
	task        string

	focus      focus
	sending    bool
	saving     bool
	confirming bool
	status     string
	statusKind statusKind
	width      int
	ready      bool
}

func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	id := opts.Controller.Identity()

	first := textinput.New()
	first.Placeholder = "İsim"
	first.Prompt = "İsim: "
	first.SetValue(id.FirstName)

	last := textinput.New()
	last.Placeholder = "Soyisim"
	last.Prompt = "Soyisim: "
	last.SetValue(id.LastName)

	composer := textinput.New()
	composer.Placeholder = "Mesajınızı yazın..."
	composer.Prompt = "> "
	composer.CharLimit = 0

	m := Model{
		FirstName:   first,
		LastName:    last,
		Composer:    composer,
		ctrl:        opts.Controller,
		ctx:         opts.Context,
		styles:      opts.Styles,
		instruction: opts.Instruction,
		task:        opts.Task,
	}
	if id.Complete() {
		m = m.setFocus(focusComposer)
	} else {
		m = m.setFocus(focusFirstName)
	}
	return m
}

// Sending reports whether a turn is in flight.
func (m Model) Sending() bool { return m.sending }

// Saving reports whether a save is in flight.
func (m Model) Saving() bool { return m.saving }

// Confirming reports whether the reset confirmation is showing.
func (m Model) Confirming() bool { return m.confirming }

// Status returns the current status line text.
func (m Model) Status() string { return m.status }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ReplyMsg:
		msg.Turn.Finish(msg.Reply, msg.Err)
		m.sending = false
		return m.refresh(), nil

	case SavedMsg:
		m.saving = false
		switch {
		case errors.Is(msg.Err, session.ErrIdentityMissing):
			m = m.setStatus(statusError, session.IdentityAlert)
		case msg.Err != nil:
			m = m.setStatus(statusError, session.SaveFailedNotice)
		default:
			m = m.setStatus(statusSuccess, "Kaydedildi ✅ Dosya: "+msg.Result.FileName)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Composer.View())
	return b.String()
}

func (m Model) header() string {
	var parts []string
	if m.instruction != "" || m.task != "" {
		var banner []string
		if m.instruction != "" {
			banner = append(banner, m.styles.Label.Render("Instruction: ")+m.instruction)
		}
		if m.task != "" {
			banner = append(banner, m.task)
		}
		style := m.styles.Banner
		if m.width > 2 {
			style = style.Width(m.width - 2)
		}
		parts = append(parts, style.Render(strings.Join(banner, "\n")))
	}
	parts = append(parts, m.FirstName.View()+"   "+m.LastName.View())
	return strings.Join(parts, "\n")
}

func (m Model) statusLine() string {
	switch {
	case m.confirming:
		return m.styles.Error.Render(session.ResetPrompt + " [y/n]")
	case m.status != "" && m.statusKind == statusError:
		return m.styles.Error.Render(m.status)
	case m.status != "" && m.statusKind == statusSuccess:
		return m.styles.Success.Render(m.status)
	case m.status != "":
		return m.styles.Muted.Render(m.status)
	case m.sending:
		return m.styles.Muted.Render("Yanıt bekleniyor...")
	}
	return m.styles.Muted.Render("Enter gönder · Tab alan değiştir · Ctrl+S kaydet · Ctrl+N yeni oturum · Ctrl+C çık")
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.FirstName.Width = msg.Width/2 - 12
	m.LastName.Width = msg.Width/2 - 12
	m.Composer.Width = msg.Width - 3

	statusHeight := 1
	composerHeight := 1
	separators := 3
	vpHeight := msg.Height - lipgloss.Height(m.header()) - statusHeight - composerHeight - separators
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		m.confirming = false
		if msg.String() == "y" || msg.String() == "Y" {
			m.ctrl.ResetSession(func() bool { return true })
			m = m.setStatus(statusInfo, "Yeni oturum başladı.")
			return m.refresh(), nil
		}
		return m.setStatus(statusInfo, ""), nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyCtrlS:
		if m.saving {
			return m, nil
		}
		if !m.ctrl.Identity().Complete() {
			return m.setStatus(statusError, session.IdentityAlert), nil
		}
		m.saving = true
		m = m.setStatus(statusInfo, "Kaydediliyor...")
		return m, saveTranscript(m.ctx, m.ctrl)

	case tea.KeyCtrlN:
		m.confirming = true
		return m, nil

	case tea.KeyTab:
		return m.setFocus((m.focus + 1) % focusCount), nil

	case tea.KeyShiftTab:
		return m.setFocus((m.focus + focusCount - 1) % focusCount), nil

	case tea.KeyEnter:
		if m.focus != focusComposer {
			return m.setFocus(m.focus + 1), nil
		}
		return m.submit()

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.sending {
		return m, nil
	}
	turn, err := m.ctrl.BeginTurn(m.Composer.Value())
	switch {
	case errors.Is(err, session.ErrIdentityMissing):
		return m.setStatus(statusError, session.IdentityAlert), nil
	case err != nil:
		return m, nil
	}
	m.Composer.SetValue("")
	m.sending = true
	m = m.setStatus(statusInfo, "")
	return m.refresh(), runTurn(m.ctx, turn)
}

func (m Model) updateFocused(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusFirstName:
		m.FirstName, cmd = m.FirstName.Update(msg)
		if err := m.ctrl.SetFirstName(m.FirstName.Value()); err != nil {
			m = m.setStatus(statusError, "Profil kaydedilemedi: "+err.Error())
		}
	case focusLastName:
		m.LastName, cmd = m.LastName.Update(msg)
		if err := m.ctrl.SetLastName(m.LastName.Value()); err != nil {
			m = m.setStatus(statusError, "Profil kaydedilemedi: "+err.Error())
		}
	case focusComposer:
		if m.sending {
			return m, nil
		}
		m.Composer, cmd = m.Composer.Update(msg)
	}
	return m, cmd
}

func (m Model) setFocus(f focus) Model {
	m.focus = f
	m.FirstName.Blur()
	m.LastName.Blur()
	m.Composer.Blur()
	switch f {
	case focusFirstName:
		m.FirstName.Focus()
	case focusLastName:
		m.LastName.Focus()
	case focusComposer:
		m.Composer.Focus()
	}
	return m
}

func (m Model) setStatus(kind statusKind, text string) Model {
	m.statusKind = kind
	m.status = text
	return m
}

// refresh re-projects the message list into the viewport.
func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(Render(m.ctrl.Messages(), m.styles, m.Viewport.Width))
	m.Viewport.GotoBottom()
	return m
}
