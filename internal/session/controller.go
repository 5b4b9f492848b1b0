// Package session owns the chat client's conversation state and the three
// user actions on it: sending a turn, saving the transcript and resetting.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-relay/internal/chatclient"
	"chat-relay/internal/profile"
	"chat-relay/internal/transcript"
)

const (
	// PlaceholderText is shown while a reply is pending.
	PlaceholderText = "…"
	// FailureReply replaces the placeholder when a turn fails.
	FailureReply = "Bir hata oluştu. Lütfen tekrar deneyin."
	// IdentityAlert is shown when an action needs the user's name.
	IdentityAlert = "Lütfen önce isim ve soyisim girin."
	// SaveFailedNotice is shown when saving fails.
	SaveFailedNotice = "Kaydetme sırasında hata oldu."
	// ResetPrompt asks for confirmation before a reset.
	ResetPrompt = "Yeni bir oturum başlatılsın mı? (Eski mesajlar silinir)"
)

var (
	ErrIdentityMissing = errors.New("first and last name are required")
	ErrEmptyText       = errors.New("message text is empty")
	ErrSaveFailed      = errors.New("saving the transcript failed")
)

// Relay is the subset of the relay API the controller needs.
type Relay interface {
	Chat(ctx context.Context, req chatclient.ChatRequest) (chatclient.ChatResponse, error)
	Save(ctx context.Context, t transcript.Transcript) (chatclient.SaveResponse, error)
}

// Environment describes the client for transcript metadata.
type Environment struct {
	UserAgent string
	PageURL   string
}

type Options struct {
	Relay    Relay
	Profiles profile.Repository
	Persona  string
	Env      Environment
	Now      func() time.Time
	NewID    func() string
}

type Controller struct {
	relay    Relay
	profiles profile.Repository
	persona  string
	env      Environment
	now      func() time.Time
	newID    func() string
	state    *State

	profileMu sync.Mutex
}

// NewController restores the persisted profile, allocating and persisting
// a session id on first use.
func NewController(opts Options) (*Controller, error) {
	if opts.Relay == nil {
		return nil, errors.New("relay client is required")
	}
	c := &Controller{
		relay:    opts.Relay,
		profiles: opts.Profiles,
		persona:  opts.Persona,
		env:      opts.Env,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if c.profiles == nil {
		c.profiles = &profile.Memory{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}

	p, err := c.profiles.Load()
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p.SessionID == "" {
		p.SessionID = c.newID()
		if err := c.profiles.Save(p); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
	}
	c.state = NewState(p.SessionID, c.now(), Identity{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
	})
	return c, nil
}

func (c *Controller) SessionID() string    { return c.state.SessionID() }
func (c *Controller) StartedAt() time.Time { return c.state.StartedAt() }
func (c *Controller) Identity() Identity   { return c.state.Identity() }

// Messages returns the full message sequence in append order, placeholders
// included, for rendering.
func (c *Controller) Messages() []Message { return c.state.Messages() }

func (c *Controller) SetFirstName(v string) error {
	c.state.SetFirstName(strings.TrimSpace(v))
	return c.persistProfile()
}

func (c *Controller) SetLastName(v string) error {
	c.state.SetLastName(strings.TrimSpace(v))
	return c.persistProfile()
}

func (c *Controller) persistProfile() error {
	c.profileMu.Lock()
	defer c.profileMu.Unlock()
	id := c.state.Identity()
	return c.profiles.Save(profile.Profile{
		SessionID: c.state.SessionID(),
		FirstName: id.FirstName,
		LastName:  id.LastName,
	})
}

// Turn is one pending send. Finish must be called exactly once; further
// calls are no-ops.
type Turn struct {
	c         *Controller
	sessionID string
	tag       string
	req       chatclient.ChatRequest
	once      sync.Once
	result    Message
}

// BeginTurn validates the input, appends the user message and a typing
// placeholder, and captures the request for the relay.
func (c *Controller) BeginTurn(text string) (*Turn, error) {
	id := c.state.Identity()
	if !id.Complete() {
		return nil, ErrIdentityMissing
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	sessionID := c.state.SessionID()
	c.state.Append(Message{Role: RoleUser, Text: text, TS: c.now()})

	req := chatclient.ChatRequest{
		SessionID:    sessionID,
		User:         transcript.User{FirstName: id.FirstName, LastName: id.LastName},
		SystemPrompt: c.persona,
		Messages:     toWire(c.state.History()),
	}

	tag := c.newID()
	c.state.Append(Message{Role: RoleAssistant, Text: PlaceholderText, TS: c.now(), Tmp: tag})

	return &Turn{c: c, sessionID: sessionID, tag: tag, req: req}, nil
}

// Request is the payload sent to the relay for this turn.
func (t *Turn) Request() chatclient.ChatRequest { return t.req }

// Run performs the single relay round trip. It does not touch the state.
func (t *Turn) Run(ctx context.Context) (string, error) {
	resp, err := t.c.relay.Chat(ctx, t.req)
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// Finish removes the placeholder and appends the reply, or FailureReply when
// err is non-nil. If the session was reset meanwhile the reply is dropped.
func (t *Turn) Finish(reply string, err error) Message {
	t.once.Do(func() {
		t.c.state.RemovePlaceholder(t.tag)
		msg := Message{Role: RoleAssistant, Text: reply, TS: t.c.now()}
		if err != nil {
			log.Printf("❌ chat turn failed: %v", err)
			msg.Text = FailureReply
		}
		if !t.c.state.AppendIfSession(t.sessionID, msg) {
			log.Printf("⚠️ dropping reply for superseded session %s", t.sessionID)
		}
		t.result = msg
	})
	return t.result
}

// SendTurn runs a whole turn synchronously. Validation failures are
// returned as errors; relay failures are not, they become FailureReply.
func (c *Controller) SendTurn(ctx context.Context, text string) (Message, error) {
	turn, err := c.BeginTurn(text)
	if err != nil {
		return Message{}, err
	}
	reply, err := turn.Run(ctx)
	return turn.Finish(reply, err), nil
}

type SaveResult struct {
	FileID   string
	FileName string
}

// Transcript packages the current session for saving.
func (c *Controller) Transcript() transcript.Transcript {
	id := c.state.Identity()
	return transcript.Transcript{
		SessionID: c.state.SessionID(),
		StartedAt: transcript.Format(c.state.StartedAt()),
		SavedAt:   transcript.Format(c.now()),
		User:      transcript.User{FirstName: id.FirstName, LastName: id.LastName},
		Messages:  toWire(c.state.History()),
		UserAgent: c.env.UserAgent,
		PageURL:   c.env.PageURL,
	}
}

// SaveTranscript uploads a snapshot of the session. There is no local
// fallback when the relay fails.
func (c *Controller) SaveTranscript(ctx context.Context) (SaveResult, error) {
	if !c.state.Identity().Complete() {
		return SaveResult{}, ErrIdentityMissing
	}
	resp, err := c.relay.Save(ctx, c.Transcript())
	if err != nil {
		log.Printf("❌ save failed: %v", err)
		return SaveResult{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return SaveResult{FileID: resp.FileID, FileName: resp.FileName}, nil
}

// ResetSession discards every message and starts a new session when confirm
// approves. Unsaved messages are lost.
func (c *Controller) ResetSession(confirm func() bool) bool {
	if confirm == nil || !confirm() {
		return false
	}
	c.state.Reset(c.newID(), c.now())
	if err := c.persistProfile(); err != nil {
		log.Printf("⚠️ failed to persist new session id: %v", err)
	}
	return true
}

func toWire(msgs []Message) []transcript.Message {
	out := make([]transcript.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, transcript.Message{Role: m.Role, Text: m.Text, TS: transcript.Format(m.TS)})
	}
	return out
}
