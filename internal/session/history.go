package session

import (
	"strings"
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation. Tmp is set only on typing
// placeholders and correlates the placeholder with its pending turn.
type Message struct {
	Role string
	Text string
	TS   time.Time
	Tmp  string
}

func (m Message) IsPlaceholder() bool { return m.Tmp != "" }

type Identity struct {
	FirstName string
	LastName  string
}

// Complete reports whether both names are present.
func (i Identity) Complete() bool {
	return strings.TrimSpace(i.FirstName) != "" && strings.TrimSpace(i.LastName) != ""
}

// State is the client's single application state. Messages are only ever
// appended; the one exception is removal of placeholders by tag.
type State struct {
	mu        sync.RWMutex
	sessionID string
	startedAt time.Time
	identity  Identity
	messages  []Message
}

func NewState(sessionID string, startedAt time.Time, identity Identity) *State {
	return &State{sessionID: sessionID, startedAt: startedAt, identity: identity}
}

// Reset starts a new session and drops every message.
func (s *State) Reset(sessionID string, startedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.startedAt = startedAt
	s.messages = nil
}

func (s *State) SetFirstName(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity.FirstName = v
}

func (s *State) SetLastName(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity.LastName = v
}

func (s *State) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// AppendIfSession appends msg only while sessionID is still current.
func (s *State) AppendIfSession(sessionID string, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != sessionID {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

// RemovePlaceholder deletes the placeholder carrying tag and reports how
// many entries were removed.
func (s *State) RemovePlaceholder(tag string) int {
	if tag == "" {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.messages[:0]
	removed := 0
	for _, m := range s.messages {
		if m.Tmp == tag {
			removed++
			continue
		}
		out = append(out, m)
	}
	// clear the tail so dropped entries are not retained
	for i := len(out); i < len(s.messages); i++ {
		s.messages[i] = Message{}
	}
	s.messages = out
	return removed
}

func (s *State) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *State) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

func (s *State) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Messages returns a copy of every message, placeholders included.
func (s *State) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// History returns a copy of the real conversation, without placeholders.
func (s *State) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, 0, len(s.messages))
	for _, m := range s.messages {
		if !m.IsPlaceholder() {
			out = append(out, m)
		}
	}
	return out
}
