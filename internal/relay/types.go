package relay

import "encoding/json"

// ChatRequest is the body of POST /api/chat. Messages stays raw so that a
// missing or non-list value can be told apart from an empty list.
type ChatRequest struct {
	SessionID    looseString     `json:"sessionId"`
	User         looseUser       `json:"user"`
	SystemPrompt looseString     `json:"systemPrompt"`
	Messages     json.RawMessage `json:"messages"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
	TS    string `json:"ts"`
}

// saveEnvelope holds the fields of a save payload the relay validates; the
// payload itself is persisted as received.
type saveEnvelope struct {
	SessionID looseString `json:"sessionId"`
	SavedAt   looseString `json:"savedAt"`
	User      looseUser   `json:"user"`
}

// looseString accepts any JSON value; anything but a string decodes as "".
// Wrongly typed fields then fail the same presence checks as missing ones.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		v = ""
	}
	*s = looseString(v)
	return nil
}

// looseUser is transcript.User decoded the lenient way.
type looseUser struct {
	FirstName looseString `json:"firstName"`
	LastName  looseString `json:"lastName"`
}

func (u *looseUser) UnmarshalJSON(data []byte) error {
	type plain looseUser
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		v = plain{}
	}
	*u = looseUser(v)
	return nil
}

type SaveResponse struct {
	OK       bool   `json:"ok"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Error codes returned in ErrorResponse.Error.
const (
	errInvalidBody     = "invalid request body"
	errPayloadTooLarge = "payload too large"
	errPromptMissing   = "systemPrompt missing"
	errMessagesMissing = "messages missing"
	errChatFailed      = "chat_failed"
	errSessionMissing  = "sessionId missing"
	errUserMissing     = "user missing"
	errSaveFailed      = "save_failed"
	errTargetInvalid   = "DRIVE_FOLDER_ID missing_or_invalid"
)
