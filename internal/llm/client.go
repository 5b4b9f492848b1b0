package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// NormalizeRole maps a client supplied role onto the two conversational
// roles the providers accept: only a literal "assistant" stays assistant.
func NormalizeRole(role string) string {
	if role == RoleAssistant {
		return RoleAssistant
	}
	return RoleUser
}

// Unavailable stands in for a provider client that could not be built;
// every call reports the construction error.
type Unavailable struct {
	Err error
}

func (u Unavailable) Generate(context.Context, []Message) (Response, error) {
	return Response{}, u.Err
}
