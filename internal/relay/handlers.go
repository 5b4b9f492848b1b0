package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"chat-relay/internal/llm"
	"chat-relay/internal/storage"
	"chat-relay/internal/transcript"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleChat forwards the persona instruction and the conversation to the
// model provider and returns the top completion.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if status, code, ok := decodeBody(r, &req); !ok {
		respondError(w, status, code, "")
		return
	}

	if strings.TrimSpace(string(req.SystemPrompt)) == "" {
		respondError(w, http.StatusBadRequest, errPromptMissing, "")
		return
	}
	messages, ok := parseMessages(req.Messages)
	if !ok {
		respondError(w, http.StatusBadRequest, errMessagesMissing, "")
		return
	}
	if s.llm == nil {
		respondError(w, http.StatusInternalServerError, s.credName+" missing", "")
		return
	}

	resp, err := s.llm.Generate(r.Context(), BuildPrompt(string(req.SystemPrompt), messages))
	if err != nil {
		log.Printf("❌ chat failed for session %s: %v", req.SessionID, err)
		respondError(w, http.StatusInternalServerError, errChatFailed, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ChatResponse{
		Reply: resp.Content,
		TS:    s.now().UTC().Format(time.RFC3339),
	})
}

// BuildPrompt prepends the persona instruction as the leading system turn
// and maps every message onto a user or assistant turn.
func BuildPrompt(systemPrompt string, messages []transcript.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, m := range messages {
		out = append(out, llm.Message{Role: llm.NormalizeRole(m.Role), Content: m.Text})
	}
	return out
}

func parseMessages(raw json.RawMessage) ([]transcript.Message, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var messages []transcript.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// handleSave uploads the received transcript payload as a new object.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, bodyErrorStatus(err), bodyErrorCode(err), "")
		return
	}
	var env saveEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody, "")
		return
	}

	if s.store == nil || s.store.Target() == "" {
		respondError(w, http.StatusInternalServerError, errTargetInvalid, "")
		return
	}
	sessionID := strings.TrimSpace(string(env.SessionID))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, errSessionMissing, "")
		return
	}
	first := strings.TrimSpace(string(env.User.FirstName))
	last := strings.TrimSpace(string(env.User.LastName))
	if first == "" || last == "" {
		respondError(w, http.StatusBadRequest, errUserMissing, "")
		return
	}

	savedAt := strings.TrimSpace(string(env.SavedAt))
	if savedAt == "" {
		savedAt = transcript.Format(s.now())
	}
	fileName := transcript.FileName(first, last, savedAt, sessionID)

	ctx := r.Context()
	if s.verifyTarget {
		if err := s.store.Verify(ctx); err != nil {
			log.Printf("❌ storage target %s not usable: %v", s.store.Target(), err)
			respondError(w, http.StatusInternalServerError, storeErrorCode(err), err.Error())
			return
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody, "")
		return
	}

	obj, err := s.store.Create(ctx, fileName, pretty.Bytes())
	if err != nil {
		log.Printf("❌ save failed for session %s: %v", sessionID, err)
		respondError(w, http.StatusInternalServerError, storeErrorCode(err), err.Error())
		return
	}
	if obj.Name == "" {
		obj.Name = fileName
	}

	log.Printf("💾 Saved transcript %s for session %s", obj.Name, sessionID)
	respondJSON(w, http.StatusOK, SaveResponse{OK: true, FileID: obj.ID, FileName: obj.Name})
}

// storeErrorCode blames the target only when the store says so; credential
// and transport failures are reported as save_failed.
func storeErrorCode(err error) string {
	if errors.Is(err, storage.ErrTargetInvalid) {
		return errTargetInvalid
	}
	return errSaveFailed
}

func decodeBody(r *http.Request, v interface{}) (int, string, bool) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return bodyErrorStatus(err), bodyErrorCode(err), false
	}
	return 0, "", true
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func bodyErrorCode(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errPayloadTooLarge
	}
	return errInvalidBody
}
