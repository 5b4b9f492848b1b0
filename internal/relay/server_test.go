package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"chat-relay/internal/gcreds"
	"chat-relay/internal/llm"
	"chat-relay/internal/storage"
)

type fakeLLM struct {
	mu    sync.Mutex
	calls [][]llm.Message
	resp  llm.Response
	err   error
}

func (f *fakeLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	return f.resp, f.err
}

type memStore struct {
	mu        sync.Mutex
	target    string
	verifyErr error
	createErr error
	objects   map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{target: "folder-1", objects: make(map[string][]byte)}
}

func (m *memStore) Target() string { return m.target }

func (m *memStore) Verify(ctx context.Context) error { return m.verifyErr }

func (m *memStore) Create(ctx context.Context, name string, data []byte) (storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return storage.Object{}, m.createErr
	}
	if _, ok := m.objects[name]; ok {
		return storage.Object{}, storage.ErrExists
	}
	m.objects[name] = data
	return storage.Object{ID: "id-" + name, Name: name}, nil
}

func newTestServer(l llm.Client, st storage.TranscriptStore) *Server {
	s := New(Options{Addr: ":0", LLM: l, Store: st, VerifyTarget: true})
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	var out map[string]interface{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("response is not JSON: %q", rr.Body.String())
		}
	}
	return rr, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(nil, nil)
	rr, body := do(t, s, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("unexpected health: %d %v", rr.Code, body)
	}
}

func TestChat_Success(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "hello"}}
	s := newTestServer(fl, nil)

	rr, body := do(t, s, http.MethodPost, "/api/chat", `{
		"sessionId":"s1","user":{"firstName":"Ada","lastName":"X"},
		"systemPrompt":"be brief",
		"messages":[{"role":"user","text":"hi","ts":"t1"},{"role":"assistant","text":"yo","ts":"t2"},{"role":"system","text":"sneaky","ts":"t3"}]
	}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rr.Code, body)
	}
	if body["reply"] != "hello" || body["ts"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected body: %v", body)
	}
	if len(fl.calls) != 1 {
		t.Fatalf("expected one provider call, got %d", len(fl.calls))
	}
	got := fl.calls[0]
	want := []llm.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "yo"},
		{Role: "user", Content: "sneaky"},
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected prompt: %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prompt[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestChat_EmptyHistoryForwardsInstructionOnly(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "ok"}}
	s := newTestServer(fl, nil)

	rr, _ := do(t, s, http.MethodPost, "/api/chat", `{"systemPrompt":"persona","messages":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(fl.calls) != 1 || len(fl.calls[0]) != 1 || fl.calls[0][0].Content != "persona" {
		t.Fatalf("unexpected provider call: %+v", fl.calls)
	}
}

func TestChat_MissingPromptMakesNoProviderCall(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "x"}}
	s := newTestServer(fl, nil)

	for _, body := range []string{
		`{"messages":[]}`,
		`{"systemPrompt":"   ","messages":[]}`,
	} {
		rr, out := do(t, s, http.MethodPost, "/api/chat", body)
		if rr.Code != http.StatusBadRequest || out["error"] != "systemPrompt missing" {
			t.Fatalf("expected 400 systemPrompt missing, got %d %v", rr.Code, out)
		}
	}
	if len(fl.calls) != 0 {
		t.Fatalf("provider must not be called, got %d calls", len(fl.calls))
	}
}

func TestChat_MessagesMustBeList(t *testing.T) {
	fl := &fakeLLM{}
	s := newTestServer(fl, nil)

	for _, body := range []string{
		`{"systemPrompt":"p"}`,
		`{"systemPrompt":"p","messages":null}`,
		`{"systemPrompt":"p","messages":"hi"}`,
		`{"systemPrompt":"p","messages":{"role":"user"}}`,
	} {
		rr, out := do(t, s, http.MethodPost, "/api/chat", body)
		if rr.Code != http.StatusBadRequest || out["error"] != "messages missing" {
			t.Fatalf("body %s: expected 400 messages missing, got %d %v", body, rr.Code, out)
		}
	}
	if len(fl.calls) != 0 {
		t.Fatalf("provider must not be called")
	}
}

func TestChat_MissingCredential(t *testing.T) {
	s := newTestServer(nil, nil)
	rr, out := do(t, s, http.MethodPost, "/api/chat", `{"systemPrompt":"p","messages":[]}`)
	if rr.Code != http.StatusInternalServerError || out["error"] != "OPENAI_API_KEY missing" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
}

func TestChat_ProviderFailure(t *testing.T) {
	s := newTestServer(&fakeLLM{err: errors.New("quota exceeded")}, nil)
	rr, out := do(t, s, http.MethodPost, "/api/chat", `{"systemPrompt":"p","messages":[]}`)
	if rr.Code != http.StatusInternalServerError || out["error"] != "chat_failed" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
	if !strings.Contains(out["detail"].(string), "quota exceeded") {
		t.Fatalf("detail missing: %v", out)
	}
}

func TestChat_UnavailableClientReportsCause(t *testing.T) {
	s := newTestServer(llm.Unavailable{Err: errors.New("failed to create iam token: 401")}, nil)
	rr, out := do(t, s, http.MethodPost, "/api/chat", `{"systemPrompt":"p","messages":[]}`)
	if rr.Code != http.StatusInternalServerError || out["error"] != "chat_failed" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
	if !strings.Contains(out["detail"].(string), "iam token") {
		t.Fatalf("detail missing: %v", out)
	}
}

func TestChat_IgnoresMalformedIdentity(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "ok"}}
	s := newTestServer(fl, nil)

	rr, out := do(t, s, http.MethodPost, "/api/chat",
		`{"sessionId":42,"user":"Ada","systemPrompt":"p","messages":[{"role":"user","text":"hi"}]}`)
	if rr.Code != http.StatusOK || out["reply"] != "ok" {
		t.Fatalf("expected 200, got %d %v", rr.Code, out)
	}
	if len(fl.calls) != 1 {
		t.Fatalf("expected one provider call, got %d", len(fl.calls))
	}
}

func TestChat_InvalidJSON(t *testing.T) {
	s := newTestServer(&fakeLLM{}, nil)
	rr, _ := do(t, s, http.MethodPost, "/api/chat", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

const validSave = `{
	"sessionId":"sess-1",
	"startedAt":"2024-01-01T00:00:00.000Z",
	"savedAt":"2024-01-01T00:05:00.000Z",
	"user":{"firstName":"Ada","lastName":"X"},
	"messages":[{"role":"user","text":"hi","ts":"2024-01-01T00:01:00.000Z"}],
	"userAgent":"test-agent",
	"pageUrl":"tui://chat-relay",
	"extra":{"kept":true}
}`

func TestSave_Success(t *testing.T) {
	st := newMemStore()
	s := newTestServer(nil, st)

	rr, out := do(t, s, http.MethodPost, "/api/save", validSave)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", rr.Code, out)
	}
	if len(st.objects) != 1 {
		t.Fatalf("expected exactly one object, got %d", len(st.objects))
	}
	pattern := regexp.MustCompile(`^Ada_X_[0-9T-]+Z_sess-1\.json$`)
	var name string
	for n := range st.objects {
		name = n
	}
	if !pattern.MatchString(name) {
		t.Fatalf("object name %q does not match pattern", name)
	}
	if out["fileName"] != name || out["fileId"] != "id-"+name || out["ok"] != true {
		t.Fatalf("unexpected response: %v", out)
	}

	stored := st.objects[name]
	if !bytes.Contains(stored, []byte("\n  \"sessionId\": \"sess-1\"")) {
		t.Fatalf("payload not indented JSON:\n%s", stored)
	}
	var roundTrip map[string]interface{}
	if err := json.Unmarshal(stored, &roundTrip); err != nil {
		t.Fatalf("stored payload invalid: %v", err)
	}
	if _, ok := roundTrip["extra"]; !ok {
		t.Fatalf("unknown fields must be persisted verbatim")
	}
}

func TestSave_MissingFirstNameNoUpload(t *testing.T) {
	st := newMemStore()
	s := newTestServer(nil, st)

	body := strings.Replace(validSave, `"firstName":"Ada"`, `"firstName":""`, 1)
	rr, out := do(t, s, http.MethodPost, "/api/save", body)
	if rr.Code != http.StatusBadRequest || out["error"] != "user missing" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
	if len(st.objects) != 0 {
		t.Fatalf("no upload expected")
	}
}

func TestSave_MissingSession(t *testing.T) {
	st := newMemStore()
	s := newTestServer(nil, st)

	body := strings.Replace(validSave, `"sessionId":"sess-1"`, `"sessionId":""`, 1)
	rr, out := do(t, s, http.MethodPost, "/api/save", body)
	if rr.Code != http.StatusBadRequest || out["error"] != "sessionId missing" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
}

func TestSave_MistypedIdentityFields(t *testing.T) {
	cases := []struct {
		name, old, new, want string
	}{
		{"user string", `"user":{"firstName":"Ada","lastName":"X"}`, `"user":"Ada"`, "user missing"},
		{"first name number", `"firstName":"Ada"`, `"firstName":7`, "user missing"},
		{"session number", `"sessionId":"sess-1"`, `"sessionId":42`, "sessionId missing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newMemStore()
			s := newTestServer(nil, st)

			rr, out := do(t, s, http.MethodPost, "/api/save", strings.Replace(validSave, tc.old, tc.new, 1))
			if rr.Code != http.StatusBadRequest || out["error"] != tc.want {
				t.Fatalf("expected 400 %s, got %d %v", tc.want, rr.Code, out)
			}
			if len(st.objects) != 0 {
				t.Fatalf("no upload expected")
			}
		})
	}
}

func TestSave_NoTarget(t *testing.T) {
	s := newTestServer(nil, nil)
	rr, out := do(t, s, http.MethodPost, "/api/save", validSave)
	if rr.Code != http.StatusInternalServerError || out["error"] != "DRIVE_FOLDER_ID missing_or_invalid" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}

	st := newMemStore()
	st.target = ""
	s = newTestServer(nil, st)
	rr, _ = do(t, s, http.MethodPost, "/api/save", validSave)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for empty target, got %d", rr.Code)
	}
}

func TestSave_VerifyFailure(t *testing.T) {
	st := newMemStore()
	st.verifyErr = storage.ErrTargetInvalid
	s := newTestServer(nil, st)

	rr, out := do(t, s, http.MethodPost, "/api/save", validSave)
	if rr.Code != http.StatusInternalServerError || out["error"] != "DRIVE_FOLDER_ID missing_or_invalid" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
	if len(st.objects) != 0 {
		t.Fatalf("no upload expected after failed verification")
	}
}

func TestSave_MissingCredentialsIsSaveFailed(t *testing.T) {
	st := storage.Unavailable{TargetID: "folder-1", Err: gcreds.ErrNoCredentials}
	s := newTestServer(nil, st)

	rr, out := do(t, s, http.MethodPost, "/api/save", validSave)
	if rr.Code != http.StatusInternalServerError || out["error"] != "save_failed" {
		t.Fatalf("expected 500 save_failed, got %d %v", rr.Code, out)
	}
	if out["detail"] == "" {
		t.Fatalf("detail missing: %v", out)
	}
}

func TestSave_VerifyTransportErrorIsSaveFailed(t *testing.T) {
	st := newMemStore()
	st.verifyErr = errors.New("get folder folder-1: connection reset")
	s := newTestServer(nil, st)

	rr, out := do(t, s, http.MethodPost, "/api/save", validSave)
	if rr.Code != http.StatusInternalServerError || out["error"] != "save_failed" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
	if len(st.objects) != 0 {
		t.Fatalf("no upload expected after failed verification")
	}
}

func TestSave_UploadFailure(t *testing.T) {
	st := newMemStore()
	st.createErr = errors.New("network down")
	s := newTestServer(nil, st)

	rr, out := do(t, s, http.MethodPost, "/api/save", validSave)
	if rr.Code != http.StatusInternalServerError || out["error"] != "save_failed" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
	if !strings.Contains(out["detail"].(string), "network down") {
		t.Fatalf("detail missing: %v", out)
	}
}

func TestSave_SavedAtDefaultsToServerTime(t *testing.T) {
	st := newMemStore()
	s := newTestServer(nil, st)

	body := `{"sessionId":"s","user":{"firstName":"A","lastName":"B"},"messages":[]}`
	rr, out := do(t, s, http.MethodPost, "/api/save", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", rr.Code, out)
	}
	if out["fileName"] != "A_B_2024-01-01T00-00-00-000Z_s.json" {
		t.Fatalf("unexpected file name: %v", out["fileName"])
	}
}

func TestBodyLimit(t *testing.T) {
	s := New(Options{LLM: &fakeLLM{}, MaxBodyBytes: 16})
	rr, out := do(t, s, http.MethodPost, "/api/chat", `{"systemPrompt":"a long prompt that exceeds the limit","messages":[]}`)
	if rr.Code != http.StatusRequestEntityTooLarge || out["error"] != "payload too large" {
		t.Fatalf("unexpected: %d %v", rr.Code, out)
	}
}

func TestCORS_AllowList(t *testing.T) {
	s := New(Options{AllowedOrigins: []string{"https://allowed.example"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://allowed.example")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://allowed.example" {
		t.Fatalf("allowed origin not echoed: %v", rr.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed origin got CORS header")
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
