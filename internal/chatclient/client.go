// Package chatclient talks to the relay over HTTP/JSON.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chat-relay/internal/transcript"
)

type ChatRequest struct {
	SessionID    string               `json:"sessionId"`
	User         transcript.User      `json:"user"`
	SystemPrompt string               `json:"systemPrompt"`
	Messages     []transcript.Message `json:"messages"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
	TS    string `json:"ts"`
}

type SaveResponse struct {
	OK       bool   `json:"ok"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

// StatusError is returned for any non-2xx relay response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: %d %s", e.Op, e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the relay at baseURL. A nil httpClient means
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if req.Messages == nil {
		req.Messages = []transcript.Message{}
	}
	var out ChatResponse
	if err := c.post(ctx, "Chat", "/api/chat", req, &out); err != nil {
		return ChatResponse{}, err
	}
	return out, nil
}

func (c *Client) Save(ctx context.Context, t transcript.Transcript) (SaveResponse, error) {
	if t.Messages == nil {
		t.Messages = []transcript.Message{}
	}
	var out SaveResponse
	if err := c.post(ctx, "Save", "/api/save", t, &out); err != nil {
		return SaveResponse{}, err
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: "Health", Code: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
