package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Morwran/yagpt"
)

// IAM tokens live up to 12h; refresh well before that.
const yandexIAMRefresh = time.Hour

type YandexClient struct {
	ya         yagpt.YaGPTFace
	oauthToken string

	mu       sync.Mutex
	iamToken string
	issuedAt time.Time
	now      func() time.Time
	issueIAM func(oauthToken string) (string, error)
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}
	c := &YandexClient{
		ya:         ya,
		oauthToken: oauthToken,
		now:        time.Now,
		issueIAM:   exchangeIAM,
	}
	// the IAM token is issued on first use so a provider outage at startup
	// only fails the requests made while it lasts
	return c, nil
}

func exchangeIAM(oauthToken string) (string, error) {
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return "", fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return "", fmt.Errorf("failed to create iam token: %w", err)
	}
	return resp.IamToken, nil
}

func (c *YandexClient) token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.iamToken != "" && c.now().Sub(c.issuedAt) < yandexIAMRefresh {
		return c.iamToken, nil
	}
	tok, err := c.issueIAM(c.oauthToken)
	if err != nil {
		return "", err
	}
	c.iamToken, c.issuedAt = tok, c.now()
	return tok, nil
}

// Generate sends the conversation to YandexGPT Lite.
func (c *YandexClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	iamToken, err := c.token()
	if err != nil {
		return Response{}, err
	}
	conv := make([]yagpt.Message, 0, len(messages))
	for _, m := range messages {
		conv = append(conv, yagpt.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := c.ya.CompletionWithCtx(ctx, iamToken, conv)
	if err != nil {
		return Response{}, fmt.Errorf("yagpt completion: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return Response{}, errors.New("yagpt returned no alternatives")
	}
	return Response{
		Content:          resp.Alternatives[0].Message.Content,
		Model:            yagpt.YaModelLite,
		PromptTokens:     int(resp.Usage.InputTextTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}, nil
}
