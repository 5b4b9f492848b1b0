package llm

import (
	"errors"
	"fmt"

	"chat-relay/internal/config"
)

// ErrMissingCredential is returned when the selected provider has no key.
var ErrMissingCredential = errors.New("llm credential missing")

// NewFromConfig builds the model client for the configured provider.
func NewFromConfig(cfg *config.Relay) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingCredential)
		}
		return NewOpenAI(OpenAIOptions{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.OpenAITemperature,
			Referrer:    cfg.OpenRouterReferrer,
			Title:       cfg.OpenRouterTitle,
		}), nil
	case config.ProviderYandex:
		if cfg.YandexOAuthToken == "" {
			return nil, fmt.Errorf("%w: YANDEX_OAUTH_TOKEN", ErrMissingCredential)
		}
		ya, err := NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID)
		if err != nil {
			return nil, err
		}
		return ya, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
