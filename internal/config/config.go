package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type StorageBackend string

const (
	BackendDrive StorageBackend = "drive"
	BackendFile  StorageBackend = "file"
)

// Relay holds the settings of the relay HTTP service.
type Relay struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes   int64    `env:"MAX_BODY_BYTES" envDefault:"2097152"`

	// LLM settings
	LLMProvider       LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey      string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string      `env:"OPENAI_BASE_URL"`
	OpenAIModel       string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAITemperature float32     `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
	YandexOAuthToken  string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID    string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (опционально)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Storage
	StorageBackend    StorageBackend `env:"STORAGE_BACKEND" envDefault:"drive"`
	DriveFolderID     string         `env:"DRIVE_FOLDER_ID"`
	DriveVerifyFolder bool           `env:"DRIVE_VERIFY_FOLDER" envDefault:"true"`
	LocalStorageDir   string         `env:"LOCAL_STORAGE_DIR" envDefault:"data/transcripts"`
	ProbeSchedule     string         `env:"STORAGE_PROBE_SCHEDULE"`

	// Учётные данные Google: ожидается ровно один режим
	ServiceAccountJSON   string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	ServiceAccountBase64 string `env:"GOOGLE_SERVICE_ACCOUNT_BASE64"`
	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRefreshToken   string `env:"GOOGLE_REFRESH_TOKEN"`
}

// StorageTarget returns the identifier of the container transcripts are
// written to for the configured backend.
func (c *Relay) StorageTarget() string {
	if c.StorageBackend == BackendFile {
		return c.LocalStorageDir
	}
	return c.DriveFolderID
}

// Client holds the settings of the terminal chat client.
type Client struct {
	RelayURL         string `env:"RELAY_URL" envDefault:"http://localhost:8080"`
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`
	ProfileFilePath  string `env:"PROFILE_FILE_PATH"`
	InstructionText  string `env:"UI_INSTRUCTION_TEXT" envDefault:"Lütfen görevi okuyup sohbetten devam edin."`
	TaskText         string `env:"TASK_TEXT"`
	PageURL          string `env:"CLIENT_PAGE_URL" envDefault:"tui://chat-relay"`
	LogFilePath      string `env:"CLIENT_LOG_FILE" envDefault:"logs/chat.log"`
}

func ParseRelay() (*Relay, error) {
	cfg := &Relay{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse relay config: %w", err)
	}
	switch cfg.LLMProvider {
	case ProviderOpenAI, ProviderYandex:
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER: %s", cfg.LLMProvider)
	}
	switch cfg.StorageBackend {
	case BackendDrive, BackendFile:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND: %s", cfg.StorageBackend)
	}
	return cfg, nil
}

func NewRelay() *Relay {
	cfg, err := ParseRelay()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func ParseClient() (*Client, error) {
	cfg := &Client{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse client config: %w", err)
	}
	if cfg.ProfileFilePath == "" {
		cfg.ProfileFilePath = defaultProfilePath()
	}
	return cfg, nil
}

func NewClient() *Client {
	cfg, err := ParseClient()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func defaultProfilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "profile.json"
	}
	return filepath.Join(homeDir, ".chat-relay", "profile.json")
}
