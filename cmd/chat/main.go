package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"chat-relay/internal/chatclient"
	"chat-relay/internal/config"
	"chat-relay/internal/profile"
	"chat-relay/internal/session"
	"chat-relay/internal/tui"
)

const defaultPersona = "You are a friendly conversation partner. Answer briefly and stay on the user's task."

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.NewClient()

	if cfg.LogFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
			log.Fatalf("failed to create log dir: %v", err)
		}
		f, err := tea.LogToFile(cfg.LogFilePath, "chat")
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer f.Close()
	}

	repo, err := profile.NewFileRepository(cfg.ProfileFilePath)
	if err != nil {
		log.Fatalf("failed to init profile: %v", err)
	}

	relayClient := chatclient.New(cfg.RelayURL, &http.Client{Timeout: 90 * time.Second})

	ctrl, err := session.NewController(session.Options{
		Relay:    relayClient,
		Profiles: repo,
		Persona:  readSystemPrompt(cfg.SystemPromptPath),
		Env: session.Environment{
			UserAgent: fmt.Sprintf("chat-relay-tui (%s/%s)", runtime.GOOS, runtime.GOARCH),
			PageURL:   cfg.PageURL,
		},
	})
	if err != nil {
		log.Fatalf("failed to init session: %v", err)
	}
	log.Printf("🚀 Session %s, relay %s", ctrl.SessionID(), cfg.RelayURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := relayClient.Health(healthCtx); err != nil {
		log.Printf("⚠️ relay health check failed: %v", err)
	}
	cancel()

	m := tui.New(tui.Options{
		Controller:  ctrl,
		Styles:      tui.DefaultStyles(),
		Instruction: cfg.InstructionText,
		Task:        cfg.TaskText,
		Context:     ctx,
	})
	if err := tui.Run(ctx, m); err != nil {
		log.Fatalf("tui: %v", err)
	}
}

func readSystemPrompt(path string) string {
	if path == "" {
		return defaultPersona
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("system prompt file not found or unreadable at %s: %v", path, err)
		return defaultPersona
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return defaultPersona
}
