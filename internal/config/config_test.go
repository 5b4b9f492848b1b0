package config

import (
	"strings"
	"testing"
)

func TestParseRelay_Defaults(t *testing.T) {
	cfg, err := ParseRelay()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %q", cfg.Port)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", cfg.OpenAIModel)
	}
	if cfg.OpenAITemperature != 0.7 {
		t.Fatalf("unexpected temperature: %v", cfg.OpenAITemperature)
	}
	if cfg.StorageBackend != BackendDrive || !cfg.DriveVerifyFolder {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("expected no origins, got %v", cfg.AllowedOrigins)
	}
}

func TestParseRelay_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DRIVE_FOLDER_ID", "folder-1")
	t.Setenv("DRIVE_VERIFY_FOLDER", "false")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("LOCAL_STORAGE_DIR", "/tmp/out")

	cfg, err := ParseRelay()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("unexpected port: %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.DriveVerifyFolder {
		t.Fatalf("verify flag not applied")
	}
	if cfg.StorageTarget() != "/tmp/out" {
		t.Fatalf("file backend should target the local dir, got %q", cfg.StorageTarget())
	}
}

func TestParseRelay_UnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "nope")
	if _, err := ParseRelay(); err == nil || !strings.Contains(err.Error(), "LLM_PROVIDER") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestParseRelay_UnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	if _, err := ParseRelay(); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestParseClient_DefaultProfilePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := ParseClient()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasSuffix(cfg.ProfileFilePath, "profile.json") {
		t.Fatalf("unexpected profile path: %q", cfg.ProfileFilePath)
	}
	if cfg.RelayURL != "http://localhost:8080" {
		t.Fatalf("unexpected relay url: %q", cfg.RelayURL)
	}
}
