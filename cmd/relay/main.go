package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/api/drive/v3"

	"chat-relay/internal/config"
	"chat-relay/internal/gcreds"
	"chat-relay/internal/llm"
	"chat-relay/internal/relay"
	"chat-relay/internal/scheduler"
	"chat-relay/internal/storage"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.NewRelay()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmClient := newLLM(cfg)

	store := newStore(ctx, cfg)

	var probe *scheduler.Scheduler
	if store != nil {
		probe = scheduler.New(cfg.ProbeSchedule, store.Verify)
		if err := probe.Start(); err != nil {
			log.Printf("failed to start storage probe: %v", err)
		} else if probe.IsRunning() {
			// первая проверка сразу, не дожидаясь расписания
			go probe.RunOnce()
		}
	}

	srv := relay.New(relay.Options{
		Addr:           net.JoinHostPort("", cfg.Port),
		LLM:            llmClient,
		CredentialName: credentialName(cfg.LLMProvider),
		Store:          store,
		VerifyTarget:   cfg.DriveVerifyFolder,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("relay stopped: %v", err)
		}
	case <-ctx.Done():
		log.Printf("🛑 Shutting down relay")
	}

	if probe != nil {
		probe.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func newStore(ctx context.Context, cfg *config.Relay) storage.TranscriptStore {
	target := cfg.StorageTarget()
	if cfg.StorageBackend == config.BackendFile {
		fs, err := storage.NewFileStore(target)
		if err != nil {
			log.Printf("failed to init file store: %v", err)
			return storage.Unavailable{TargetID: target, Err: err}
		}
		log.Printf("💾 Saving transcripts to %s", target)
		return fs
	}

	if target == "" {
		log.Printf("⚠️ DRIVE_FOLDER_ID is not set; saves will fail")
		return nil
	}
	src, err := gcreds.Resolve(gcreds.Settings{
		ServiceAccountJSON:   cfg.ServiceAccountJSON,
		ServiceAccountBase64: cfg.ServiceAccountBase64,
		ClientID:             cfg.GoogleClientID,
		ClientSecret:         cfg.GoogleClientSecret,
		RefreshToken:         cfg.GoogleRefreshToken,
	})
	if err != nil {
		log.Printf("⚠️ Google credentials unavailable: %v", err)
		return storage.Unavailable{TargetID: target, Err: err}
	}
	opt, err := src.ClientOption(ctx, drive.DriveScope)
	if err != nil {
		log.Printf("⚠️ Google credentials rejected: %v", err)
		return storage.Unavailable{TargetID: target, Err: err}
	}
	ds, err := storage.NewDriveStore(ctx, target, opt)
	if err != nil {
		log.Printf("failed to init drive client: %v", err)
		return storage.Unavailable{TargetID: target, Err: err}
	}
	log.Printf("☁️ Saving transcripts to Drive folder %s (%s)", target, src.Kind)
	return ds
}

// newLLM returns nil only when the provider credential is missing, so chat
// answers "<CREDENTIAL> missing"; any other failure yields a client whose
// calls fail with the cause.
func newLLM(cfg *config.Relay) llm.Client {
	c, err := llm.NewFromConfig(cfg)
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		log.Printf("⚠️ LLM credential missing: %v", err)
		return nil
	case err != nil:
		log.Printf("❌ LLM client unavailable: %v", err)
		return llm.Unavailable{Err: err}
	}
	return c
}

func credentialName(p config.LLMProvider) string {
	if p == config.ProviderYandex {
		return "YANDEX_OAUTH_TOKEN"
	}
	return "OPENAI_API_KEY"
}
