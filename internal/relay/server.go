// Package relay implements the stateless HTTP bridge between chat clients,
// the language-model provider and transcript storage.
package relay

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chat-relay/internal/llm"
	"chat-relay/internal/storage"
)

const defaultMaxBodyBytes = 2 << 20

type Options struct {
	Addr string

	// LLM may be nil when no provider credential is configured; chat
	// requests then fail with "<CredentialName> missing".
	LLM            llm.Client
	CredentialName string

	// Store may be nil when no storage target is configured.
	Store          storage.TranscriptStore
	VerifyTarget   bool
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server holds only immutable dependencies; requests share no state.
type Server struct {
	router       *chi.Mux
	httpServer   *http.Server
	llm          llm.Client
	credName     string
	store        storage.TranscriptStore
	verifyTarget bool
	maxBody      int64
	now          func() time.Time
}

func New(opts Options) *Server {
	s := &Server{
		llm:          opts.LLM,
		credName:     opts.CredentialName,
		store:        opts.Store,
		verifyTarget: opts.VerifyTarget,
		maxBody:      opts.MaxBodyBytes,
		now:          time.Now,
	}
	if s.credName == "" {
		s.credName = "OPENAI_API_KEY"
	}
	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBodyBytes
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(api chi.Router) {
		api.Use(s.limitBody)
		api.Post("/chat", s.handleChat)
		api.Post("/save", s.handleSave)
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("🌐 Relay listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}
