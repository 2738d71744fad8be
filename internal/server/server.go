// Package server provides the HTTP API for the Teller assistant.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/covebank/teller/internal/config"
	"github.com/covebank/teller/internal/models"
)

// ChatHandler processes one chat request end to end.
type ChatHandler interface {
	Handle(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
}

// Corpus reports the size of the loaded retrieval corpus.
type Corpus interface {
	Size() int
}

// Server is the HTTP server for the assistant API.
type Server struct {
	chat   ChatHandler
	corpus Corpus
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. corpus may be nil
// when no snapshot has been ingested yet; status then reports zero chunks.
func NewServer(chat ChatHandler, corpus Corpus, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		chat:   chat,
		corpus: corpus,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the assistant's routes. Exposed separately from Start so
// tests can mount the API on httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/chat", s.handleChat)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
