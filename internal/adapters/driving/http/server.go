package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	sessionService   driving.SessionService
	ingestionService driving.IngestionService
	answerService    driving.AnswerService
	documentService  driving.DocumentService
	settingsService  driving.SettingsService

	// Infrastructure
	db    Pinger // PostgreSQL health check
	queue Pinger // Task queue health check
	index Pinger // Vector index health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
	// APIToken, when non-empty, is required as a bearer token on /api/v1/*
	APIToken string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	sessionService driving.SessionService,
	ingestionService driving.IngestionService,
	answerService driving.AnswerService,
	documentService driving.DocumentService,
	settingsService driving.SettingsService,
	db Pinger,
	queue Pinger,
	index Pinger, // can be nil
) *Server {
	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		sessionService:   sessionService,
		ingestionService: ingestionService,
		answerService:    answerService,
		documentService:  documentService,
		settingsService:  settingsService,
		db:               db,
		queue:            queue,
		index:            index,
	}

	s.setupRoutes(cfg.APIToken)

	handler := NewRecoveryMiddleware().Handler(
		NewLoggingMiddleware().Handler(s.router))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // answer generation can run long
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(apiToken string) {
	tokenMiddleware := NewTokenMiddleware(apiToken)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Conversation context
	s.router.Handle("POST /api/v1/context",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleSetContext)))

	// Document upload and status
	s.router.Handle("POST /api/v1/upload",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleUpload)))
	s.router.Handle("GET /api/v1/technologies/{id}/status",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleTechnologyStatus)))

	// Question answering
	s.router.Handle("POST /api/v1/answer",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleAnswer)))

	// File management
	s.router.Handle("GET /api/v1/technologies/{id}/files",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleListFiles)))
	s.router.Handle("DELETE /api/v1/technologies/{id}/files/{filename}",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteFile)))

	// AI settings
	s.router.Handle("GET /api/v1/settings/ai",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleGetAISettings)))
	s.router.Handle("PUT /api/v1/settings/ai",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleUpdateAISettings)))
	s.router.Handle("GET /api/v1/settings/ai/status",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleAIStatus)))
}

// Start starts the HTTP server. It blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
