package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Services is the registry for the dynamically configured AI backends.
// The embedding and LLM services can be swapped at runtime when the
// persisted settings change; either slot may be empty, and the
// capability flags on the runtime config track what is usable. Safe
// for concurrent access.
type Services struct {
	mu sync.RWMutex

	config *domain.RuntimeConfig

	embedding driven.EmbeddingService
	llm       driven.LLMService
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{config: config}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedding
}

// LLMService returns the current LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llm
}

// SetEmbeddingService swaps the embedding service, closing the one it
// replaces, and updates the capability flag.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapEmbedding(svc)
}

// SetLLMService swaps the LLM service, closing the one it replaces,
// and updates the capability flag.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapLLM(svc)
}

func (s *Services) swapEmbedding(svc driven.EmbeddingService) {
	if s.embedding != nil {
		_ = s.embedding.Close()
	}
	s.embedding = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

func (s *Services) swapLLM(svc driven.LLMService) {
	if s.llm != nil {
		_ = s.llm.Close()
	}
	s.llm = svc
	s.config.SetLLMAvailable(svc != nil)
}

// ValidateAndSetEmbedding health-checks the service before installing
// it. A failing backend is closed and never registered, leaving the
// previous one in place.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetLLM pings the service before installing it. A failing
// backend is closed and never registered, leaving the previous one in
// place.
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetLLMService(svc)
	return nil
}

// Close shuts down both AI backends and clears the capability flags
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapEmbedding(nil)
	s.swapLLM(nil)
	return nil
}
