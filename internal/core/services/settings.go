package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
	"github.com/custodia-labs/dossier-core/internal/runtime"
)

// Ensure settingsService implements SettingsService
var _ driving.SettingsService = (*settingsService)(nil)

// settingsService persists AI configuration (keys encrypted at rest by
// the store) and hot-swaps the running services on update.
type settingsService struct {
	store    driven.SettingsStore
	factory  driven.AIServiceFactory
	services *runtime.Services
	logger   *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(
	store driven.SettingsStore,
	factory driven.AIServiceFactory,
	services *runtime.Services,
	logger *slog.Logger,
) driving.SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsService{
		store:    store,
		factory:  factory,
		services: services,
		logger:   logger,
	}
}

// GetAISettings retrieves the current AI configuration
func (s *settingsService) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	settings, err := s.store.GetAISettings(ctx)
	if err != nil {
		return domain.DefaultAISettings(), nil
	}
	return settings, nil
}

// UpdateAISettings replaces the configuration of the backends named in
// the request, persists the result, then rebuilds and swaps the running
// services. A backend that fails validation is reported unavailable but
// does not fail the update; the settings are already saved.
func (s *settingsService) UpdateAISettings(ctx context.Context, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
	if req.Embedding == nil && req.LLM == nil {
		return nil, fmt.Errorf("%w: no settings to update", domain.ErrInvalidInput)
	}

	settings, err := s.store.GetAISettings(ctx)
	if err != nil {
		settings = domain.DefaultAISettings()
	}

	if req.Embedding != nil {
		settings.Embedding = domain.EmbeddingSettings{
			Provider: req.Embedding.Provider,
			Model:    req.Embedding.Model,
			APIKey:   req.Embedding.APIKey,
			BaseURL:  req.Embedding.BaseURL,
		}
	}
	if req.LLM != nil {
		settings.LLM = domain.LLMSettings{
			Provider: req.LLM.Provider,
			Model:    req.LLM.Model,
			APIKey:   req.LLM.APIKey,
			BaseURL:  req.LLM.BaseURL,
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.UpdatedAt = time.Now()

	if err := s.store.SaveAISettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	status := &driving.AISettingsStatus{}
	status.Embedding = s.swapEmbedding(ctx, &settings.Embedding)
	status.LLM = s.swapLLM(ctx, &settings.LLM)
	return status, nil
}

func (s *settingsService) swapEmbedding(ctx context.Context, cfg *domain.EmbeddingSettings) driving.AIServiceStatus {
	if !cfg.IsConfigured() {
		s.services.SetEmbeddingService(nil)
		return driving.AIServiceStatus{}
	}

	svc, err := s.factory.CreateEmbeddingService(cfg)
	if err == nil {
		err = s.services.ValidateAndSetEmbedding(ctx, svc)
	}
	if err != nil {
		s.logger.Warn("embedding service rejected", "provider", cfg.Provider, "error", err)
		return driving.AIServiceStatus{}
	}
	return driving.AIServiceStatus{Available: true, Provider: cfg.Provider, Model: cfg.Model}
}

func (s *settingsService) swapLLM(ctx context.Context, cfg *domain.LLMSettings) driving.AIServiceStatus {
	if !cfg.IsConfigured() {
		s.services.SetLLMService(nil)
		return driving.AIServiceStatus{}
	}

	svc, err := s.factory.CreateLLMService(cfg)
	if err == nil {
		err = s.services.ValidateAndSetLLM(ctx, svc)
	}
	if err != nil {
		s.logger.Warn("llm service rejected", "provider", cfg.Provider, "error", err)
		return driving.AIServiceStatus{}
	}
	return driving.AIServiceStatus{Available: true, Provider: cfg.Provider, Model: cfg.Model}
}

// GetAIStatus reports the currently running AI services
func (s *settingsService) GetAIStatus(ctx context.Context) (*driving.AISettingsStatus, error) {
	settings, _ := s.store.GetAISettings(ctx)

	status := &driving.AISettingsStatus{}
	if svc := s.services.EmbeddingService(); svc != nil {
		status.Embedding = driving.AIServiceStatus{Available: true, Model: svc.Model()}
		if settings != nil {
			status.Embedding.Provider = settings.Embedding.Provider
		}
	}
	if svc := s.services.LLMService(); svc != nil {
		status.LLM = driving.AIServiceStatus{Available: true, Model: svc.Model()}
		if settings != nil {
			status.LLM.Provider = settings.LLM.Provider
		}
	}
	return status, nil
}
