package driven

import (
	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// AIServiceFactory builds AI service instances from persisted
// settings, dispatching on the configured provider.
type AIServiceFactory interface {
	// CreateEmbeddingService builds an embedding service.
	// Returns nil, nil when the settings are not configured.
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)

	// CreateLLMService builds an LLM service.
	// Returns nil, nil when the settings are not configured.
	CreateLLMService(settings *domain.LLMSettings) (LLMService, error)
}
