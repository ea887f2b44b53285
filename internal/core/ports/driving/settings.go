package driving

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// SettingsService manages the persisted AI configuration. Updates are
// hot-reloaded: the new backends replace the running ones without a
// restart.
type SettingsService interface {
	// GetAISettings retrieves the current AI configuration
	GetAISettings(ctx context.Context) (*domain.AISettings, error)

	// UpdateAISettings persists the configuration and swaps the
	// running services, reporting what is available afterwards
	UpdateAISettings(ctx context.Context, req UpdateAISettingsRequest) (*AISettingsStatus, error)

	// GetAIStatus reports the currently running AI services
	GetAIStatus(ctx context.Context) (*AISettingsStatus, error)
}

// UpdateAISettingsRequest updates one or both AI backends. An omitted
// section leaves the stored configuration for that backend untouched.
type UpdateAISettingsRequest struct {
	Embedding *AIProviderInput `json:"embedding,omitempty"`
	LLM       *AIProviderInput `json:"llm,omitempty"`
}

// AIProviderInput is the input for one backend's configuration
type AIProviderInput struct {
	Provider domain.AIProvider `json:"provider"`
	Model    string            `json:"model"`
	APIKey   string            `json:"api_key"`
	BaseURL  string            `json:"base_url,omitempty"`
}

// AISettingsStatus reports the availability of both AI backends
type AISettingsStatus struct {
	Embedding AIServiceStatus `json:"embedding"`
	LLM       AIServiceStatus `json:"llm"`
}

// AIServiceStatus reports the availability of a single AI backend
type AIServiceStatus struct {
	Available bool              `json:"available"`
	Provider  domain.AIProvider `json:"provider,omitempty"`
	Model     string            `json:"model,omitempty"`
}
