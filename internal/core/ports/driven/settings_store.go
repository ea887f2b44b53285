package driven

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// SettingsStore persists AI settings. API keys are encrypted at rest.
type SettingsStore interface {
	// GetAISettings retrieves the current AI settings
	GetAISettings(ctx context.Context) (*domain.AISettings, error)

	// SaveAISettings persists AI settings
	SaveAISettings(ctx context.Context, settings *domain.AISettings) error
}
