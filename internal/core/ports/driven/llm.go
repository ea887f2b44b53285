package driven

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// LLMService generates answers from a prepared prompt
type LLMService interface {
	// Generate runs a chat completion over the given messages.
	// Deterministic settings (temperature 0) so repeated questions over
	// the same context produce stable answers.
	Generate(ctx context.Context, messages []domain.Message) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
