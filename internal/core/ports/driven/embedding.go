package driven

import (
	"context"
)

// EmbeddingService turns text into vectors for similarity search.
// The active implementation is swapped at runtime through the services
// registry, so callers must tolerate it being absent.
type EmbeddingService interface {
	// Embed embeds a batch of chunk contents, one vector per input,
	// in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a question. Providers may use query-side
	// parameters distinct from document embedding.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
