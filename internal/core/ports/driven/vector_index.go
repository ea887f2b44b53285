package driven

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// VectorEntry is one chunk prepared for indexing.
type VectorEntry struct {
	ID        string
	Embedding []float32
	Document  string
	Metadata  map[string]string
}

// VectorIndex handles vector similarity search over named collections
// (ChromaDB). Collections use cosine distance; querying a missing or
// empty collection returns empty results, not an error.
type VectorIndex interface {
	// EnsureCollection creates the collection if it does not exist
	EnsureCollection(ctx context.Context, collection string) error

	// Add upserts entries into a collection
	Add(ctx context.Context, collection string, entries []VectorEntry) error

	// Query returns the k nearest entries to the embedding, ascending
	// by distance
	Query(ctx context.Context, collection string, embedding []float32, k int) ([]domain.ScoredChunk, error)

	// DeleteByFilename removes every entry whose source metadata
	// matches the filename
	DeleteByFilename(ctx context.Context, collection string, filename string) error

	// Count returns the number of entries in a collection
	Count(ctx context.Context, collection string) (int, error)

	// HealthCheck verifies the index is available
	HealthCheck(ctx context.Context) error
}
