package driven

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// DocumentStore handles the per-technology file registry (PostgreSQL).
// Identity is (technology_id, filename).
type DocumentStore interface {
	// RegisterUpload upserts the document record for a fresh upload:
	// status becomes processing, the generation counter is bumped, and
	// the new generation is returned.
	RegisterUpload(ctx context.Context, technologyID, filename string, sizeBytes int64) (generation int64, err error)

	// Get retrieves a document
	Get(ctx context.Context, technologyID, filename string) (*domain.Document, error)

	// ListByTechnology retrieves all documents of a technology
	ListByTechnology(ctx context.Context, technologyID string) ([]*domain.Document, error)

	// SetStatus updates the pipeline status and error message of a document
	SetStatus(ctx context.Context, technologyID, filename string, status domain.DocumentStatus, errMsg string) error

	// SetChunkCount records how many chunks the last ingestion produced
	SetChunkCount(ctx context.Context, technologyID, filename string, count int) error

	// Delete removes a document record
	Delete(ctx context.Context, technologyID, filename string) error
}

// ChunkStore handles chunk persistence (PostgreSQL). The vector index is
// the retrieval source of truth; this registry backs content
// reconstruction and bookkeeping.
type ChunkStore interface {
	// ReplaceForFile atomically swaps the chunks of one file:
	// existing rows for (technology_id, filename) are deleted and the
	// new batch inserted in one transaction.
	ReplaceForFile(ctx context.Context, technologyID, filename string, chunks []*domain.Chunk) error

	// GetByFile retrieves the chunks of one file ordered by index
	GetByFile(ctx context.Context, technologyID, filename string) ([]*domain.Chunk, error)

	// DeleteByFile deletes all chunks of one file
	DeleteByFile(ctx context.Context, technologyID, filename string) error

	// CountByTechnology returns the chunk count across a technology
	CountByTechnology(ctx context.Context, technologyID string) (int, error)
}
