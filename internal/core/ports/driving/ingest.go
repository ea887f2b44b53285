package driving

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// IngestionService accepts chunked uploads and runs the indexing pipeline
type IngestionService interface {
	// UploadChunk accepts one base64 slice of a file upload. Slices must
	// arrive in order; the final slice registers the document and queues
	// ingestion.
	UploadChunk(ctx context.Context, slice domain.UploadSlice) (*domain.UploadAck, error)

	// CheckStatus aggregates the processing state of a technology
	CheckStatus(ctx context.Context, technologyID string) (*domain.TechnologyStatus, error)

	// ProcessTask runs one queued ingestion or removal task.
	// Called by the worker, not the HTTP layer.
	ProcessTask(ctx context.Context, task *domain.Task) error
}
