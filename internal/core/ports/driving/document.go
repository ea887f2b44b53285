package driving

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// DocumentService manages the files of a technology dossier
type DocumentService interface {
	// ListFiles lists the uploaded files of a technology
	ListFiles(ctx context.Context, technologyID string) ([]*domain.FileInfo, error)

	// RemoveFile removes a file from the vector index and registries
	RemoveFile(ctx context.Context, technologyID, filename string) error

	// GetContent reconstructs the extracted text of a file from its
	// ordered chunks, deduplicating the overlap
	GetContent(ctx context.Context, technologyID, filename string) (string, error)
}
