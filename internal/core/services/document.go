package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService manages the files of a technology dossier.
type documentService struct {
	documents  driven.DocumentStore
	chunkStore driven.ChunkStore
	ingestion  driving.IngestionService
	logger     *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documents driven.DocumentStore,
	chunkStore driven.ChunkStore,
	ingestion driving.IngestionService,
	logger *slog.Logger,
) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documents:  documents,
		chunkStore: chunkStore,
		ingestion:  ingestion,
		logger:     logger,
	}
}

// ListFiles lists the uploaded files of a technology, newest first.
func (s *documentService) ListFiles(ctx context.Context, technologyID string) ([]*domain.FileInfo, error) {
	if technologyID == "" {
		return nil, fmt.Errorf("%w: technology_id is required", domain.ErrInvalidInput)
	}

	docs, err := s.documents.ListByTechnology(ctx, technologyID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	files := make([]*domain.FileInfo, len(docs))
	for i, d := range docs {
		files[i] = &domain.FileInfo{
			Filename:   d.Filename,
			SizeBytes:  d.SizeBytes,
			UploadedAt: d.UploadedAt,
			Status:     d.Status,
		}
	}
	return files, nil
}

// RemoveFile removes a file from the vector index and registries.
// Runs the removal synchronously through the same pipeline the worker
// uses, so it contends on the same per-file lock as ingestion.
func (s *documentService) RemoveFile(ctx context.Context, technologyID, filename string) error {
	if technologyID == "" || filename == "" {
		return fmt.Errorf("%w: technology_id and filename are required", domain.ErrInvalidInput)
	}

	if _, err := s.documents.Get(ctx, technologyID, filename); err != nil {
		return err
	}

	task := domain.NewRemoveTask(technologyID, filename)
	return s.ingestion.ProcessTask(ctx, task)
}

// GetContent reconstructs the extracted text of a file from its ordered
// chunks. Consecutive chunks overlap; the shared prefix of each chunk
// is dropped using the recorded offsets.
func (s *documentService) GetContent(ctx context.Context, technologyID, filename string) (string, error) {
	chunks, err := s.chunkStore.GetByFile(ctx, technologyID, filename)
	if err != nil {
		return "", fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, filename)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

	var b strings.Builder
	b.WriteString(chunks[0].Content)
	prevEnd := chunks[0].EndChar
	for _, c := range chunks[1:] {
		overlap := prevEnd - c.StartChar
		switch {
		case overlap >= len(c.Content):
			// Fully contained in what we already wrote
		case overlap > 0:
			b.WriteString(c.Content[overlap:])
		default:
			b.WriteString("\n\n")
			b.WriteString(c.Content)
		}
		if c.EndChar > prevEnd {
			prevEnd = c.EndChar
		}
	}
	return b.String(), nil
}
