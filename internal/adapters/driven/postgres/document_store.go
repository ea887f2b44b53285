package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// RegisterUpload upserts the document record for a fresh upload.
// A re-upload of the same filename bumps the generation counter so that
// any in-flight ingestion of the old content knows it was superseded.
func (s *DocumentStore) RegisterUpload(ctx context.Context, technologyID, filename string, sizeBytes int64) (int64, error) {
	query := `
		INSERT INTO documents (technology_id, filename, size_bytes, status, error, chunk_count, generation, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, '', 0, 1, now(), now())
		ON CONFLICT (technology_id, filename) DO UPDATE SET
			size_bytes = EXCLUDED.size_bytes,
			status = EXCLUDED.status,
			error = '',
			generation = documents.generation + 1,
			uploaded_at = now(),
			updated_at = now()
		RETURNING generation
	`

	var generation int64
	err := s.db.QueryRowContext(ctx, query,
		technologyID,
		filename,
		sizeBytes,
		string(domain.DocumentStatusProcessing),
	).Scan(&generation)
	if err != nil {
		return 0, err
	}
	return generation, nil
}

// Get retrieves a document
func (s *DocumentStore) Get(ctx context.Context, technologyID, filename string) (*domain.Document, error) {
	query := `
		SELECT technology_id, filename, size_bytes, status, error, chunk_count, generation, uploaded_at, updated_at
		FROM documents
		WHERE technology_id = $1 AND filename = $2
	`

	var doc domain.Document
	var status string
	err := s.db.QueryRowContext(ctx, query, technologyID, filename).Scan(
		&doc.TechnologyID,
		&doc.Filename,
		&doc.SizeBytes,
		&status,
		&doc.Error,
		&doc.ChunkCount,
		&doc.Generation,
		&doc.UploadedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

// ListByTechnology retrieves all documents of a technology
func (s *DocumentStore) ListByTechnology(ctx context.Context, technologyID string) ([]*domain.Document, error) {
	query := `
		SELECT technology_id, filename, size_bytes, status, error, chunk_count, generation, uploaded_at, updated_at
		FROM documents
		WHERE technology_id = $1
		ORDER BY uploaded_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, technologyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var status string
		err := rows.Scan(
			&doc.TechnologyID,
			&doc.Filename,
			&doc.SizeBytes,
			&status,
			&doc.Error,
			&doc.ChunkCount,
			&doc.Generation,
			&doc.UploadedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		doc.Status = domain.DocumentStatus(status)
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// SetStatus updates the pipeline status and error message of a document
func (s *DocumentStore) SetStatus(ctx context.Context, technologyID, filename string, status domain.DocumentStatus, errMsg string) error {
	query := `
		UPDATE documents
		SET status = $3, error = $4, updated_at = $5
		WHERE technology_id = $1 AND filename = $2
	`

	result, err := s.db.ExecContext(ctx, query, technologyID, filename, string(status), errMsg, time.Now())
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// SetChunkCount records how many chunks the last ingestion produced
func (s *DocumentStore) SetChunkCount(ctx context.Context, technologyID, filename string, count int) error {
	query := `
		UPDATE documents
		SET chunk_count = $3, updated_at = $4
		WHERE technology_id = $1 AND filename = $2
	`

	result, err := s.db.ExecContext(ctx, query, technologyID, filename, count, time.Now())
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete removes a document record
func (s *DocumentStore) Delete(ctx context.Context, technologyID, filename string) error {
	query := `DELETE FROM documents WHERE technology_id = $1 AND filename = $2`
	result, err := s.db.ExecContext(ctx, query, technologyID, filename)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
