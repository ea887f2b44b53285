package postgres

import (
	"context"
	"database/sql"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// Embeddings are not persisted here; the vector index owns them.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ReplaceForFile atomically swaps the chunks of one file
func (s *ChunkStore) ReplaceForFile(ctx context.Context, technologyID, filename string, chunks []*domain.Chunk) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM chunks WHERE technology_id = $1 AND filename = $2`,
			technologyID, filename,
		)
		if err != nil {
			return err
		}

		if len(chunks) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, technology_id, filename, section, chunk_index, content, token_count, start_char, end_char, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range chunks {
			_, err = stmt.ExecContext(ctx,
				c.ID,
				technologyID,
				filename,
				c.Section,
				c.Index,
				c.Content,
				c.TokenCount,
				c.StartChar,
				c.EndChar,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// GetByFile retrieves the chunks of one file ordered by index
func (s *ChunkStore) GetByFile(ctx context.Context, technologyID, filename string) ([]*domain.Chunk, error) {
	query := `
		SELECT id, technology_id, filename, section, chunk_index, content, token_count, start_char, end_char, created_at
		FROM chunks
		WHERE technology_id = $1 AND filename = $2
		ORDER BY chunk_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, technologyID, filename)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		err := rows.Scan(
			&c.ID,
			&c.TechnologyID,
			&c.Filename,
			&c.Section,
			&c.Index,
			&c.Content,
			&c.TokenCount,
			&c.StartChar,
			&c.EndChar,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// DeleteByFile deletes all chunks of one file
func (s *ChunkStore) DeleteByFile(ctx context.Context, technologyID, filename string) error {
	query := `DELETE FROM chunks WHERE technology_id = $1 AND filename = $2`
	_, err := s.db.ExecContext(ctx, query, technologyID, filename)
	return err
}

// CountByTechnology returns the chunk count across a technology
func (s *ChunkStore) CountByTechnology(ctx context.Context, technologyID string) (int, error) {
	query := `SELECT COUNT(*) FROM chunks WHERE technology_id = $1`
	var count int
	err := s.db.QueryRowContext(ctx, query, technologyID).Scan(&count)
	return count, err
}
