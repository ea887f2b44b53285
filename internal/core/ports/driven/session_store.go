package driven

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// SessionStore handles session persistence (Redis)
type SessionStore interface {
	// Save stores a session with the given TTL applied by the backend
	Save(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*domain.Session, error)

	// GetByTechnology retrieves the current session bound to a technology
	GetByTechnology(ctx context.Context, technologyID string) (*domain.Session, error)

	// Delete deletes a session
	Delete(ctx context.Context, id string) error

	// Count returns the number of live sessions
	Count(ctx context.Context) (int, error)

	// Trim removes the oldest sessions until at most keep remain.
	// Returns how many sessions were removed.
	Trim(ctx context.Context, keep int) (int, error)

	// Ping checks if the session backend is healthy
	Ping(ctx context.Context) error
}
