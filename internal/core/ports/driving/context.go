package driving

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// ContextBinding is the caller-facing result of setting conversation context
type ContextBinding struct {
	SessionID    string `json:"session_id"`
	Token        string `json:"token,omitempty"`
	TechnologyID string `json:"technology_id"`
	Status       string `json:"status"` // "created" or "reused"
}

// SessionService manages the technology binding of conversations
type SessionService interface {
	// SetContext binds a conversation to a technology. A fresh session
	// is issued when none exists or the bound technology differs;
	// otherwise the existing one is returned.
	SetContext(ctx context.Context, technologyID string) (*ContextBinding, error)

	// Resolve returns the session for an ID or signed token
	Resolve(ctx context.Context, sessionIDOrToken string) (*domain.Session, error)

	// GetSession returns the session bound to a technology, creating
	// one when the record is gone
	GetSession(ctx context.Context, technologyID string) (*domain.Session, error)
}
