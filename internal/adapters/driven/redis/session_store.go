package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

const (
	// Key prefixes for Redis
	sessionPrefix     = "dossier:session:"
	sessionTechPrefix = "dossier:session:tech:"
	// Sorted set of session IDs scored by last-use time
	sessionIndexKey = "dossier:sessions"
)

// SessionStore implements driven.SessionStore using Redis.
// Sessions use Redis TTL for automatic expiration; a sorted set keyed
// by last use backs Count and Trim housekeeping.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a new Redis-backed SessionStore
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = domain.DefaultSessionLimits().TTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Save stores a session and refreshes its TTL
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Use pipeline for atomic operations
	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessionPrefix+session.ID, data, s.ttl)
	pipe.Set(ctx, sessionTechPrefix+session.TechnologyID, session.ID, s.ttl)
	pipe.ZAdd(ctx, sessionIndexKey, redis.Z{
		Score:  float64(session.LastUsedAt.UnixNano()),
		Member: session.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if err == redis.Nil {
		// Expired or never existed; drop the stale index entry
		s.client.ZRem(ctx, sessionIndexKey, id)
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// GetByTechnology retrieves the current session bound to a technology
func (s *SessionStore) GetByTechnology(ctx context.Context, technologyID string) (*domain.Session, error) {
	sessionID, err := s.client.Get(ctx, sessionTechPrefix+technologyID).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by technology: %w", err)
	}
	return s.Get(ctx, sessionID)
}

// Delete deletes a session
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err == domain.ErrSessionNotFound {
		return nil // Already deleted
	}
	if err != nil {
		return err
	}
	return s.deleteSession(ctx, session)
}

// Count returns the number of live sessions
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, sessionIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int(n), nil
}

// Trim removes the oldest sessions until at most keep remain
func (s *SessionStore) Trim(ctx context.Context, keep int) (int, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	excess := total - keep
	if excess <= 0 {
		return 0, nil
	}

	// Oldest first
	ids, err := s.client.ZRange(ctx, sessionIndexKey, 0, int64(excess-1)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list oldest sessions: %w", err)
	}

	removed := 0
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if err == domain.ErrSessionNotFound {
			removed++
			continue
		}
		if err != nil {
			return removed, err
		}
		if err := s.deleteSession(ctx, session); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Ping checks if the session backend is healthy
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// deleteSession removes a session and all its indexes
func (s *SessionStore) deleteSession(ctx context.Context, session *domain.Session) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionPrefix+session.ID)
	pipe.ZRem(ctx, sessionIndexKey, session.ID)

	// Only drop the technology index if it still points at this session
	current, err := s.client.Get(ctx, sessionTechPrefix+session.TechnologyID).Result()
	if err == nil && current == session.ID {
		pipe.Del(ctx, sessionTechPrefix+session.TechnologyID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
