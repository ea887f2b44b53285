package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
)

// Ensure sessionService implements SessionService
var _ driving.SessionService = (*sessionService)(nil)

const sessionLockStripes = 32

// sessionClaims is the JWT payload of a session token
type sessionClaims struct {
	TechnologyID string `json:"tech"`
	jwt.RegisteredClaims
}

// sessionService binds conversations to technologies. Binding and
// re-binding for one technology are serialized through striped mutexes
// so concurrent SetContext calls cannot race a replace.
type sessionService struct {
	store      driven.SessionStore
	signingKey []byte
	limits     domain.SessionLimits
	logger     *slog.Logger

	stripes [sessionLockStripes]sync.Mutex
}

// NewSessionService creates a new SessionService
func NewSessionService(store driven.SessionStore, signingKey []byte, limits domain.SessionLimits, logger *slog.Logger) driving.SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	if limits.MaxSessions <= 0 {
		limits = domain.DefaultSessionLimits()
	}
	return &sessionService{
		store:      store,
		signingKey: signingKey,
		limits:     limits,
		logger:     logger,
	}
}

// SetContext binds a conversation to a technology. The existing session
// is reused when it already points at the same technology; any other
// case issues a fresh session.
func (s *sessionService) SetContext(ctx context.Context, technologyID string) (*driving.ContextBinding, error) {
	technologyID = strings.TrimSpace(technologyID)
	if technologyID == "" {
		return nil, fmt.Errorf("%w: technology_id is required", domain.ErrInvalidInput)
	}

	lock := s.stripe(technologyID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.GetByTechnology(ctx, technologyID)
	if err == nil && existing.TechnologyID == technologyID {
		existing.Touch()
		if err := s.store.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		return &driving.ContextBinding{
			SessionID:    existing.ID,
			Token:        existing.Token,
			TechnologyID: technologyID,
			Status:       "reused",
		}, nil
	}

	session, err := s.newSession(technologyID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.housekeep(ctx)

	s.logger.Info("session context set", "session_id", session.ID, "technology_id", technologyID)
	return &driving.ContextBinding{
		SessionID:    session.ID,
		Token:        session.Token,
		TechnologyID: technologyID,
		Status:       "created",
	}, nil
}

// Resolve returns the session for a plain session ID or a signed token.
// A valid token whose store record expired is re-materialized from its
// claims, so callers do not lose their binding to TTL housekeeping.
func (s *sessionService) Resolve(ctx context.Context, sessionIDOrToken string) (*domain.Session, error) {
	sessionIDOrToken = strings.TrimSpace(sessionIDOrToken)
	if sessionIDOrToken == "" {
		return nil, domain.ErrSessionNotFound
	}

	// Tokens are the only dotted form we issue
	if strings.Count(sessionIDOrToken, ".") == 2 {
		return s.resolveToken(ctx, sessionIDOrToken)
	}

	session, err := s.store.Get(ctx, sessionIDOrToken)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns the session bound to a technology, re-binding when
// the record is gone.
func (s *sessionService) GetSession(ctx context.Context, technologyID string) (*domain.Session, error) {
	session, err := s.store.GetByTechnology(ctx, technologyID)
	if err == nil {
		return session, nil
	}

	binding, err := s.SetContext(ctx, technologyID)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, binding.SessionID)
}

func (s *sessionService) resolveToken(ctx context.Context, token string) (*domain.Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" || claims.TechnologyID == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.store.Get(ctx, claims.Subject)
	if err == nil {
		return session, nil
	}

	// Store record expired but the token is still valid: rebuild it
	session = &domain.Session{
		ID:           claims.Subject,
		TechnologyID: claims.TechnologyID,
		Token:        token,
		CreatedAt:    claims.IssuedAt.Time,
		LastUsedAt:   time.Now(),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return session, nil
}

func (s *sessionService) newSession(technologyID string) (*domain.Session, error) {
	now := time.Now()
	id := uuid.NewString()

	claims := sessionClaims{
		TechnologyID: technologyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.limits.TTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &domain.Session{
		ID:           id,
		TechnologyID: technologyID,
		Token:        token,
		CreatedAt:    now,
		LastUsedAt:   now,
	}, nil
}

// housekeep trims the store once it grows past the configured limit.
func (s *sessionService) housekeep(ctx context.Context) {
	count, err := s.store.Count(ctx)
	if err != nil || count <= s.limits.MaxSessions {
		return
	}
	removed, err := s.store.Trim(ctx, s.limits.KeepSessions)
	if err != nil {
		s.logger.Warn("session cleanup failed", "error", err)
		return
	}
	s.logger.Info("session cleanup", "removed", removed, "kept", s.limits.KeepSessions)
}

func (s *sessionService) stripe(technologyID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(technologyID))
	return &s.stripes[h.Sum32()%sessionLockStripes]
}
