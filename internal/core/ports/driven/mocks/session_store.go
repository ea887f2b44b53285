package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// MockSessionStore is a mock implementation of SessionStore for testing
type MockSessionStore struct {
	mu           sync.RWMutex
	sessions     map[string]*domain.Session
	byTechnology map[string]*domain.Session
}

// NewMockSessionStore creates a new MockSessionStore
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions:     make(map[string]*domain.Session),
		byTechnology: make(map[string]*domain.Session),
	}
}

func (m *MockSessionStore) Save(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	m.byTechnology[session.TechnologyID] = session
	return nil
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionStore) GetByTechnology(ctx context.Context, technologyID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.byTechnology[technologyID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if cur, ok := m.byTechnology[session.TechnologyID]; ok && cur.ID == id {
		delete(m.byTechnology, session.TechnologyID)
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

func (m *MockSessionStore) Trim(ctx context.Context, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) <= keep {
		return 0, nil
	}

	all := make([]*domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastUsedAt.After(all[j].LastUsedAt)
	})

	removed := 0
	for _, s := range all[keep:] {
		delete(m.sessions, s.ID)
		if cur, ok := m.byTechnology[s.TechnologyID]; ok && cur.ID == s.ID {
			delete(m.byTechnology, s.TechnologyID)
		}
		removed++
	}
	return removed, nil
}

func (m *MockSessionStore) Ping(ctx context.Context) error {
	return nil
}

// Helper methods for testing

func (m *MockSessionStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*domain.Session)
	m.byTechnology = make(map[string]*domain.Session)
}
