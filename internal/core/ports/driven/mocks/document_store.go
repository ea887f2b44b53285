package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

type docKey struct {
	tech     string
	filename string
}

// MockDocumentStore is an in-memory DocumentStore for testing
type MockDocumentStore struct {
	mu   sync.RWMutex
	docs map[docKey]*domain.Document
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{docs: make(map[docKey]*domain.Document)}
}

func (m *MockDocumentStore) RegisterUpload(ctx context.Context, technologyID, filename string, sizeBytes int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := docKey{technologyID, filename}
	now := time.Now()
	doc, ok := m.docs[key]
	if !ok {
		doc = &domain.Document{
			TechnologyID: technologyID,
			Filename:     filename,
			UploadedAt:   now,
		}
		m.docs[key] = doc
	}
	doc.SizeBytes = sizeBytes
	doc.Status = domain.DocumentStatusProcessing
	doc.Error = ""
	doc.Generation++
	doc.UploadedAt = now
	doc.UpdatedAt = now
	return doc.Generation, nil
}

func (m *MockDocumentStore) Get(ctx context.Context, technologyID, filename string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[docKey{technologyID, filename}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MockDocumentStore) ListByTechnology(ctx context.Context, technologyID string) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Document
	for key, doc := range m.docs {
		if key.tech == technologyID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockDocumentStore) SetStatus(ctx context.Context, technologyID, filename string, status domain.DocumentStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docKey{technologyID, filename}]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.Error = errMsg
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) SetChunkCount(ctx context.Context, technologyID, filename string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docKey{technologyID, filename}]
	if !ok {
		return domain.ErrNotFound
	}
	doc.ChunkCount = count
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, technologyID, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docKey{technologyID, filename})
	return nil
}

// MockChunkStore is an in-memory ChunkStore for testing
type MockChunkStore struct {
	mu     sync.RWMutex
	chunks map[docKey][]*domain.Chunk
}

// NewMockChunkStore creates a new MockChunkStore
func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{chunks: make(map[docKey][]*domain.Chunk)}
}

func (m *MockChunkStore) ReplaceForFile(ctx context.Context, technologyID, filename string, chunks []*domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*domain.Chunk, len(chunks))
	copy(cp, chunks)
	m.chunks[docKey{technologyID, filename}] = cp
	return nil
}

func (m *MockChunkStore) GetByFile(ctx context.Context, technologyID, filename string) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chunks[docKey{technologyID, filename}], nil
}

func (m *MockChunkStore) DeleteByFile(ctx context.Context, technologyID, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, docKey{technologyID, filename})
	return nil
}

func (m *MockChunkStore) CountByTechnology(ctx context.Context, technologyID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for key, chunks := range m.chunks {
		if key.tech == technologyID {
			count += len(chunks)
		}
	}
	return count, nil
}
