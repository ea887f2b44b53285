package mocks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// MockVectorIndex is an in-memory implementation of VectorIndex for testing.
// Query ranks by real cosine distance so retrieval ordering is exercised.
type MockVectorIndex struct {
	mu          sync.RWMutex
	collections map[string]map[string]driven.VectorEntry
	failNext    bool
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		collections: make(map[string]map[string]driven.VectorEntry),
	}
}

func (m *MockVectorIndex) EnsureCollection(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = make(map[string]driven.VectorEntry)
	}
	return nil
}

func (m *MockVectorIndex) Add(ctx context.Context, collection string, entries []driven.VectorEntry) error {
	if m.failNext {
		m.failNext = false
		return context.DeadlineExceeded
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]driven.VectorEntry)
		m.collections[collection] = col
	}
	for _, e := range entries {
		col[e.ID] = e
	}
	return nil
}

func (m *MockVectorIndex) Query(ctx context.Context, collection string, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[collection]
	if !ok {
		return nil, nil // missing collection yields empty results
	}

	results := make([]domain.ScoredChunk, 0, len(col))
	for _, e := range col {
		results = append(results, domain.ScoredChunk{
			Content:  e.Document,
			Metadata: e.Metadata,
			Distance: cosineDistance(embedding, e.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MockVectorIndex) DeleteByFilename(ctx context.Context, collection string, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		return nil
	}
	for id, e := range col {
		if e.Metadata[domain.MetaSource] == filename {
			delete(col, id)
		}
	}
	return nil
}

func (m *MockVectorIndex) Count(ctx context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection]), nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

// Helper methods for testing

func (m *MockVectorIndex) SetFailNext(fail bool) {
	m.failNext = fail
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
