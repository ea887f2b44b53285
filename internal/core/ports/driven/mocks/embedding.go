package mocks

import (
	"context"
	"hash/fnv"
)

// MockEmbeddingService is a mock implementation of EmbeddingService for
// testing. Embeddings are deterministic per text, so the same content
// always lands on the same vector.
type MockEmbeddingService struct {
	model string
	dims  int
	err   error

	// LastTexts records the most recent Embed input
	LastTexts []string
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		model: "mock-embedding-model",
		dims:  384,
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.LastTexts = texts
	if m.err != nil {
		return nil, m.err
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vectorFor(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dims
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.err
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// vectorFor derives a stable pseudo-embedding from the text hash
func (m *MockEmbeddingService) vectorFor(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, m.dims)
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(state%997) / 997.0
	}
	return vec
}

// Helper methods for testing

func (m *MockEmbeddingService) SetError(err error) {
	m.err = err
}

func (m *MockEmbeddingService) SetDimensions(dims int) {
	m.dims = dims
}
