package mocks

import (
	"context"
	"errors"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// MockLLMService is a mock implementation of LLMService for testing
type MockLLMService struct {
	model    string
	response string
	err      error

	// LastMessages records what the service was asked to generate from
	LastMessages []domain.Message
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		model:    "mock-llm-model",
		response: "mock answer",
	}
}

func (m *MockLLMService) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	m.LastMessages = messages
	if m.err != nil {
		return "", m.err
	}
	if len(messages) == 0 {
		return "", errors.New("no messages")
	}
	return m.response, nil
}

func (m *MockLLMService) Model() string {
	return m.model
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return m.err
}

func (m *MockLLMService) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockLLMService) SetResponse(response string) {
	m.response = response
}

func (m *MockLLMService) SetError(err error) {
	m.err = err
}
