package ai

import (
	"errors"
	"testing"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

func TestFactory_CreateEmbeddingService(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantNil   bool
		wantError error
	}{
		{
			name:     "nil settings",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name:     "openai without key is unconfigured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small"},
			wantNil:  true,
		},
		{
			name:     "openai",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "sk-test"},
		},
		{
			name:     "ollama needs no key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		},
		{
			name:      "unknown provider",
			settings:  &domain.EmbeddingSettings{Provider: "acme", APIKey: "x"},
			wantError: domain.ErrInvalidProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := f.CreateEmbeddingService(tt.settings)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("expected %v, got %v", tt.wantError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil && svc != nil {
				t.Error("expected nil service")
			}
			if !tt.wantNil && svc == nil {
				t.Error("expected a service")
			}
		})
	}
}

func TestFactory_CreateLLMService(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateLLMService(nil)
	if err != nil || svc != nil {
		t.Errorf("expected nil, nil for nil settings, got %v, %v", svc, err)
	}

	svc, err = f.CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc == nil || svc.Model() != "gpt-4o-mini" {
		t.Error("expected configured OpenAI LLM service")
	}

	svc, err = f.CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc == nil {
		t.Error("expected Ollama LLM service")
	}

	_, err = f.CreateLLMService(&domain.LLMSettings{Provider: "acme", APIKey: "x"})
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
}
