package services

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
	"github.com/custodia-labs/dossier-core/internal/runtime"
)

// stubFactory hands out pre-built mock services instead of real
// provider clients.
type stubFactory struct {
	embedding    driven.EmbeddingService
	embeddingErr error
	llm          driven.LLMService
	llmErr       error
}

func (f *stubFactory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return f.embedding, f.embeddingErr
}

func (f *stubFactory) CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	return f.llm, f.llmErr
}

type settingsFixture struct {
	svc      *settingsService
	store    *mocks.MockSettingsStore
	runtime  *runtime.Services
	factory  *stubFactory
	embedder *mocks.MockEmbeddingService
	llm      *mocks.MockLLMService
}

func newSettingsFixture(t *testing.T) *settingsFixture {
	t.Helper()
	store := mocks.NewMockSettingsStore()
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	embedder := mocks.NewMockEmbeddingService()
	llm := mocks.NewMockLLMService()
	factory := &stubFactory{embedding: embedder, llm: llm}

	svc := NewSettingsService(store, factory, services, nil)
	return &settingsFixture{
		svc:      svc.(*settingsService),
		store:    store,
		runtime:  services,
		factory:  factory,
		embedder: embedder,
		llm:      llm,
	}
}

func TestUpdateAISettingsPersistsAndSwaps(t *testing.T) {
	f := newSettingsFixture(t)
	ctx := context.Background()

	status, err := f.svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		Embedding: &driving.AIProviderInput{
			Provider: domain.AIProviderOpenAI,
			Model:    "text-embedding-3-small",
			APIKey:   "sk-test",
		},
		LLM: &driving.AIProviderInput{
			Provider: domain.AIProviderOpenAI,
			Model:    "gpt-4o-mini",
			APIKey:   "sk-test",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !status.Embedding.Available || !status.LLM.Available {
		t.Errorf("expected both services available, got %+v", status)
	}

	saved, err := f.store.GetAISettings(ctx)
	if err != nil {
		t.Fatalf("expected settings persisted: %v", err)
	}
	if saved.Embedding.APIKey != "sk-test" || saved.LLM.Model != "gpt-4o-mini" {
		t.Errorf("unexpected persisted settings: %+v", saved)
	}

	if f.runtime.EmbeddingService() == nil || f.runtime.LLMService() == nil {
		t.Error("expected running services swapped in")
	}
	if !f.runtime.Config().EmbeddingAvailable() || !f.runtime.Config().LLMAvailable() {
		t.Error("expected capability flags set")
	}
}

func TestUpdateAISettingsPartialKeepsOtherBackend(t *testing.T) {
	f := newSettingsFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		Embedding: &driving.AIProviderInput{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		LLM:       &driving.AIProviderInput{Provider: domain.AIProviderOllama, Model: "llama3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Update only the LLM; the stored embedding config must survive
	_, err = f.svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		LLM: &driving.AIProviderInput{Provider: domain.AIProviderOllama, Model: "mistral"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, _ := f.store.GetAISettings(ctx)
	if saved.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected embedding config untouched, got %q", saved.Embedding.Model)
	}
	if saved.LLM.Model != "mistral" {
		t.Errorf("expected llm model updated, got %q", saved.LLM.Model)
	}
}

func TestUpdateAISettingsInvalidProvider(t *testing.T) {
	f := newSettingsFixture(t)

	_, err := f.svc.UpdateAISettings(context.Background(), driving.UpdateAISettingsRequest{
		Embedding: &driving.AIProviderInput{Provider: "watsonx", Model: "granite"},
	})
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}

	// Nothing persisted, nothing swapped
	if _, err := f.store.GetAISettings(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Error("expected store untouched after rejected update")
	}
	if f.runtime.EmbeddingService() != nil {
		t.Error("expected no service registered after rejected update")
	}
}

func TestUpdateAISettingsEmptyRequest(t *testing.T) {
	f := newSettingsFixture(t)

	_, err := f.svc.UpdateAISettings(context.Background(), driving.UpdateAISettingsRequest{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateAISettingsUnhealthyBackendStillPersists(t *testing.T) {
	f := newSettingsFixture(t)
	ctx := context.Background()
	f.embedder.SetError(errors.New("connection refused"))

	status, err := f.svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		Embedding: &driving.AIProviderInput{
			Provider: domain.AIProviderOpenAI,
			Model:    "text-embedding-3-small",
			APIKey:   "sk-test",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.Embedding.Available {
		t.Error("expected unhealthy backend reported unavailable")
	}
	if f.runtime.EmbeddingService() != nil {
		t.Error("expected unhealthy backend not registered")
	}
	if _, err := f.store.GetAISettings(ctx); err != nil {
		t.Error("expected settings persisted even when the backend is down")
	}
}

func TestUpdateAISettingsDisablesUnconfiguredBackend(t *testing.T) {
	f := newSettingsFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		LLM: &driving.AIProviderInput{Provider: domain.AIProviderOllama, Model: "llama3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.runtime.LLMService() == nil {
		t.Fatal("expected llm registered")
	}

	// Clearing the provider turns the backend off
	_, err = f.svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		LLM: &driving.AIProviderInput{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.runtime.LLMService() != nil {
		t.Error("expected llm disabled")
	}
	if f.runtime.Config().LLMAvailable() {
		t.Error("expected capability flag cleared")
	}
}

func TestGetAIStatus(t *testing.T) {
	f := newSettingsFixture(t)
	ctx := context.Background()

	status, err := f.svc.GetAIStatus(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Embedding.Available || status.LLM.Available {
		t.Error("expected nothing available before configuration")
	}

	_, err = f.svc.UpdateAISettings(ctx, driving.UpdateAISettingsRequest{
		LLM: &driving.AIProviderInput{Provider: domain.AIProviderOllama, Model: "llama3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err = f.svc.GetAIStatus(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.LLM.Available {
		t.Error("expected llm reported available")
	}
	if status.LLM.Provider != domain.AIProviderOllama {
		t.Errorf("expected ollama provider reported, got %s", status.LLM.Provider)
	}
}

func TestGetAISettingsFallsBackToDefaults(t *testing.T) {
	f := newSettingsFixture(t)

	settings, err := f.svc.GetAISettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Embedding.Provider != domain.AIProviderOpenAI {
		t.Errorf("expected default provider, got %s", settings.Embedding.Provider)
	}
}
