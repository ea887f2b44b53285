package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

func TestNewOpenAILLM_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAILLM("", "gpt-4o-mini", "")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestOpenAILLM_Generate(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)

		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{FinishReason: "stop"})
		resp.Choices[0].Message.Role = "assistant"
		resp.Choices[0].Message.Content = "A tecnologia está em TRL 6."
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewOpenAILLM("sk-test", "gpt-4o-mini", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answer, err := svc.Generate(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "instruções"},
		{Role: domain.RoleUser, Content: "Qual o TRL?"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "A tecnologia está em TRL 6." {
		t.Errorf("unexpected answer: %q", answer)
	}

	// Deterministic generation settings
	if gotReq.Temperature != 0 {
		t.Errorf("expected temperature 0, got %f", gotReq.Temperature)
	}
	if gotReq.MaxTokens != openAIMaxTokens {
		t.Errorf("expected max_tokens %d, got %d", openAIMaxTokens, gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 {
		t.Errorf("expected 2 messages forwarded, got %d", len(gotReq.Messages))
	}
}

func TestOpenAILLM_Generate_NoMessages(t *testing.T) {
	svc, _ := NewOpenAILLM("sk-test", "", "")

	if _, err := svc.Generate(context.Background(), nil); err == nil {
		t.Error("expected error for empty messages")
	}
}

func TestOpenAILLM_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "Rate limit", "type": "rate_limit_error"},
		})
	}))
	defer server.Close()

	svc, _ := NewOpenAILLM("sk-test", "", server.URL)

	_, err := svc.Generate(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "oi"}})
	if err == nil {
		t.Error("expected error from API failure")
	}
}

func TestOpenAILLM_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []string{}})
	}))
	defer server.Close()

	svc, _ := NewOpenAILLM("sk-test", "", server.URL)
	if err := svc.Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
