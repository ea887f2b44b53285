package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenAIEmbedding_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedding("", "text-embedding-3-small", "")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewOpenAIEmbedding_Defaults(t *testing.T) {
	svc, err := NewOpenAIEmbedding("sk-test", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Model() != "text-embedding-3-small" {
		t.Errorf("expected default model, got %s", svc.Model())
	}
	if svc.Dimensions() != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", svc.Dimensions())
	}
}

func TestNewOpenAIEmbedding_LargeModelDimensions(t *testing.T) {
	svc, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-large", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Dimensions() != 3072 {
		t.Errorf("expected 3072 dimensions, got %d", svc.Dimensions())
	}
}

func TestOpenAIEmbedding_Embed(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		inputs := req.Input.([]interface{})

		resp := embeddingResponse{}
		// Return data out of order to exercise index-based reassembly
		for i := len(inputs) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingDatum{Index: i, Embedding: []float32{float32(i), 1}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embeddings, err := svc.Embed(context.Background(), []string{"primeiro", "segundo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	if embeddings[0][0] != 0 || embeddings[1][0] != 1 {
		t.Error("expected embeddings reordered to match input order")
	}
}

func TestOpenAIEmbedding_Embed_Empty(t *testing.T) {
	svc, _ := NewOpenAIEmbedding("sk-test", "", "")

	embeddings, err := svc.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embeddings != nil {
		t.Error("expected nil for empty input")
	}
}

func TestOpenAIEmbedding_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"message": "Invalid API key",
				"type":    "invalid_request_error",
				"code":    "invalid_api_key",
			},
		})
	}))
	defer server.Close()

	svc, _ := NewOpenAIEmbedding("sk-bad", "", server.URL)

	_, err := svc.EmbedQuery(context.Background(), "pergunta")
	if err == nil {
		t.Error("expected error from API failure")
	}
}
