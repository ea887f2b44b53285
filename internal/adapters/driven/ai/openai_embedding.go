package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultEmbeddingModel  = "text-embedding-3-small"
	defaultEmbeddingDims   = 1536
	openAIEmbeddingTimeout = 60 * time.Second
)

// openAIEmbeddingDims maps known embedding models to their vector size.
var openAIEmbeddingDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedding generates embeddings through the OpenAI /embeddings
// endpoint (or any API-compatible server via baseURL). Safe for
// concurrent use.
type OpenAIEmbedding struct {
	apiKey  string
	model   string
	baseURL string
	dims    int
	client  *http.Client
}

// NewOpenAIEmbedding creates a new OpenAI embedding service
func NewOpenAIEmbedding(apiKey, model, baseURL string) (driven.EmbeddingService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedding: API key is required")
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	dims, ok := openAIEmbeddingDims[model]
	if !ok {
		dims = defaultEmbeddingDims
	}

	return &OpenAIEmbedding{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		dims:    dims,
		client:  &http.Client{Timeout: openAIEmbeddingTimeout},
	}, nil
}

type embeddingRequest struct {
	Input          interface{} `json:"input"` // string or []string
	Model          string      `json:"model"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
}

type embeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingResponse struct {
	Object string           `json:"object"`
	Data   []embeddingDatum `json:"data"`
	Model  string           `json:"model"`
	Error  *apiError        `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Embed generates embeddings for multiple texts. The result is ordered
// to match the input regardless of the order the API returns data in.
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// The API rejects empty strings; substitute a single space so the
	// output stays aligned with the caller's chunk positions.
	input := make([]string, len(texts))
	for i, t := range texts {
		if t == "" {
			t = " "
		}
		input[i] = t
	}

	resp, err := e.post(ctx, embeddingRequest{
		Input:          input,
		Model:          e.model,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	for i, v := range embeddings {
		if v == nil {
			return nil, fmt.Errorf("openai embedding: no vector returned for input %d", i)
		}
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a question
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *OpenAIEmbedding) Dimensions() int {
	return e.dims
}

// Model returns the model name being used
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available by running
// one tiny embedding request.
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "ping")
	return err
}

// Close releases resources held by the embedding service
func (e *OpenAIEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *OpenAIEmbedding) post(ctx context.Context, reqBody embeddingRequest) (*embeddingResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("openai embedding: parse response: %w", err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("openai embedding: API error: %s (type %s, code %s)",
			embResp.Error.Message, embResp.Error.Type, embResp.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai embedding: API returned status %d", resp.StatusCode)
	}

	return &embResp, nil
}
