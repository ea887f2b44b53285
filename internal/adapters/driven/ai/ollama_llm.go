package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Ensure OllamaLLM implements LLMService
var _ driven.LLMService = (*OllamaLLM)(nil)

// OllamaLLM implements LLMService using a local Ollama server
type OllamaLLM struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaLLM creates a new Ollama chat service
func NewOllamaLLM(baseURL, model string) (driven.LLMService, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	return &OllamaLLM{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string            `json:"model"`
	Messages []domain.Message  `json:"messages"`
	Stream   bool              `json:"stream"`
	Options  ollamaChatOptions `json:"options"`
}

type ollamaChatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Generate runs a chat completion over the given messages
func (l *OllamaLLM) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("at least one message is required")
	}

	reqBody := ollamaChatRequest{
		Model:    l.model,
		Messages: messages,
		Stream:   false,
		Options: ollamaChatOptions{
			Temperature: 0,
			NumPredict:  openAIMaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", chatResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return chatResp.Message.Content, nil
}

// Model returns the model name being used
func (l *OllamaLLM) Model() string {
	return l.model
}

// Ping verifies the Ollama server is reachable
func (l *OllamaLLM) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", l.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources held by the LLM service
func (l *OllamaLLM) Close() error {
	l.client.CloseIdleConnections()
	return nil
}
