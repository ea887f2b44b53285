package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// This is determined at startup and can be updated dynamically for AI services.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SessionBackend string // "redis" or "memory"
	QueueBackend   string // "redis" or "memory"

	// Dynamic capability flags (updated when AI services change)
	embeddingAvailable bool
	llmAvailable       bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(sessionBackend, queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SessionBackend: sessionBackend,
		QueueBackend:   queueBackend,
	}
}

// EmbeddingAvailable returns whether embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether LLM service is available
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// CanIngest returns true if documents can be embedded and indexed
func (c *RuntimeConfig) CanIngest() bool {
	return c.EmbeddingAvailable()
}

// CanAnswer returns true if the full retrieve-and-generate path is up
func (c *RuntimeConfig) CanAnswer() bool {
	return c.EmbeddingAvailable() && c.LLMAvailable()
}
