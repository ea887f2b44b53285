package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

// Index implements driven.VectorIndex against the ChromaDB REST API.
// Collections are addressed by name; Chroma's internal collection IDs
// are resolved once and cached.
type Index struct {
	baseURL    string
	httpClient *http.Client

	mu  sync.RWMutex
	ids map[string]string // collection name -> chroma collection id
}

// Config holds ChromaDB connection configuration
type Config struct {
	// BaseURL is the Chroma endpoint (e.g., http://localhost:8000)
	BaseURL string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 60 * time.Second,
	}
}

// NewIndex creates a new Chroma-backed VectorIndex
func NewIndex(cfg Config) *Index {
	return &Index{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		ids: make(map[string]string),
	}
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnsureCollection creates the collection if it does not exist.
// Collections use cosine distance.
func (x *Index) EnsureCollection(ctx context.Context, collection string) error {
	_, err := x.ensure(ctx, collection)
	return err
}

func (x *Index) ensure(ctx context.Context, collection string) (string, error) {
	x.mu.RLock()
	id, ok := x.ids[collection]
	x.mu.RUnlock()
	if ok {
		return id, nil
	}

	body := map[string]interface{}{
		"name":          collection,
		"get_or_create": true,
		"metadata":      map[string]interface{}{"hnsw:space": "cosine"},
	}

	var col chromaCollection
	if err := x.do(ctx, http.MethodPost, "/api/v1/collections", body, &col); err != nil {
		return "", fmt.Errorf("ensure collection %s: %w", collection, err)
	}

	x.mu.Lock()
	x.ids[collection] = col.ID
	x.mu.Unlock()
	return col.ID, nil
}

// resolve looks up an existing collection without creating it.
// Returns "" when the collection does not exist.
func (x *Index) resolve(ctx context.Context, collection string) (string, error) {
	x.mu.RLock()
	id, ok := x.ids[collection]
	x.mu.RUnlock()
	if ok {
		return id, nil
	}

	var col chromaCollection
	err := x.do(ctx, http.MethodGet, "/api/v1/collections/"+collection, nil, &col)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("resolve collection %s: %w", collection, err)
	}

	x.mu.Lock()
	x.ids[collection] = col.ID
	x.mu.Unlock()
	return col.ID, nil
}

// Add upserts entries into a collection
func (x *Index) Add(ctx context.Context, collection string, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	id, err := x.ensure(ctx, collection)
	if err != nil {
		return err
	}

	ids := make([]string, len(entries))
	embeddings := make([][]float32, len(entries))
	documents := make([]string, len(entries))
	metadatas := make([]map[string]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		embeddings[i] = e.Embedding
		documents[i] = e.Document
		metadatas[i] = e.Metadata
	}

	body := map[string]interface{}{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}

	if err := x.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/upsert", body, nil); err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return nil
}

type chromaQueryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Distances [][]float64                `json:"distances"`
}

// Query returns the k nearest entries to the embedding, ascending by
// distance. A missing collection yields empty results, not an error.
func (x *Index) Query(ctx context.Context, collection string, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	id, err := x.resolve(ctx, collection)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}

	body := map[string]interface{}{
		"query_embeddings": [][]float32{embedding},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}

	var resp chromaQueryResponse
	if err := x.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/query", body, &resp); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	n := len(resp.IDs[0])
	results := make([]domain.ScoredChunk, 0, n)
	for i := 0; i < n; i++ {
		chunk := domain.ScoredChunk{Metadata: make(map[string]string)}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			chunk.Content = resp.Documents[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			chunk.Distance = resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			for key, value := range resp.Metadatas[0][i] {
				chunk.Metadata[key] = fmt.Sprint(value)
			}
		}
		results = append(results, chunk)
	}
	return results, nil
}

// DeleteByFilename removes every entry whose source metadata matches
// the filename. A missing collection is a no-op.
func (x *Index) DeleteByFilename(ctx context.Context, collection string, filename string) error {
	id, err := x.resolve(ctx, collection)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}

	body := map[string]interface{}{
		"where": map[string]string{domain.MetaSource: filename},
	}

	if err := x.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/delete", body, nil); err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	return nil
}

// Count returns the number of entries in a collection.
// A missing collection counts as zero.
func (x *Index) Count(ctx context.Context, collection string) (int, error) {
	id, err := x.resolve(ctx, collection)
	if err != nil {
		return 0, err
	}
	if id == "" {
		return 0, nil
	}

	var count int
	if err := x.do(ctx, http.MethodGet, "/api/v1/collections/"+id+"/count", nil, &count); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

// HealthCheck verifies the index is available
func (x *Index) HealthCheck(ctx context.Context) error {
	if err := x.do(ctx, http.MethodGet, "/api/v1/heartbeat", nil, nil); err != nil {
		return fmt.Errorf("chroma heartbeat: %w", err)
	}
	return nil
}

// statusError carries the HTTP status of a failed Chroma call
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("chroma returned %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && (se.status == http.StatusNotFound ||
		// Chroma reports unknown collection names as a 500 ValueError
		(se.status == http.StatusInternalServerError && strings.Contains(se.body, "does not exist")))
}

func (x *Index) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return &statusError{status: resp.StatusCode, body: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
