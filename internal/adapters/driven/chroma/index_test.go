package chroma

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// fakeChroma is a minimal in-memory stand-in for the Chroma REST API
type fakeChroma struct {
	collections map[string]*fakeCollection // by name
	byID        map[string]*fakeCollection
	nextID      int
}

type fakeCollection struct {
	id      string
	name    string
	entries map[string]fakeEntry // by entry ID
}

type fakeEntry struct {
	embedding []float32
	document  string
	metadata  map[string]string
}

func newFakeChroma() *fakeChroma {
	return &fakeChroma{
		collections: make(map[string]*fakeCollection),
		byID:        make(map[string]*fakeCollection),
	}
}

func (f *fakeChroma) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	})

	mux.HandleFunc("/api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name"`
			GetOrCreate bool   `json:"get_or_create"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		col, ok := f.collections[req.Name]
		if !ok {
			if !req.GetOrCreate {
				http.Error(w, "exists", http.StatusConflict)
				return
			}
			f.nextID++
			col = &fakeCollection{
				id:      fmt.Sprintf("col-%d", f.nextID),
				name:    req.Name,
				entries: make(map[string]fakeEntry),
			}
			f.collections[req.Name] = col
			f.byID[col.id] = col
		}
		json.NewEncoder(w).Encode(map[string]string{"id": col.id, "name": col.name})
	})

	mux.HandleFunc("/api/v1/collections/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/collections/")
		parts := strings.SplitN(rest, "/", 2)

		if len(parts) == 1 {
			// Lookup by name
			col, ok := f.collections[parts[0]]
			if !ok {
				http.Error(w, fmt.Sprintf("Collection %s does not exist.", parts[0]), http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"id": col.id, "name": col.name})
			return
		}

		col, ok := f.byID[parts[0]]
		if !ok {
			http.Error(w, "unknown collection id", http.StatusNotFound)
			return
		}

		switch parts[1] {
		case "upsert":
			var req struct {
				IDs        []string            `json:"ids"`
				Embeddings [][]float32         `json:"embeddings"`
				Documents  []string            `json:"documents"`
				Metadatas  []map[string]string `json:"metadatas"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			for i, id := range req.IDs {
				col.entries[id] = fakeEntry{
					embedding: req.Embeddings[i],
					document:  req.Documents[i],
					metadata:  req.Metadatas[i],
				}
			}
			w.WriteHeader(http.StatusCreated)

		case "query":
			var req struct {
				QueryEmbeddings [][]float32 `json:"query_embeddings"`
				NResults        int         `json:"n_results"`
			}
			json.NewDecoder(r.Body).Decode(&req)

			type hit struct {
				id       string
				entry    fakeEntry
				distance float64
			}
			var hits []hit
			for id, e := range col.entries {
				hits = append(hits, hit{id, e, cosineDistance(req.QueryEmbeddings[0], e.embedding)})
			}
			sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
			if len(hits) > req.NResults {
				hits = hits[:req.NResults]
			}

			resp := chromaQueryResponse{
				IDs:       [][]string{{}},
				Documents: [][]string{{}},
				Metadatas: [][]map[string]interface{}{{}},
				Distances: [][]float64{{}},
			}
			for _, h := range hits {
				resp.IDs[0] = append(resp.IDs[0], h.id)
				resp.Documents[0] = append(resp.Documents[0], h.entry.document)
				meta := make(map[string]interface{}, len(h.entry.metadata))
				for k, v := range h.entry.metadata {
					meta[k] = v
				}
				resp.Metadatas[0] = append(resp.Metadatas[0], meta)
				resp.Distances[0] = append(resp.Distances[0], h.distance)
			}
			json.NewEncoder(w).Encode(resp)

		case "delete":
			var req struct {
				Where map[string]string `json:"where"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			for id, e := range col.entries {
				match := true
				for k, v := range req.Where {
					if e.metadata[k] != v {
						match = false
						break
					}
				}
				if match {
					delete(col.entries, id)
				}
			}
			json.NewEncoder(w).Encode([]string{})

		case "count":
			json.NewEncoder(w).Encode(len(col.entries))

		default:
			http.NotFound(w, r)
		}
	})

	return mux
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func setupTestIndex(t *testing.T) (*Index, *fakeChroma, func()) {
	t.Helper()
	fake := newFakeChroma()
	server := httptest.NewServer(fake.handler())
	index := NewIndex(DefaultConfig(server.URL))
	return index, fake, server.Close
}

func TestIndex_EnsureCollection(t *testing.T) {
	index, fake, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	if err := index.EnsureCollection(ctx, "tech_t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fake.collections["tech_t1"]; !ok {
		t.Error("expected collection created")
	}

	// Idempotent
	if err := index.EnsureCollection(ctx, "tech_t1"); err != nil {
		t.Fatalf("unexpected error on repeat: %v", err)
	}
}

func TestIndex_AddAndQuery(t *testing.T) {
	index, _, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	entries := []driven.VectorEntry{
		{
			ID:        "t1_doc_pdf_0",
			Embedding: []float32{1, 0, 0},
			Document:  "A tecnologia atingiu TRL 6 em ambiente relevante.",
			Metadata:  map[string]string{domain.MetaSource: "doc.pdf", domain.MetaSection: "results", domain.MetaChunkIndex: "0"},
		},
		{
			ID:        "t1_doc_pdf_1",
			Embedding: []float32{0, 1, 0},
			Document:  "A metodologia seguiu o protocolo padrão.",
			Metadata:  map[string]string{domain.MetaSource: "doc.pdf", domain.MetaSection: "methodology", domain.MetaChunkIndex: "1"},
		},
	}

	if err := index.Add(ctx, "tech_t1", entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := index.Query(ctx, "tech_t1", []float32{1, 0.1, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !strings.Contains(results[0].Content, "TRL 6") {
		t.Errorf("expected nearest chunk first, got %q", results[0].Content)
	}
	if results[0].Distance > results[1].Distance {
		t.Error("expected ascending distance order")
	}
	if results[0].Metadata[domain.MetaSection] != "results" {
		t.Errorf("expected section metadata preserved, got %q", results[0].Metadata[domain.MetaSection])
	}
}

func TestIndex_Query_MissingCollection(t *testing.T) {
	index, _, cleanup := setupTestIndex(t)
	defer cleanup()

	results, err := index.Query(context.Background(), "tech_missing", []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("expected no error for missing collection, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestIndex_DeleteByFilename(t *testing.T) {
	index, _, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	entries := []driven.VectorEntry{
		{ID: "a0", Embedding: []float32{1, 0}, Document: "a", Metadata: map[string]string{domain.MetaSource: "a.pdf"}},
		{ID: "a1", Embedding: []float32{0, 1}, Document: "a", Metadata: map[string]string{domain.MetaSource: "a.pdf"}},
		{ID: "b0", Embedding: []float32{1, 1}, Document: "b", Metadata: map[string]string{domain.MetaSource: "b.pdf"}},
	}
	if err := index.Add(ctx, "tech_t1", entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := index.DeleteByFilename(ctx, "tech_t1", "a.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := index.Count(ctx, "tech_t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 entry left, got %d", count)
	}
}

func TestIndex_DeleteByFilename_MissingCollection(t *testing.T) {
	index, _, cleanup := setupTestIndex(t)
	defer cleanup()

	if err := index.DeleteByFilename(context.Background(), "tech_missing", "a.pdf"); err != nil {
		t.Errorf("expected no-op for missing collection, got %v", err)
	}
}

func TestIndex_Count_MissingCollection(t *testing.T) {
	index, _, cleanup := setupTestIndex(t)
	defer cleanup()

	count, err := index.Count(context.Background(), "tech_missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}

func TestIndex_HealthCheck(t *testing.T) {
	index, _, cleanup := setupTestIndex(t)

	if err := index.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cleanup()
	if err := index.HealthCheck(context.Background()); err == nil {
		t.Error("expected error when Chroma is unreachable")
	}
}
