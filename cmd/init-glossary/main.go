package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/dossier-core/internal/adapters/driven/ai"
	"github.com/custodia-labs/dossier-core/internal/adapters/driven/chroma"
	"github.com/custodia-labs/dossier-core/internal/chunker"
	"github.com/custodia-labs/dossier-core/internal/config"
	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/extract"
	"github.com/custodia-labs/dossier-core/internal/tokenizer"
)

const embedBatchSize = 100

// init-glossary seeds the shared TRL glossary collection. The glossary
// is the reference corpus every answer draws definitions from, so it is
// indexed once at deploy time rather than through the upload pipeline.
//
// Usage:
//
//	init-glossary [--force] [glossary-file]
//
// The file defaults to GLOSSARY_FILE or data/glossario_trl.txt. An
// already-populated collection is left alone unless --force is given.
func main() {
	force := flag.Bool("force", false, "reindex even if the glossary collection is already populated")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	path := flag.Arg(0)
	if path == "" {
		path = os.Getenv("GLOSSARY_FILE")
	}
	if path == "" {
		path = "data/glossario_trl.txt"
	}

	ctx := context.Background()

	settings := domain.DefaultAISettings()
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		settings.Embedding.Provider = domain.AIProvider(provider)
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		settings.Embedding.Model = model
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && settings.Embedding.Provider == domain.AIProviderOpenAI {
		settings.Embedding.APIKey = key
	}
	if base := os.Getenv("OLLAMA_BASE_URL"); base != "" && settings.Embedding.Provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = base
	}
	if !settings.Embedding.IsConfigured() {
		log.Fatalf("Embedding service not configured (set OPENAI_API_KEY or EMBEDDING_PROVIDER=ollama with OLLAMA_BASE_URL)")
	}

	embedder, err := ai.NewFactory().CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	defer embedder.Close()

	if err := embedder.HealthCheck(ctx); err != nil {
		log.Fatalf("Embedding service unavailable: %v", err)
	}

	index := chroma.NewIndex(chroma.Config{
		BaseURL: cfg.Chroma.URL,
		Timeout: cfg.ChromaTimeout(),
	})
	if err := index.HealthCheck(ctx); err != nil {
		log.Fatalf("ChromaDB unavailable at %s: %v", cfg.Chroma.URL, err)
	}

	if err := index.EnsureCollection(ctx, domain.GlossaryCollection); err != nil {
		log.Fatalf("Failed to ensure glossary collection: %v", err)
	}

	count, err := index.Count(ctx, domain.GlossaryCollection)
	if err != nil {
		log.Fatalf("Failed to count glossary collection: %v", err)
	}
	if count > 0 && !*force {
		log.Printf("Glossary collection %q already holds %d chunks, nothing to do (use --force to reindex)", domain.GlossaryCollection, count)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read glossary file: %v", err)
	}
	filename := filepath.Base(path)

	text, err := extract.DefaultRegistry().Extract(filename, data)
	if err != nil {
		log.Fatalf("Failed to extract glossary text: %v", err)
	}

	tok := tokenizer.NewForModel(settings.Embedding.Model)
	chunks, err := chunker.New(tok, chunker.DefaultConfig()).Chunk(domain.GlossaryCollection, filename, text)
	if err != nil {
		log.Fatalf("Failed to chunk glossary: %v", err)
	}
	log.Printf("Chunked %s into %d chunks", filename, len(chunks))

	if count > 0 {
		log.Printf("Clearing %d existing glossary chunks", count)
		if err := index.DeleteByFilename(ctx, domain.GlossaryCollection, filename); err != nil {
			log.Fatalf("Failed to clear glossary collection: %v", err)
		}
	}

	entries := make([]driven.VectorEntry, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Content
		}
		embeddings, err := embedder.Embed(ctx, texts)
		if err != nil {
			log.Fatalf("Failed to embed glossary chunks: %v", err)
		}
		if len(embeddings) != len(texts) {
			log.Fatalf("Got %d embeddings for %d texts", len(embeddings), len(texts))
		}
		for i, c := range chunks[start:end] {
			entries = append(entries, driven.VectorEntry{
				ID:        fmt.Sprintf("trl_glossary_%d", start+i),
				Embedding: embeddings[i],
				Document:  c.Content,
				Metadata: map[string]string{
					domain.MetaSource:     filename,
					domain.MetaSection:    c.Section,
					domain.MetaChunkIndex: strconv.Itoa(c.Index),
					domain.MetaTokenCount: strconv.Itoa(c.TokenCount),
					domain.MetaType:       domain.MetaTypeGlossary,
					domain.MetaTerms:      glossaryTerms(c.Content),
				},
			})
		}
	}

	if err := index.Add(ctx, domain.GlossaryCollection, entries); err != nil {
		log.Fatalf("Failed to index glossary chunks: %v", err)
	}

	final, err := index.Count(ctx, domain.GlossaryCollection)
	if err != nil {
		log.Fatalf("Failed to verify glossary collection: %v", err)
	}
	if final < len(entries) {
		log.Fatalf("Glossary collection holds %d chunks, expected at least %d", final, len(entries))
	}
	log.Printf("Glossary collection %q ready with %d chunks", domain.GlossaryCollection, final)
}

// glossaryTerms pulls the defined terms out of a glossary chunk.
// Glossary entries follow a "Term: definition" layout, so any short
// prefix before a colon at the start of a line is treated as a term.
func glossaryTerms(content string) string {
	var terms []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ":")
		if idx <= 0 || idx > 80 {
			continue
		}
		term := strings.TrimSpace(line[:idx])
		if term == "" || strings.ContainsAny(term, ".!?") {
			continue
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, ", ")
}
