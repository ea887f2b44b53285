package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
	"github.com/custodia-labs/dossier-core/internal/runtime"
)

// Ensure retrieverService implements Retriever
var _ driving.Retriever = (*retrieverService)(nil)

// RetrieverConfig controls retrieval fan-out and the context budget.
type RetrieverConfig struct {
	// TopK is how many passages the merged result keeps
	TopK int
	// MaxContextTokens bounds the assembled context
	MaxContextTokens int
}

// DefaultRetrieverConfig returns the standard retrieval sizing.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{TopK: 6, MaxContextTokens: 3500}
}

// retrieverService queries the technology and glossary collections and
// assembles a labeled, token-bounded context.
type retrieverService struct {
	index    driven.VectorIndex
	tok      driven.Tokenizer
	services *runtime.Services
	cfg      RetrieverConfig
	logger   *slog.Logger
}

// NewRetriever creates a new Retriever
func NewRetriever(index driven.VectorIndex, tok driven.Tokenizer, services *runtime.Services, cfg RetrieverConfig, logger *slog.Logger) driving.Retriever {
	def := DefaultRetrieverConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = def.MaxContextTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retrieverService{
		index:    index,
		tok:      tok,
		services: services,
		cfg:      cfg,
		logger:   logger,
	}
}

// RetrieveContext embeds the question and merges candidates from the
// technology collection and the shared glossary. Each collection is
// queried with double fan-out so the merge still has enough candidates
// when one side dominates. A failing collection degrades to the other
// rather than failing retrieval.
func (r *retrieverService) RetrieveContext(ctx context.Context, technologyID, question string) (*domain.ContextResult, error) {
	embedder := r.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding service not configured", domain.ErrServiceUnavailable)
	}

	embedding, err := embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	fanOut := r.cfg.TopK * 2
	var candidates []domain.ScoredChunk
	for _, collection := range []string{domain.CollectionForTechnology(technologyID), domain.GlossaryCollection} {
		hits, err := r.index.Query(ctx, collection, embedding, fanOut)
		if err != nil {
			r.logger.Warn("collection query failed", "collection", collection, "error", err)
			continue
		}
		candidates = append(candidates, hits...)
	}

	if len(candidates) == 0 {
		return &domain.ContextResult{Context: domain.NoContextMarker, Empty: true}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return chunkIndexOf(candidates[i]) < chunkIndexOf(candidates[j])
	})
	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}

	return r.assemble(candidates), nil
}

// assemble greedily packs labeled passages under the token budget,
// charging the blank-line joiner against the budget for every passage
// after the first. When even the first passage is over budget on its
// own it is truncated instead of dropped, so the model always sees
// the best hit.
func (r *retrieverService) assemble(candidates []domain.ScoredChunk) *domain.ContextResult {
	var parts []string
	used := 0
	sepTokens := r.tok.Count(passageSeparator)
	for i, c := range candidates {
		passage := labelPassage(c)
		tokens := r.tok.Count(passage)
		if i > 0 {
			tokens += sepTokens
		}
		if used+tokens > r.cfg.MaxContextTokens {
			if i == 0 {
				passage = r.tok.Truncate(passage, r.cfg.MaxContextTokens)
				tokens = r.tok.Count(passage)
				parts = append(parts, passage)
				used += tokens
			}
			break
		}
		parts = append(parts, passage)
		used += tokens
	}

	return &domain.ContextResult{
		Context:    strings.Join(parts, passageSeparator),
		Passages:   len(parts),
		TokenCount: used,
	}
}

const passageSeparator = "\n\n"

func labelPassage(c domain.ScoredChunk) string {
	source := c.Metadata[domain.MetaSource]
	if source == "" {
		source = "desconhecida"
	}
	section := c.Metadata[domain.MetaSection]
	if section == "" {
		section = domain.SectionUnstructured
	}
	return fmt.Sprintf("Fonte: %s, Seção: %s\n%s", source, section, c.Content)
}

func chunkIndexOf(c domain.ScoredChunk) int {
	idx, err := strconv.Atoi(c.Metadata[domain.MetaChunkIndex])
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return idx
}
