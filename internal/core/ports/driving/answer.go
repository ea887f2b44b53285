package driving

import (
	"context"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// AnswerService resolves a technology, retrieves context and generates
// a grounded answer
type AnswerService interface {
	// Answer handles one question end to end. Returns
	// domain.ErrStillProcessing while the technology's documents are
	// mid-ingestion and domain.ErrNoTechnology when neither an explicit
	// technology nor a session binding resolves.
	Answer(ctx context.Context, ask domain.Ask) (*domain.Answer, error)
}

// Retriever assembles the token-bounded context for a question
type Retriever interface {
	// RetrieveContext embeds the question, queries the technology and
	// glossary collections and assembles labeled passages under the
	// token budget.
	RetrieveContext(ctx context.Context, technologyID, question string) (*domain.ContextResult, error)
}
