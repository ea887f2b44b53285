package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
	"github.com/custodia-labs/dossier-core/internal/prompt"
	"github.com/custodia-labs/dossier-core/internal/runtime"
)

// Ensure answerService implements AnswerService
var _ driving.AnswerService = (*answerService)(nil)

// DefaultGenerateTimeout bounds one LLM call.
const DefaultGenerateTimeout = 120 * time.Second

// answerService runs the retrieve-and-generate path for one question.
type answerService struct {
	sessions  driving.SessionService
	retriever driving.Retriever
	documents driven.DocumentStore
	services  *runtime.Services
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAnswerService creates a new AnswerService
func NewAnswerService(
	sessions driving.SessionService,
	retriever driving.Retriever,
	documents driven.DocumentStore,
	services *runtime.Services,
	timeout time.Duration,
	logger *slog.Logger,
) driving.AnswerService {
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &answerService{
		sessions:  sessions,
		retriever: retriever,
		documents: documents,
		services:  services,
		timeout:   timeout,
		logger:    logger,
	}
}

// Answer resolves the technology, gates on ingestion status, retrieves
// context and generates the answer. No partial answers: any failure
// surfaces as an error.
func (s *answerService) Answer(ctx context.Context, ask domain.Ask) (*domain.Answer, error) {
	if err := ask.Validate(); err != nil {
		return nil, fmt.Errorf("%w: question is required", err)
	}

	session, err := s.resolveSession(ctx, ask)
	if err != nil {
		return nil, err
	}
	technologyID := session.TechnologyID

	if err := s.gateOnStatus(ctx, technologyID); err != nil {
		return nil, err
	}

	result, err := s.retriever.RetrieveContext(ctx, technologyID, ask.Question)
	if err != nil {
		return nil, err
	}
	if result.Empty {
		s.logger.Info("no context found", "technology_id", technologyID)
	}

	messages, err := prompt.Build(technologyID, result.Context, ask.Question, ask.FormatInstructions)
	if err != nil {
		return nil, err
	}

	llm := s.services.LLMService()
	if llm == nil {
		return nil, fmt.Errorf("%w: LLM service not configured", domain.ErrServiceUnavailable)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := llm.Generate(genCtx, messages)
	if err != nil {
		s.logger.Error("generation failed", "technology_id", technologyID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	s.logger.Info("answer generated",
		"technology_id", technologyID,
		"passages", result.Passages,
		"context_tokens", result.TokenCount,
		"duration", time.Since(start))

	return &domain.Answer{
		Answer:       text,
		TechnologyID: technologyID,
		SessionID:    session.ID,
	}, nil
}

// resolveSession prefers the explicit technology ID over the session
// binding. An explicit technology re-binds the session when they
// disagree.
func (s *answerService) resolveSession(ctx context.Context, ask domain.Ask) (*domain.Session, error) {
	if ask.TechnologyID != "" {
		session, err := s.sessions.GetSession(ctx, ask.TechnologyID)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	if ask.SessionID != "" {
		session, err := s.sessions.Resolve(ctx, ask.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil, fmt.Errorf("%w: session expired, set context again", domain.ErrNoTechnology)
			}
			return nil, err
		}
		return session, nil
	}

	return nil, domain.ErrNoTechnology
}

// gateOnStatus rejects questions while any document of the technology
// is still uploading or processing.
func (s *answerService) gateOnStatus(ctx context.Context, technologyID string) error {
	docs, err := s.documents.ListByTechnology(ctx, technologyID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	st := domain.AggregateStatus(technologyID, docs)
	if st.Status == domain.DocumentStatusUploading || st.Status == domain.DocumentStatusProcessing {
		return fmt.Errorf("%w: technology %s", domain.ErrStillProcessing, technologyID)
	}
	return nil
}
