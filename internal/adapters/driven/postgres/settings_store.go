package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements driven.SettingsStore using PostgreSQL.
// API keys are encrypted at rest with the configured SecretEncryptor.
type SettingsStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewSettingsStore creates a new SettingsStore
func NewSettingsStore(db *DB, encryptor *SecretEncryptor) *SettingsStore {
	return &SettingsStore{db: db, encryptor: encryptor}
}

// GetAISettings retrieves the current AI settings.
// Returns the defaults when nothing has been saved yet.
func (s *SettingsStore) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	query := `
		SELECT embedding_provider, embedding_model, embedding_api_key, embedding_base_url,
			   llm_provider, llm_model, llm_api_key, llm_base_url, updated_at
		FROM ai_settings
		WHERE id = 1
	`

	var settings domain.AISettings
	var embProvider, embModel, embBaseURL string
	var llmProvider, llmModel, llmBaseURL string
	var embKeyBlob, llmKeyBlob []byte

	err := s.db.QueryRowContext(ctx, query).Scan(
		&embProvider,
		&embModel,
		&embKeyBlob,
		&embBaseURL,
		&llmProvider,
		&llmModel,
		&llmKeyBlob,
		&llmBaseURL,
		&settings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.DefaultAISettings(), nil
	}
	if err != nil {
		return nil, err
	}

	settings.Embedding.Provider = domain.AIProvider(embProvider)
	settings.Embedding.Model = embModel
	settings.Embedding.BaseURL = embBaseURL
	settings.LLM.Provider = domain.AIProvider(llmProvider)
	settings.LLM.Model = llmModel
	settings.LLM.BaseURL = llmBaseURL

	if len(embKeyBlob) > 0 {
		key, err := s.encryptor.DecryptString(embKeyBlob)
		if err != nil {
			return nil, err
		}
		settings.Embedding.APIKey = key
	}
	if len(llmKeyBlob) > 0 {
		key, err := s.encryptor.DecryptString(llmKeyBlob)
		if err != nil {
			return nil, err
		}
		settings.LLM.APIKey = key
	}

	return &settings, nil
}

// SaveAISettings persists AI settings
func (s *SettingsStore) SaveAISettings(ctx context.Context, settings *domain.AISettings) error {
	var embKeyBlob, llmKeyBlob []byte
	var err error

	if settings.Embedding.APIKey != "" {
		embKeyBlob, err = s.encryptor.EncryptString(settings.Embedding.APIKey)
		if err != nil {
			return err
		}
	}
	if settings.LLM.APIKey != "" {
		llmKeyBlob, err = s.encryptor.EncryptString(settings.LLM.APIKey)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO ai_settings (id, embedding_provider, embedding_model, embedding_api_key, embedding_base_url,
								 llm_provider, llm_model, llm_api_key, llm_base_url, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			embedding_provider = EXCLUDED.embedding_provider,
			embedding_model = EXCLUDED.embedding_model,
			embedding_api_key = EXCLUDED.embedding_api_key,
			embedding_base_url = EXCLUDED.embedding_base_url,
			llm_provider = EXCLUDED.llm_provider,
			llm_model = EXCLUDED.llm_model,
			llm_api_key = EXCLUDED.llm_api_key,
			llm_base_url = EXCLUDED.llm_base_url,
			updated_at = EXCLUDED.updated_at
	`

	settings.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, query,
		string(settings.Embedding.Provider),
		settings.Embedding.Model,
		embKeyBlob,
		settings.Embedding.BaseURL,
		string(settings.LLM.Provider),
		settings.LLM.Model,
		llmKeyBlob,
		settings.LLM.BaseURL,
		settings.UpdatedAt,
	)
	return err
}
