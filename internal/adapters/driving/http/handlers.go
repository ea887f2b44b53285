package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// Health endpoints

// handleHealth returns the liveness status of the API
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the backends the API depends on
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.queue != nil {
		if err := s.queue.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unavailable")
			return
		}
	}
	if s.index != nil {
		if err := s.index.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "vector index unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion returns the running version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Context endpoint

type contextRequest struct {
	TechnologyID string `json:"technology_id"`
	SessionID    string `json:"session_id,omitempty"`
}

// handleSetContext binds the conversation to a technology. The existing
// session is reused when it already points at the same technology.
func (s *Server) handleSetContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TechnologyID == "" {
		writeError(w, http.StatusBadRequest, "technology_id is required")
		return
	}

	binding, err := s.sessionService.SetContext(r.Context(), req.TechnologyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set context")
		return
	}

	writeJSON(w, http.StatusOK, binding)
}

// Upload endpoints

// handleUpload accepts one base64 slice of a chunked file upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var slice domain.UploadSlice
	if err := json.NewDecoder(r.Body).Decode(&slice); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ack, err := s.ingestionService.UploadChunk(r.Context(), slice)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, ack)
}

// handleTechnologyStatus aggregates the processing state of a technology
func (s *Server) handleTechnologyStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing technology id")
		return
	}

	status, err := s.ingestionService.CheckStatus(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Answer endpoint

// handleAnswer runs one question end to end. Returns 409 while the
// technology's documents are mid-ingestion and 400 when no technology
// can be resolved from the request or session.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var ask domain.Ask
	if err := json.NewDecoder(r.Body).Decode(&ask); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.answerService.Answer(r.Context(), ask)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusUnprocessableEntity, "question is required")
		case errors.Is(err, domain.ErrNoTechnology):
			writeError(w, http.StatusBadRequest, "no technology in context")
		case errors.Is(err, domain.ErrStillProcessing):
			writeError(w, http.StatusConflict, "documents still processing")
		case errors.Is(err, domain.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "ai services not configured")
		default:
			writeError(w, http.StatusInternalServerError, "answer generation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// File endpoints

// handleListFiles lists the uploaded files of a technology
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing technology id")
		return
	}

	files, err := s.documentService.ListFiles(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"technology_id": id,
		"files":         files,
	})
}

// handleDeleteFile removes a file from the index and registries
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	filename := r.PathValue("filename")
	if id == "" || filename == "" {
		writeError(w, http.StatusBadRequest, "missing technology id or filename")
		return
	}

	if err := s.documentService.RemoveFile(r.Context(), id, filename); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to remove file")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AI settings endpoints

type aiSettingsResponse struct {
	Embedding aiProviderInfo `json:"embedding"`
	LLM       aiProviderInfo `json:"llm"`
}

// aiProviderInfo reports one backend's configuration. API keys never
// leave the server; only their presence is exposed.
type aiProviderInfo struct {
	Provider     domain.AIProvider `json:"provider,omitempty"`
	Model        string            `json:"model,omitempty"`
	BaseURL      string            `json:"base_url,omitempty"`
	HasAPIKey    bool              `json:"has_api_key"`
	IsConfigured bool              `json:"is_configured"`
}

// handleGetAISettings returns the stored AI configuration with keys masked
func (s *Server) handleGetAISettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsService.GetAISettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get AI settings")
		return
	}

	writeJSON(w, http.StatusOK, aiSettingsResponse{
		Embedding: aiProviderInfo{
			Provider:     settings.Embedding.Provider,
			Model:        settings.Embedding.Model,
			BaseURL:      settings.Embedding.BaseURL,
			HasAPIKey:    settings.Embedding.APIKey != "",
			IsConfigured: settings.Embedding.IsConfigured(),
		},
		LLM: aiProviderInfo{
			Provider:     settings.LLM.Provider,
			Model:        settings.LLM.Model,
			BaseURL:      settings.LLM.BaseURL,
			HasAPIKey:    settings.LLM.APIKey != "",
			IsConfigured: settings.LLM.IsConfigured(),
		},
	})
}

// handleUpdateAISettings persists new AI configuration and hot-swaps
// the running services
func (s *Server) handleUpdateAISettings(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateAISettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := s.settingsService.UpdateAISettings(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidProvider):
			writeError(w, http.StatusBadRequest, "unsupported AI provider")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update AI settings")
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleAIStatus reports which AI services are currently running
func (s *Server) handleAIStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.settingsService.GetAIStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get AI status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
