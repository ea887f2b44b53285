package domain

import "strings"

// Role tags a chat message for the LLM backend.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one turn of the prompt sent to the LLM.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Ask is a question against a technology dossier. Technology resolution
// order: explicit TechnologyID, then the session binding.
type Ask struct {
	Question           string `json:"question"`
	TechnologyID       string `json:"technology_id,omitempty"`
	SessionID          string `json:"session_id,omitempty"`
	FormatInstructions string `json:"format_instructions,omitempty"`
}

// Validate checks the request is answerable at all.
func (a *Ask) Validate() error {
	if strings.TrimSpace(a.Question) == "" {
		return ErrInvalidInput
	}
	return nil
}

// Answer is the generated response, echoing the resolved binding so the
// caller can keep the conversation going without re-sending context.
type Answer struct {
	Answer       string `json:"answer"`
	TechnologyID string `json:"technology_id"`
	SessionID    string `json:"session_id,omitempty"`
}

// NoContextMarker replaces the assembled context when retrieval finds
// nothing, so the model is told explicitly rather than handed an empty
// string.
const NoContextMarker = "Nenhum contexto específico encontrado."

// ContextResult is the assembled, token-bounded retrieval context.
type ContextResult struct {
	Context    string `json:"context"`
	Passages   int    `json:"passages"`
	TokenCount int    `json:"token_count"`
	// Empty is true when no candidate passages existed at all
	Empty bool `json:"empty"`
}

// UploadSlice is one base64 piece of a chunked file upload. Index 0
// starts a fresh assembly for (technology, filename); later indexes
// append; Final closes the assembly and triggers ingestion.
type UploadSlice struct {
	TechnologyID  string `json:"technology_id"`
	Filename      string `json:"filename"`
	ContentBase64 string `json:"content_base64"`
	ChunkIndex    int    `json:"chunk_index"`
	Final         bool   `json:"final"`
}

// Validate rejects slices that can never be assembled.
func (u *UploadSlice) Validate() error {
	if strings.TrimSpace(u.TechnologyID) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(u.Filename) == "" || strings.ContainsAny(u.Filename, "/\\") {
		return ErrInvalidInput
	}
	if u.ChunkIndex < 0 {
		return ErrInvalidInput
	}
	return nil
}

// UploadAck reports the state of an upload after a slice is accepted.
type UploadAck struct {
	TechnologyID  string `json:"technology_id"`
	Filename      string `json:"filename"`
	ReceivedBytes int64  `json:"received_bytes"`
	NextIndex     int    `json:"next_index"`
	// Complete is true once the final slice landed and ingestion is queued
	Complete bool `json:"complete"`
}
