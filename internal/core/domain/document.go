package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentStatus tracks a document through the ingestion pipeline
type DocumentStatus string

const (
	DocumentStatusUploading  DocumentStatus = "uploading"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusError      DocumentStatus = "error"
)

// Technology identifies a dossier under analysis.
// It is created by the caller; the engine only keys collections and
// sessions by its ID.
type Technology struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Project      string `json:"project,omitempty"`
	Organisation string `json:"organisation,omitempty"`
}

// Document represents one uploaded file of a technology dossier.
// Identity is (technology_id, filename); re-uploading the same filename
// replaces the previous chunks.
type Document struct {
	TechnologyID string         `json:"technology_id"`
	Filename     string         `json:"filename"`
	SizeBytes    int64          `json:"size_bytes"`
	Status       DocumentStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	ChunkCount   int            `json:"chunk_count"`

	// Generation increments on every upload of this filename.
	// An ingestion run that observes a newer generation than its own
	// has been superseded and must not commit.
	Generation int64 `json:"generation"`

	UploadedAt time.Time `json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Chunk is a bounded span of a document's extracted text, embedded and
// indexed independently. Chunks are immutable; the only mutation is bulk
// deletion when the parent document is removed or replaced.
type Chunk struct {
	ID           string    `json:"id"`
	TechnologyID string    `json:"technology_id"`
	Filename     string    `json:"filename"`
	Section      string    `json:"section"`
	Index        int       `json:"index"` // 0-based, monotonic across sections
	Content      string    `json:"content"`
	TokenCount   int       `json:"token_count"`
	StartChar    int       `json:"start_char"` // offset into the extracted text
	EndChar      int       `json:"end_char"`
	Embedding    []float32 `json:"embedding,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SectionUnstructured labels chunks of documents with no detected sections.
const SectionUnstructured = "unstructured"

// ChunkID derives the stable vector-store ID for a chunk.
func ChunkID(technologyID, filename string, index int) string {
	safe := strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(filename)
	return fmt.Sprintf("%s_%s_%d", technologyID, safe, index)
}

// ScoredChunk is a retrieval hit from the vector index.
type ScoredChunk struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance"`
}

// FileInfo is the caller-facing view of an uploaded file.
type FileInfo struct {
	Filename   string         `json:"filename"`
	SizeBytes  int64          `json:"size_bytes"`
	UploadedAt time.Time      `json:"uploaded_at"`
	Status     DocumentStatus `json:"status"`
}

// TechnologyStatus aggregates the processing state of all documents of a
// technology. Precedence: uploading > processing > error > ready, so a
// polling caller never sees "ready" while any file is still settling.
type TechnologyStatus struct {
	TechnologyID string         `json:"technology_id"`
	Status       DocumentStatus `json:"status"`
	Message      string         `json:"message,omitempty"`
}

// AggregateStatus folds per-document statuses into a technology status.
// A technology with no documents reads as ready (nothing pending).
func AggregateStatus(technologyID string, docs []*Document) TechnologyStatus {
	st := TechnologyStatus{TechnologyID: technologyID, Status: DocumentStatusReady}

	var firstErr string
	hasUploading, hasProcessing := false, false
	for _, d := range docs {
		switch d.Status {
		case DocumentStatusUploading:
			hasUploading = true
		case DocumentStatusProcessing:
			hasProcessing = true
		case DocumentStatusError:
			if firstErr == "" {
				firstErr = fmt.Sprintf("%s: %s", d.Filename, d.Error)
			}
		}
	}

	switch {
	case hasUploading:
		st.Status = DocumentStatusUploading
	case hasProcessing:
		st.Status = DocumentStatusProcessing
	case firstErr != "":
		st.Status = DocumentStatusError
		st.Message = firstErr
	}
	return st
}

// CollectionForTechnology derives the vector collection name for a
// technology. Deterministic so repeated calls always address the same
// collection.
func CollectionForTechnology(technologyID string) string {
	return "tech_" + technologyID
}

// GlossaryCollection is the fixed, shared TRL reference corpus collection.
const GlossaryCollection = "trl"

// Metadata keys stored with every chunk vector.
const (
	MetaSource     = "source"
	MetaSection    = "section"
	MetaChunkIndex = "chunk_index"
	MetaTokenCount = "token_count"
	MetaType       = "type"
	MetaTerms      = "terms"
)

// MetaTypeGlossary marks chunks seeded from the TRL glossary.
const MetaTypeGlossary = "glossary_chunk"
