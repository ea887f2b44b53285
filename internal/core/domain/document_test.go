package domain

import (
	"strings"
	"testing"
)

func TestChunkID(t *testing.T) {
	id := ChunkID("tech-1", "my report v2.pdf", 7)

	if !strings.HasPrefix(id, "tech-1_") {
		t.Errorf("expected technology prefix, got %s", id)
	}
	if !strings.HasSuffix(id, "_7") {
		t.Errorf("expected index suffix, got %s", id)
	}
	if strings.ContainsAny(id, ". ") {
		t.Errorf("expected sanitized filename in ID, got %s", id)
	}
	if id != ChunkID("tech-1", "my report v2.pdf", 7) {
		t.Error("expected deterministic chunk IDs")
	}
}

func TestCollectionForTechnology(t *testing.T) {
	if got := CollectionForTechnology("abc"); got != "tech_abc" {
		t.Errorf("expected tech_abc, got %s", got)
	}
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []DocumentStatus
		want     DocumentStatus
	}{
		{"no documents", nil, DocumentStatusReady},
		{"all ready", []DocumentStatus{DocumentStatusReady, DocumentStatusReady}, DocumentStatusReady},
		{"error beats ready", []DocumentStatus{DocumentStatusReady, DocumentStatusError}, DocumentStatusError},
		{"processing beats error", []DocumentStatus{DocumentStatusError, DocumentStatusProcessing}, DocumentStatusProcessing},
		{"uploading beats everything", []DocumentStatus{DocumentStatusProcessing, DocumentStatusUploading, DocumentStatusError}, DocumentStatusUploading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var docs []*Document
			for _, s := range tt.statuses {
				docs = append(docs, &Document{TechnologyID: "tech-1", Filename: "f", Status: s, Error: "boom"})
			}
			got := AggregateStatus("tech-1", docs)
			if got.Status != tt.want {
				t.Errorf("expected status %s, got %s", tt.want, got.Status)
			}
			if got.TechnologyID != "tech-1" {
				t.Errorf("expected technology ID tech-1, got %s", got.TechnologyID)
			}
		})
	}
}

func TestAggregateStatusErrorMessage(t *testing.T) {
	docs := []*Document{
		{Filename: "a.pdf", Status: DocumentStatusReady},
		{Filename: "b.pdf", Status: DocumentStatusError, Error: "extraction failed"},
		{Filename: "c.pdf", Status: DocumentStatusError, Error: "other"},
	}

	st := AggregateStatus("tech-1", docs)
	if st.Status != DocumentStatusError {
		t.Fatalf("expected error status, got %s", st.Status)
	}
	if !strings.Contains(st.Message, "b.pdf") || !strings.Contains(st.Message, "extraction failed") {
		t.Errorf("expected first error surfaced, got %q", st.Message)
	}
}
