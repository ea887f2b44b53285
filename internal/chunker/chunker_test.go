package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/tokenizer"
)

func testChunker(size, overlap int) *Chunker {
	return New(tokenizer.NewHeuristic(), Config{Size: size, Overlap: overlap})
}

func sentencesText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Esta é a frase número %d do relatório técnico. ", i)
	}
	return b.String()
}

func TestChunkEmptyText(t *testing.T) {
	c := testChunker(450, 50)

	_, err := c.Chunk("tech-1", "empty.txt", "   \n\n  ")
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := testChunker(450, 50)

	chunks, err := c.Chunk("tech-1", "short.txt", "Uma única frase curta.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Section != domain.SectionUnstructured {
		t.Errorf("expected unstructured section, got %s", chunks[0].Section)
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
}

func TestChunkIndicesMonotonic(t *testing.T) {
	c := testChunker(100, 20)

	chunks, err := c.Chunk("tech-1", "long.txt", sentencesText(200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("expected index %d, got %d", i, ch.Index)
		}
		if ch.ID != domain.ChunkID("tech-1", "long.txt", i) {
			t.Errorf("expected derived chunk ID, got %s", ch.ID)
		}
		if ch.TokenCount > 100 {
			t.Errorf("chunk %d exceeds size: %d tokens", i, ch.TokenCount)
		}
	}
}

func TestChunkCountApproximation(t *testing.T) {
	tok := tokenizer.NewHeuristic()
	c := New(tok, Config{Size: 100, Overlap: 20})

	text := sentencesText(150)
	chunks, err := c.Chunk("tech-1", "doc.txt", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := tok.Count(NormalisedText(text))
	expected := (total + 79) / 80 // ceil(tokens / (size - overlap))
	if len(chunks) < expected-2 || len(chunks) > expected+3 {
		t.Errorf("expected about %d chunks for %d tokens, got %d", expected, total, len(chunks))
	}
}

func TestChunkOverlap(t *testing.T) {
	c := testChunker(100, 20)

	chunks, err := c.Chunk("tech-1", "doc.txt", sentencesText(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartChar >= chunks[i-1].EndChar {
			t.Errorf("expected chunk %d to overlap its predecessor", i)
		}
		if chunks[i].StartChar <= chunks[i-1].StartChar {
			t.Errorf("expected forward progress at chunk %d", i)
		}
	}
}

func TestChunkOffsetsMatchNormalisedText(t *testing.T) {
	c := testChunker(80, 10)

	text := "Resumo\n\n" + sentencesText(30) + "\n\nConclusão\n\n" + sentencesText(25)
	chunks, err := c.Chunk("tech-1", "doc.txt", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	norm := NormalisedText(text)
	for _, ch := range chunks {
		if got := norm[ch.StartChar:ch.EndChar]; got != ch.Content {
			t.Fatalf("chunk %d offsets do not match content:\n offsets: %q\n content: %q", ch.Index, got, ch.Content)
		}
	}
}

func TestChunkSectionDetection(t *testing.T) {
	c := testChunker(450, 50)

	text := strings.Join([]string{
		"Resumo",
		"Este documento avalia a maturidade da tecnologia proposta.",
		"1. Introdução",
		"A tecnologia foi desenvolvida ao longo de três anos.",
		"2. Metodologia",
		"Aplicamos a escala TRL conforme definida pela NASA.",
		"Conclusão",
		"A tecnologia encontra-se em TRL 6.",
	}, "\n\n")

	chunks, err := c.Chunk("tech-1", "relatorio.txt", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sections := make(map[string]bool)
	for _, ch := range chunks {
		sections[ch.Section] = true
	}
	for _, want := range []string{"abstract", "introduction", "methodology", "conclusion"} {
		if !sections[want] {
			t.Errorf("expected section %s detected, got %v", want, sections)
		}
	}
}

func TestChunkEnglishHeaders(t *testing.T) {
	c := testChunker(450, 50)

	text := strings.Join([]string{
		"Abstract",
		"This report assesses technology readiness.",
		"3. Results",
		"The prototype was validated in a relevant environment.",
		"References",
		"[1] TRL Handbook.",
	}, "\n\n")

	chunks, err := c.Chunk("tech-1", "report.txt", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sections := make(map[string]bool)
	for _, ch := range chunks {
		sections[ch.Section] = true
	}
	for _, want := range []string{"abstract", "results", "references"} {
		if !sections[want] {
			t.Errorf("expected section %s detected, got %v", want, sections)
		}
	}
}

func TestChunkSingleHeaderStaysUnstructured(t *testing.T) {
	c := testChunker(450, 50)

	text := "Introdução\n\nApenas uma seção detectada não divide o documento."
	chunks, err := c.Chunk("tech-1", "doc.txt", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ch := range chunks {
		if ch.Section != domain.SectionUnstructured {
			t.Errorf("expected unstructured, got %s", ch.Section)
		}
	}
}

func TestChunkOversizedSentenceHardSplit(t *testing.T) {
	c := testChunker(50, 10)

	// One giant sentence with no terminal punctuation
	text := strings.Repeat("palavra ", 600)
	chunks, err := c.Chunk("tech-1", "blob.txt", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected hard split into multiple chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if ch.TokenCount > 50 {
			t.Errorf("chunk %d exceeds size after hard split: %d tokens", ch.Index, ch.TokenCount)
		}
	}
}

func TestSplitParagraphsSingleNewlineFallback(t *testing.T) {
	// Few double-newline paragraphs, many single-newline lines
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, fmt.Sprintf("Linha %d do documento extraído.", i))
	}
	text := strings.Join(lines, "\n")

	paras := splitParagraphs(text)
	if len(paras) != 30 {
		t.Errorf("expected single-newline fallback to yield 30 paragraphs, got %d", len(paras))
	}
}
