// Package chunker splits extracted document text into token-bounded,
// overlapping chunks, detecting standard report sections (English and
// Portuguese headers) so each chunk carries a section label.
package chunker

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Config controls chunk sizing.
type Config struct {
	// Size is the target chunk size in tokens
	Size int
	// Overlap is how many tokens consecutive chunks share
	Overlap int
}

// DefaultConfig returns the standard 450/50 sizing.
func DefaultConfig() Config {
	return Config{Size: 450, Overlap: 50}
}

// Chunker produces section-aware chunks from plain text.
type Chunker struct {
	tok     driven.Tokenizer
	size    int
	overlap int
}

// New creates a Chunker. Invalid config values fall back to defaults.
func New(tok driven.Tokenizer, cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		cfg.Overlap = def.Overlap
		if cfg.Overlap >= cfg.Size {
			cfg.Overlap = cfg.Size / 10
		}
	}
	return &Chunker{tok: tok, size: cfg.Size, overlap: cfg.Overlap}
}

// Chunk splits text into chunks for one file. Chunk indices are global
// across sections, 0-based and monotonic in document order. StartChar
// and EndChar are offsets into the normalised text, so consecutive
// chunks can be overlap-deduplicated when reassembling content.
func (c *Chunker) Chunk(technologyID, filename, text string) ([]*domain.Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, filename)
	}

	units := splitSections(text)

	now := time.Now()
	var chunks []*domain.Chunk
	index := 0
	base := 0
	for ui, unit := range units {
		if ui > 0 {
			base += len("\n\n")
		}
		for _, w := range c.windows(unit.text) {
			content := unit.text[w.start:w.end]
			chunks = append(chunks, &domain.Chunk{
				ID:           domain.ChunkID(technologyID, filename, index),
				TechnologyID: technologyID,
				Filename:     filename,
				Section:      unit.section,
				Index:        index,
				Content:      content,
				TokenCount:   c.tok.Count(content),
				StartChar:    base + w.start,
				EndChar:      base + w.end,
				CreatedAt:    now,
			})
			index++
		}
		base += len(unit.text)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, filename)
	}
	return chunks, nil
}

// NormalisedText rebuilds the text the chunk offsets refer to.
func NormalisedText(text string) string {
	units := splitSections(strings.TrimSpace(text))
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.text
	}
	return strings.Join(parts, "\n\n")
}

type span struct {
	start, end int
}

// windows slides a token window of c.size over the unit text, advancing
// by size-overlap, snapping to sentence boundaries where possible.
func (c *Chunker) windows(text string) []span {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []span
	i := 0
	for i < len(sentences) {
		first := sentences[i]
		firstTokens := c.tok.Count(text[first.start:first.end])

		// A single sentence over budget is split hard
		if firstTokens > c.size {
			out = append(out, c.hardSplit(text, first)...)
			i++
			continue
		}

		// Greedily fill the window
		total := firstTokens
		j := i
		for j+1 < len(sentences) {
			next := sentences[j+1]
			nextTokens := c.tok.Count(text[next.start:next.end])
			if total+nextTokens > c.size {
				break
			}
			total += nextTokens
			j++
		}
		out = append(out, trimSpan(text, span{sentences[i].start, sentences[j].end}))

		if j == len(sentences)-1 {
			break
		}

		// Walk back from the window end until ~overlap tokens are
		// retained, so the next window re-reads that tail
		next := j + 1
		kept := 0
		for k := j; k > i; k-- {
			kept += c.tok.Count(text[sentences[k].start:sentences[k].end])
			if kept >= c.overlap {
				next = k
				break
			}
		}
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return out
}

// hardSplit cuts an oversized sentence into raw token windows.
func (c *Chunker) hardSplit(text string, s span) []span {
	var out []span
	start := s.start
	for start < s.end {
		piece := c.tok.Truncate(text[start:s.end], c.size)
		if piece == "" {
			break
		}
		end := start + len(piece)
		out = append(out, trimSpan(text, span{start, end}))
		if end >= s.end {
			break
		}
		// Step back by the overlap, approximated in characters
		back := len(c.tok.Truncate(piece, c.overlap))
		next := end - back
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// trimSpan shrinks a span so its content has no surrounding whitespace,
// keeping offsets aligned with the text.
func trimSpan(text string, s span) span {
	for s.start < s.end && isSpace(text[s.start]) {
		s.start++
	}
	for s.end > s.start && isSpace(text[s.end-1]) {
		s.end--
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// splitSentences returns sentence spans. Boundaries are terminal
// punctuation followed by whitespace, or newlines. Offsets cover the
// whole text so no characters are lost between spans.
func splitSentences(text string) []span {
	var out []span
	start := 0
	for i := 0; i < len(text); i++ {
		b := text[i]
		boundary := false
		if b == '\n' {
			boundary = true
		} else if (b == '.' || b == '!' || b == '?') && i+1 < len(text) && isSpace(text[i+1]) {
			boundary = true
		}
		if boundary {
			s := trimSpan(text, span{start, i + 1})
			if s.end > s.start {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := trimSpan(text, span{start, len(text)}); s.end > s.start {
		out = append(out, s)
	}
	return out
}
