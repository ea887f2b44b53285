// Package tokenizer provides model-token counting for chunk sizing and
// retrieval budgets.
package tokenizer

import (
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Tiktoken counts tokens with the encoding of the configured model.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var _ driven.Tokenizer = (*Tiktoken)(nil)

// NewForModel returns a tokenizer for the given model. When the
// encoding cannot be loaded (unknown model, no cache and no network)
// it degrades to the heuristic counter rather than failing startup.
func NewForModel(model string) driven.Tokenizer {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	if err != nil {
		return NewHeuristic()
	}
	return &Tiktoken{enc: enc}
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *Tiktoken) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:maxTokens])
}

// Heuristic approximates tokens as ~4 characters each. Used in tests
// and as the degraded mode when no encoding is available.
type Heuristic struct{}

var _ driven.Tokenizer = (*Heuristic)(nil)

// NewHeuristic creates a heuristic tokenizer
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Count(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

func (h *Heuristic) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * 4
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	// Prefer a word boundary near the cut
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut
}
