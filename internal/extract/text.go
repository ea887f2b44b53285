package extract

import (
	"strings"
	"unicode/utf8"
)

// TextExtractor handles plain text and Markdown files.
// Decoding never fails: valid UTF-8 passes through, anything else is
// read as Latin-1, which accepts every byte sequence.
type TextExtractor struct{}

func (e *TextExtractor) Extensions() []string {
	return []string{".txt", ".md"}
}

func (e *TextExtractor) Extract(data []byte) (string, error) {
	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		text = decodeLatin1(data)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text), nil
}

// decodeLatin1 maps each byte to the Unicode code point of the same
// value (ISO 8859-1).
func decodeLatin1(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}
