package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// PDFExtractor extracts plain text from PDF files.
type PDFExtractor struct{}

func (e *PDFExtractor) Extensions() []string {
	return []string{".pdf"}
}

func (e *PDFExtractor) Extract(data []byte) (string, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", fmt.Errorf("missing %%PDF- header")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return normaliseWhitespace(string(b)), nil
}

// normaliseWhitespace collapses runs of spaces and normalises line
// endings while keeping paragraph breaks intact.
func normaliseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
