// Package extract turns uploaded files into plain text. Extractors are
// selected by file extension from a closed registry; anything outside
// the registered set is rejected before it reaches the pipeline.
package extract

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// Extractor converts one file format into plain text.
type Extractor interface {
	// Extensions returns the lowercase extensions this extractor handles
	Extensions() []string

	// Extract converts raw file bytes into plain text
	Extract(data []byte) (string, error)
}

// Registry selects an extractor by filename extension.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register registers an extractor for all its extensions.
// Later registrations win on conflict.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range e.Extensions() {
		r.extractors[strings.ToLower(ext)] = e
	}
}

// Extract runs the extractor matching the filename's extension.
func (r *Registry) Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	e, ok := r.extractors[ext]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, ext)
	}

	text, err := e.Extract(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrFileRead, filename, err)
	}
	return text, nil
}

// Supported returns the registered extensions, sorted.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DefaultRegistry creates a registry with the built-in extractors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PDFExtractor{})
	r.Register(&TextExtractor{})
	return r
}
