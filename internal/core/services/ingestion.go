package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/dossier-core/internal/chunker"
	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driving"
	"github.com/custodia-labs/dossier-core/internal/extract"
	"github.com/custodia-labs/dossier-core/internal/runtime"
)

// Ensure ingestionService implements IngestionService
var _ driving.IngestionService = (*ingestionService)(nil)

const (
	ingestLockTTL      = 5 * time.Minute
	embedBatchSize     = 100
	maxUploadSliceSize = 8 << 20 // decoded bytes per slice
)

// assembly tracks one in-flight chunked upload. Its mutex serializes
// the staging writes for this entry only, so uploads of different
// files proceed independently.
type assembly struct {
	mu        sync.Mutex
	active    bool
	nextIndex int
	size      int64
}

// IngestionConfig configures the ingestion service.
type IngestionConfig struct {
	// UploadDir is where assembled uploads are staged
	UploadDir string
}

// ingestionService accepts chunked uploads and runs the
// extract -> chunk -> embed -> index pipeline.
type ingestionService struct {
	extractors *extract.Registry
	chunks     *chunker.Chunker
	services   *runtime.Services
	index      driven.VectorIndex
	documents  driven.DocumentStore
	chunkStore driven.ChunkStore
	queue      driven.TaskQueue
	lock       driven.DistributedLock
	uploadDir  string
	logger     *slog.Logger

	mu         sync.Mutex
	assemblies map[string]*assembly
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	extractors *extract.Registry,
	chunks *chunker.Chunker,
	services *runtime.Services,
	index driven.VectorIndex,
	documents driven.DocumentStore,
	chunkStore driven.ChunkStore,
	queue driven.TaskQueue,
	lock driven.DistributedLock,
	cfg IngestionConfig,
	logger *slog.Logger,
) driving.IngestionService {
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "dossier-uploads")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ingestionService{
		extractors: extractors,
		chunks:     chunks,
		services:   services,
		index:      index,
		documents:  documents,
		chunkStore: chunkStore,
		queue:      queue,
		lock:       lock,
		uploadDir:  cfg.UploadDir,
		logger:     logger,
		assemblies: make(map[string]*assembly),
	}
}

// UploadChunk accepts one slice of a chunked upload. Slices must arrive
// strictly in order; slice 0 starts a fresh assembly, the final slice
// registers the document and queues ingestion. A rejected slice keeps
// the assembly intact so the caller can resume at the expected index.
func (s *ingestionService) UploadChunk(ctx context.Context, slice domain.UploadSlice) (*domain.UploadAck, error) {
	if err := slice.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid upload slice", err)
	}

	data, err := base64.StdEncoding.DecodeString(slice.ContentBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not valid base64", domain.ErrInvalidInput)
	}
	if len(data) > maxUploadSliceSize {
		return nil, fmt.Errorf("%w: slice exceeds %d bytes", domain.ErrInvalidInput, maxUploadSliceSize)
	}
	if len(data) == 0 && !slice.Final {
		return nil, fmt.Errorf("%w: empty slice", domain.ErrInvalidInput)
	}

	key := slice.TechnologyID + "/" + slice.Filename
	path := filepath.Join(s.uploadDir, slice.TechnologyID, slice.Filename)

	// s.mu only guards the assemblies map; the staging writes happen
	// under the entry's own mutex.
	s.mu.Lock()
	asm := s.assemblies[key]
	if asm == nil {
		if slice.ChunkIndex != 0 {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: no upload in progress for %s, expected chunk_index 0", domain.ErrInvalidInput, slice.Filename)
		}
		asm = &assembly{}
		s.assemblies[key] = asm
	}
	s.mu.Unlock()

	asm.mu.Lock()
	defer asm.mu.Unlock()

	switch {
	case slice.ChunkIndex == 0:
		// Slice 0 always starts over, superseding any partial assembly
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write upload: %w", err)
		}
		asm.active = true
		asm.nextIndex = 1
		asm.size = int64(len(data))
		// The entry may have completed and been dropped while we
		// waited for its lock; point the map back at this assembly.
		s.mu.Lock()
		s.assemblies[key] = asm
		s.mu.Unlock()

	case !asm.active:
		return nil, fmt.Errorf("%w: no upload in progress for %s, expected chunk_index 0", domain.ErrInvalidInput, slice.Filename)

	case slice.ChunkIndex != asm.nextIndex:
		return nil, fmt.Errorf("%w: expected chunk_index %d, got %d", domain.ErrInvalidInput, asm.nextIndex, slice.ChunkIndex)

	default:
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return nil, fmt.Errorf("append upload: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("close upload: %w", err)
		}
		asm.nextIndex++
		asm.size += int64(len(data))
	}

	ack := &domain.UploadAck{
		TechnologyID:  slice.TechnologyID,
		Filename:      slice.Filename,
		ReceivedBytes: asm.size,
		NextIndex:     asm.nextIndex,
	}

	if !slice.Final {
		return ack, nil
	}

	// Final slice: hand the assembled file to the pipeline
	asm.active = false
	s.mu.Lock()
	delete(s.assemblies, key)
	s.mu.Unlock()

	generation, err := s.documents.RegisterUpload(ctx, slice.TechnologyID, slice.Filename, asm.size)
	if err != nil {
		return nil, fmt.Errorf("register upload: %w", err)
	}

	task := domain.NewIngestTask(slice.TechnologyID, slice.Filename, path, generation)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		_ = s.documents.SetStatus(ctx, slice.TechnologyID, slice.Filename, domain.DocumentStatusError, "failed to queue ingestion")
		return nil, fmt.Errorf("enqueue ingestion: %w", err)
	}

	s.logger.Info("upload complete",
		"technology_id", slice.TechnologyID,
		"filename", slice.Filename,
		"bytes", asm.size,
		"generation", generation)

	ack.Complete = true
	return ack, nil
}

// CheckStatus aggregates the processing state of a technology,
// including uploads still being assembled.
func (s *ingestionService) CheckStatus(ctx context.Context, technologyID string) (*domain.TechnologyStatus, error) {
	if technologyID == "" {
		return nil, fmt.Errorf("%w: technology_id is required", domain.ErrInvalidInput)
	}

	// Snapshot the matching entries first: the per-entry mutex is
	// never taken while holding s.mu.
	prefix := technologyID + "/"
	s.mu.Lock()
	var entries []*assembly
	for key, asm := range s.assemblies {
		if strings.HasPrefix(key, prefix) {
			entries = append(entries, asm)
		}
	}
	s.mu.Unlock()

	uploading := false
	for _, asm := range entries {
		asm.mu.Lock()
		active := asm.active
		asm.mu.Unlock()
		if active {
			uploading = true
			break
		}
	}

	if uploading {
		return &domain.TechnologyStatus{TechnologyID: technologyID, Status: domain.DocumentStatusUploading}, nil
	}

	docs, err := s.documents.ListByTechnology(ctx, technologyID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	st := domain.AggregateStatus(technologyID, docs)
	return &st, nil
}

// ProcessTask runs one queued task. Called by the worker.
func (s *ingestionService) ProcessTask(ctx context.Context, task *domain.Task) error {
	switch task.Type {
	case domain.TaskTypeIngestDocument:
		return s.processIngest(ctx, task)
	case domain.TaskTypeRemoveDocument:
		return s.processRemove(ctx, task)
	default:
		return fmt.Errorf("%w: unknown task type %s", domain.ErrInvalidInput, task.Type)
	}
}

// processIngest runs the full pipeline for one assembled upload under
// the per-file ingest lock. A run superseded by a newer upload of the
// same file is abandoned without committing.
func (s *ingestionService) processIngest(ctx context.Context, task *domain.Task) error {
	lockName := fmt.Sprintf("ingest:%s:%s", task.TechnologyID, task.Filename())
	acquired, err := s.lock.Acquire(ctx, lockName, ingestLockTTL)
	if err != nil {
		return fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("ingest lock held for %s", lockName)
	}
	defer func() { _ = s.lock.Release(context.WithoutCancel(ctx), lockName) }()

	if superseded, err := s.isSuperseded(ctx, task); err != nil || superseded {
		if superseded {
			s.logger.Info("ingestion superseded, abandoning",
				"technology_id", task.TechnologyID, "filename", task.Filename(), "generation", task.Generation())
			return nil
		}
		return err
	}

	chunks, err := s.buildChunks(ctx, task)
	if err != nil {
		_ = s.documents.SetStatus(ctx, task.TechnologyID, task.Filename(), domain.DocumentStatusError, err.Error())
		return err
	}

	// Re-check under the lock before committing: a newer upload may
	// have landed while we were extracting and embedding
	if superseded, err := s.isSuperseded(ctx, task); err != nil || superseded {
		if superseded {
			s.logger.Info("ingestion superseded before commit",
				"technology_id", task.TechnologyID, "filename", task.Filename(), "generation", task.Generation())
			return nil
		}
		return err
	}

	if err := s.commit(ctx, task, chunks); err != nil {
		_ = s.documents.SetStatus(ctx, task.TechnologyID, task.Filename(), domain.DocumentStatusError, err.Error())
		return err
	}

	_ = os.Remove(task.Path())
	s.logger.Info("document ingested",
		"technology_id", task.TechnologyID,
		"filename", task.Filename(),
		"chunks", len(chunks))
	return nil
}

func (s *ingestionService) isSuperseded(ctx context.Context, task *domain.Task) (bool, error) {
	doc, err := s.documents.Get(ctx, task.TechnologyID, task.Filename())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Document removed mid-flight: nothing to commit to
			return true, nil
		}
		return false, fmt.Errorf("check generation: %w", err)
	}
	return doc.Generation != task.Generation(), nil
}

// buildChunks extracts, chunks and embeds the uploaded file.
func (s *ingestionService) buildChunks(ctx context.Context, task *domain.Task) ([]*domain.Chunk, error) {
	data, err := os.ReadFile(task.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFileRead, task.Filename(), err)
	}

	text, err := s.extractors.Extract(task.Filename(), data)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunks.Chunk(task.TechnologyID, task.Filename(), text)
	if err != nil {
		return nil, err
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding service not configured", domain.ErrServiceUnavailable)
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Content
		}
		embeddings, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("embed chunks: got %d embeddings for %d texts", len(embeddings), len(texts))
		}
		for i := range embeddings {
			chunks[start+i].Embedding = embeddings[i]
		}
	}
	return chunks, nil
}

// commit replaces the file's chunks in the vector index and the
// registry, then marks the document ready.
func (s *ingestionService) commit(ctx context.Context, task *domain.Task, chunks []*domain.Chunk) error {
	collection := domain.CollectionForTechnology(task.TechnologyID)
	if err := s.index.EnsureCollection(ctx, collection); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := s.index.DeleteByFilename(ctx, collection, task.Filename()); err != nil {
		return fmt.Errorf("delete stale vectors: %w", err)
	}

	entries := make([]driven.VectorEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = driven.VectorEntry{
			ID:        c.ID,
			Embedding: c.Embedding,
			Document:  c.Content,
			Metadata: map[string]string{
				domain.MetaSource:     c.Filename,
				domain.MetaSection:    c.Section,
				domain.MetaChunkIndex: strconv.Itoa(c.Index),
				domain.MetaTokenCount: strconv.Itoa(c.TokenCount),
			},
		}
	}
	if err := s.index.Add(ctx, collection, entries); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}

	if err := s.chunkStore.ReplaceForFile(ctx, task.TechnologyID, task.Filename(), chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	if err := s.documents.SetChunkCount(ctx, task.TechnologyID, task.Filename(), len(chunks)); err != nil {
		return fmt.Errorf("update chunk count: %w", err)
	}
	if err := s.documents.SetStatus(ctx, task.TechnologyID, task.Filename(), domain.DocumentStatusReady, ""); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}
	return nil
}

// processRemove deletes a file from the index and registries under the
// same lock the ingest pipeline uses.
func (s *ingestionService) processRemove(ctx context.Context, task *domain.Task) error {
	lockName := fmt.Sprintf("ingest:%s:%s", task.TechnologyID, task.Filename())
	acquired, err := s.lock.Acquire(ctx, lockName, ingestLockTTL)
	if err != nil {
		return fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("ingest lock held for %s", lockName)
	}
	defer func() { _ = s.lock.Release(context.WithoutCancel(ctx), lockName) }()

	collection := domain.CollectionForTechnology(task.TechnologyID)
	if err := s.index.DeleteByFilename(ctx, collection, task.Filename()); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := s.chunkStore.DeleteByFile(ctx, task.TechnologyID, task.Filename()); err != nil {
		return fmt.Errorf("delete chunk rows: %w", err)
	}
	if err := s.documents.Delete(ctx, task.TechnologyID, task.Filename()); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.logger.Info("document removed", "technology_id", task.TechnologyID, "filename", task.Filename())
	return nil
}
