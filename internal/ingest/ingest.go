// Package ingest loads source material into the knowledge base: it reads a
// file, splits it into overlapping chunks, embeds every chunk in one batch,
// and upserts the results. Document IDs are derived from the source path and
// chunk position, so re-ingesting a file replaces its previous chunks instead
// of accumulating duplicates.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abroadinquiry/advisor/internal/knowledge"
	"github.com/abroadinquiry/advisor/internal/log"
)

// maxFileSize bounds how much source material one ingest run accepts.
const maxFileSize = 10 << 20 // 10 MiB

// Chunker splits text into embedding-sized segments. Satisfied by
// chunk.Splitter.
type Chunker interface {
	Split(text string) []string
}

// BatchVectorizer embeds a batch of texts in one call. Satisfied by
// embed.Service.
type BatchVectorizer interface {
	Many(ctx context.Context, texts []string) ([][]float32, error)
}

// Upserter writes documents to the knowledge store. Satisfied by
// knowledge.Store.
type Upserter interface {
	Upsert(ctx context.Context, docs []knowledge.Document) error
}

// Result summarizes one ingest run.
type Result struct {
	Source      string
	ChunksAdded int
	Duration    time.Duration
}

// Ingestor runs the chunk-embed-store pipeline.
type Ingestor struct {
	chunker    Chunker
	vectorizer BatchVectorizer
	store      Upserter
	logger     log.Logger
}

// New creates an Ingestor.
func New(chunker Chunker, vectorizer BatchVectorizer, store Upserter, logger log.Logger) *Ingestor {
	return &Ingestor{
		chunker:    chunker,
		vectorizer: vectorizer,
		store:      store,
		logger:     logger,
	}
}

// IngestFile reads a file and ingests its content. The source recorded in
// document metadata is the file's absolute path.
func (ing *Ingestor) IngestFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", absPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", absPath)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%s is %d bytes, exceeds %d byte limit", absPath, info.Size(), maxFileSize)
	}

	content, err := os.ReadFile(absPath) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", absPath, err)
	}

	return ing.IngestText(ctx, absPath, string(content))
}

// IngestText ingests raw text under the given source identifier.
func (ing *Ingestor) IngestText(ctx context.Context, source, text string) (*Result, error) {
	start := time.Now()

	chunks := ing.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("source %s has no content to ingest", source)
	}

	vectors, err := ing.vectorizer.Many(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	sourceHash := hashSource(source)
	indexedAt := time.Now().UTC().Format(time.RFC3339)

	docs := make([]knowledge.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = knowledge.Document{
			ID:        fmt.Sprintf("%s:%d", sourceHash, i),
			Content:   c,
			Embedding: vectors[i],
			Metadata: map[string]any{
				"source":      source,
				"chunk_index": i,
				"indexed_at":  indexedAt,
			},
		}
	}

	if err := ing.store.Upsert(ctx, docs); err != nil {
		return nil, fmt.Errorf("storing %d chunks: %w", len(docs), err)
	}

	result := &Result{
		Source:      source,
		ChunksAdded: len(docs),
		Duration:    time.Since(start),
	}
	ing.logger.Info("source ingested",
		"source", source, "chunks", result.ChunksAdded, "duration", result.Duration)
	return result, nil
}

// hashSource derives a stable document ID prefix from a source identifier.
func hashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:16]
}
