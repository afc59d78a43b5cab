package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/abroadinquiry/advisor/internal/log"
)

// Search bounds. Limit is capped so a misconfigured caller cannot pull the
// whole table; threshold must leave room for at least one match.
const (
	MaxSearchLimit = 10
)

var (
	ErrEmptyDocument = errors.New("document has no content")
	ErrNoEmbedding   = errors.New("document has no embedding")
	ErrInvalidLimit  = errors.New("search limit out of range")
	ErrInvalidThresh = errors.New("search threshold out of range")
)

// Store reads and writes embedded documents in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a Store on the given connection pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Upsert writes documents, replacing any rows that share an ID. Re-ingesting
// a source therefore supersedes its previous chunks rather than duplicating
// them. All documents go in one batch round trip.
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	const query = `
		INSERT INTO documents (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content   = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata  = EXCLUDED.metadata`

	batch := &pgx.Batch{}
	for _, doc := range docs {
		if doc.Content == "" {
			return fmt.Errorf("document %q: %w", doc.ID, ErrEmptyDocument)
		}
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %q: %w", doc.ID, ErrNoEmbedding)
		}
		batch.Queue(query, doc.ID, doc.Content, pgvector.NewVector(doc.Embedding), doc.Metadata)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting document %q: %w", docs[i].ID, err)
		}
	}

	s.logger.Debug("documents upserted", "count", len(docs))
	return nil
}

// Search returns up to limit documents whose cosine similarity to the query
// vector is strictly above threshold, most similar first. Ties are broken by
// ID so results are stable.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]Result, error) {
	if limit < 1 || limit > MaxSearchLimit {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if threshold < 0 || threshold >= 1 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidThresh, threshold)
	}
	if len(embedding) == 0 {
		return nil, ErrNoEmbedding
	}

	const query = `
		SELECT id, content, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE 1 - (embedding <=> $1) > $2
		ORDER BY similarity DESC, id
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Document.ID, &r.Document.Content, &r.Document.Metadata,
			&r.Document.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}

	s.logger.Debug("knowledge search", "hits", len(results), "limit", limit, "threshold", threshold)
	return results, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// DeleteBySource removes every chunk whose metadata source matches the given
// value. Used when a source file is withdrawn from the knowledge base.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE metadata->>'source' = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("deleting documents for source %q: %w", source, err)
	}
	return tag.RowsAffected(), nil
}
