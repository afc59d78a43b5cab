package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/abroadinquiry/advisor/internal/log"
)

// Vectorizer turns a query into an embedding vector. Satisfied by
// embed.Service.
type Vectorizer interface {
	One(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher is the store surface Searcher depends on. Satisfied by
// Store.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]Result, error)
}

// Searcher answers text queries against the knowledge base: it embeds the
// query and ranks stored chunks by cosine similarity.
type Searcher struct {
	vectorizer Vectorizer
	store      VectorSearcher
	limit      int
	threshold  float64
	logger     log.Logger
}

// NewSearcher wires a Searcher with fixed retrieval parameters.
func NewSearcher(v Vectorizer, store VectorSearcher, limit int, threshold float64, logger log.Logger) *Searcher {
	return &Searcher{
		vectorizer: v,
		store:      store,
		limit:      limit,
		threshold:  threshold,
		logger:     logger,
	}
}

// Search embeds query and returns the closest stored chunks. A blank query
// yields no results without touching the embedding provider.
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	vec, err := s.vectorizer.One(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.store.Search(ctx, vec, s.limit, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}

	s.logger.Debug("query answered", "query_len", len(query), "hits", len(results))
	return results, nil
}
