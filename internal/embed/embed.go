// Package embed turns text into embedding vectors through a Genkit embedder.
// Input text is cleaned before it reaches the provider: newlines are
// collapsed to spaces and surrounding whitespace is trimmed, so the same
// content embeds to the same vector regardless of line wrapping.
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"
)

// ErrProvider marks failures that came from the embedding provider rather
// than from local input handling. Callers can match it with errors.Is.
var ErrProvider = errors.New("embedding provider error")

// providerTimeout bounds a single provider round trip.
const providerTimeout = 30 * time.Second

// VectorDimension must match the documents.embedding column. Gemini
// embedding models emit larger vectors by default and truncate to this size
// when OutputDimensionality is requested (Matryoshka Representation
// Learning).
const VectorDimension int32 = 768

// Embedder is the minimal surface this package needs from a Genkit embedder.
// ai.Embedder satisfies it.
type Embedder interface {
	Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error)
}

// Service produces embedding vectors for queries and documents.
type Service struct {
	embedder Embedder
}

// NewService creates a Service backed by the given embedder.
func NewService(embedder Embedder) *Service {
	return &Service{embedder: embedder}
}

// One embeds a single text and returns its vector.
func (s *Service) One(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Many(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Many embeds a batch of texts in one provider call. The returned slice is
// index-aligned with the input: vectors[i] is the embedding of texts[i].
func (s *Service) Many(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(Clean(t), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrProvider, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrProvider, i)
		}
		vectors[i] = e.Embedding
	}
	return vectors, nil
}

// Clean normalizes text before embedding: newlines become single spaces and
// surrounding whitespace is removed.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}
