// Package knowledge persists embedded document chunks in PostgreSQL with
// pgvector and retrieves them by cosine similarity.
package knowledge

import "time"

// Document is one embedded chunk of source material.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]any
	CreatedAt time.Time
}

// Result is a search hit: a stored document with its similarity to the
// query vector. Similarity is cosine, in [0, 1], higher is closer.
type Result struct {
	Document   Document
	Similarity float64
}
