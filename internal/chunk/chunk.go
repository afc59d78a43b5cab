// Package chunk splits raw document text into overlapping segments sized
// for embedding. Splitting happens only on whitespace boundaries so a word
// is never cut in half; consecutive segments share a configurable character
// overlap so context is not lost at segment edges.
package chunk

import (
	"fmt"
	"strings"
)

// Default segment parameters, matching the values the knowledge base was
// built with.
const (
	DefaultSize    = 500
	DefaultOverlap = 200
)

// Splitter produces overlapping text segments. It is stateless and safe for
// concurrent use; identical input and configuration always yield identical
// output.
type Splitter struct {
	size    int // maximum segment length in characters
	overlap int // target shared characters between consecutive segments
}

// New creates a Splitter. overlap must be non-negative and strictly smaller
// than size, otherwise the split cannot make progress.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d with size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split divides text into segments of at most the configured size, joined
// from whole words. Leading and trailing whitespace is trimmed first; empty
// or blank input yields nil. A single word longer than the size limit
// becomes its own segment rather than being cut.
func (s *Splitter) Split(text string) []string {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var cur []string

	for _, w := range words {
		if joinedLen(cur)+sepLen(cur)+len(w) > s.size && len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, " "))

			// Retain a tail of whole words as the overlap for the next
			// segment. Words are dropped from the front until the tail is
			// within the overlap budget and leaves room for w.
			for len(cur) > 0 && (joinedLen(cur) > s.overlap ||
				joinedLen(cur)+sepLen(cur)+len(w) > s.size) {
				cur = cur[1:]
			}
		}
		cur = append(cur, w)
	}

	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}

	return chunks
}

// joinedLen returns the length of words joined by single spaces.
func joinedLen(words []string) int {
	if len(words) == 0 {
		return 0
	}
	n := len(words) - 1
	for _, w := range words {
		n += len(w)
	}
	return n
}

// sepLen returns the length of the separator needed before appending one
// more word.
func sepLen(words []string) int {
	if len(words) == 0 {
		return 0
	}
	return 1
}
