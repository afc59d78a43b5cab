// Package tools registers the model-callable tools. There is one: a
// semantic search over the knowledge base that the model invokes to ground
// its answers in indexed consultancy material.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/abroadinquiry/advisor/internal/knowledge"
	"github.com/abroadinquiry/advisor/internal/log"
)

// SearchKnowledgeBaseName is the Genkit tool name the model sees.
const SearchKnowledgeBaseName = "searchKnowledgeBase"

// Responses the model receives when retrieval produces nothing usable. They
// are informative text rather than errors so the model can keep answering.
const (
	NoResultsMessage   = "No relevant information found in the knowledge base."
	SearchErrorMessage = "Error searching the knowledge base."
)

// SearchInput is the model-facing input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query to find relevant information"`
}

// Searcher answers text queries against the knowledge base. Satisfied by
// knowledge.Searcher.
type Searcher interface {
	Search(ctx context.Context, query string) ([]knowledge.Result, error)
}

// Knowledge holds dependencies for the search tool handler.
type Knowledge struct {
	searcher Searcher
	logger   log.Logger
}

// NewKnowledge creates a Knowledge instance.
func NewKnowledge(searcher Searcher, logger log.Logger) (*Knowledge, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Knowledge{searcher: searcher, logger: logger}, nil
}

// Register defines the knowledge search tool with Genkit and returns it for
// use in generate calls.
func Register(g *genkit.Genkit, kt *Knowledge) (ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if kt == nil {
		return nil, fmt.Errorf("Knowledge is required")
	}

	tool := genkit.DefineTool(g, SearchKnowledgeBaseName,
		"Search the knowledge base for information about studying abroad, "+
			"universities, scholarships, visa requirements, and application "+
			"processes. Use this whenever the user asks a factual question "+
			"the answer might be indexed for.",
		kt.SearchKnowledgeBase)

	return tool, nil
}

// SearchKnowledgeBase handles one tool invocation. It never returns an
// error: failures and empty retrievals both come back as text, so a broken
// search degrades the answer instead of aborting the generation turn.
func (k *Knowledge) SearchKnowledgeBase(ctx *ai.ToolContext, input SearchInput) (string, error) {
	results, err := k.searcher.Search(ctx.Context, input.Query)
	if err != nil {
		k.logger.Error("knowledge base search failed", "error", err)
		return SearchErrorMessage, nil
	}
	if len(results) == 0 {
		return NoResultsMessage, nil
	}
	return FormatResults(results), nil
}

// FormatResults renders search hits as a numbered list, one block per hit,
// separated by blank lines.
func FormatResults(results []knowledge.Result) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, r.Document.Content)
	}
	return sb.String()
}
