package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/abroadinquiry/advisor/internal/knowledge"
	"github.com/abroadinquiry/advisor/internal/log"
)

type stubSearcher struct {
	results []knowledge.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]knowledge.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func newToolContext() *ai.ToolContext {
	return &ai.ToolContext{Context: context.Background()}
}

func TestNewKnowledge(t *testing.T) {
	if _, err := NewKnowledge(nil, log.NewNop()); err == nil {
		t.Error("NewKnowledge(nil searcher) should fail")
	}
	if _, err := NewKnowledge(&stubSearcher{}, nil); err == nil {
		t.Error("NewKnowledge(nil logger) should fail")
	}
	if _, err := NewKnowledge(&stubSearcher{}, log.NewNop()); err != nil {
		t.Errorf("NewKnowledge: %v", err)
	}
}

func TestSearchKnowledgeBaseFormatsHits(t *testing.T) {
	searcher := &stubSearcher{results: []knowledge.Result{
		{Document: knowledge.Document{Content: "IELTS 6.5 is required for most programs."}, Similarity: 0.93},
		{Document: knowledge.Document{Content: "Applications open in September."}, Similarity: 0.81},
	}}
	kt, err := NewKnowledge(searcher, log.NewNop())
	if err != nil {
		t.Fatalf("NewKnowledge: %v", err)
	}

	out, err := kt.SearchKnowledgeBase(newToolContext(), SearchInput{Query: "english requirements"})
	if err != nil {
		t.Fatalf("SearchKnowledgeBase: %v", err)
	}

	want := "[1] IELTS 6.5 is required for most programs.\n\n[2] Applications open in September."
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if searcher.queries[0] != "english requirements" {
		t.Errorf("searcher received %q", searcher.queries[0])
	}
}

func TestSearchKnowledgeBaseNoResults(t *testing.T) {
	kt, err := NewKnowledge(&stubSearcher{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewKnowledge: %v", err)
	}

	out, err := kt.SearchKnowledgeBase(newToolContext(), SearchInput{Query: "unknown topic"})
	if err != nil {
		t.Fatalf("SearchKnowledgeBase: %v", err)
	}
	if out != NoResultsMessage {
		t.Errorf("output = %q, want %q", out, NoResultsMessage)
	}
}

func TestSearchKnowledgeBaseErrorBecomesText(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("database unreachable")}
	kt, err := NewKnowledge(searcher, log.NewNop())
	if err != nil {
		t.Fatalf("NewKnowledge: %v", err)
	}

	out, err := kt.SearchKnowledgeBase(newToolContext(), SearchInput{Query: "anything"})
	if err != nil {
		t.Fatalf("SearchKnowledgeBase must not return an error, got %v", err)
	}
	if out != SearchErrorMessage {
		t.Errorf("output = %q, want %q", out, SearchErrorMessage)
	}
}

func TestFormatResultsSingle(t *testing.T) {
	out := FormatResults([]knowledge.Result{
		{Document: knowledge.Document{Content: "single hit"}},
	})
	if out != "[1] single hit" {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "\n") {
		t.Error("single result should have no separator")
	}
}
