package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abroadinquiry/advisor/internal/chunk"
	"github.com/abroadinquiry/advisor/internal/knowledge"
	"github.com/abroadinquiry/advisor/internal/log"
)

type fakeVectorizer struct {
	err  error
	seen [][]string
}

func (f *fakeVectorizer) Many(_ context.Context, texts []string) ([][]float32, error) {
	f.seen = append(f.seen, texts)
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(i), 1}
	}
	return vecs, nil
}

type fakeStore struct {
	err  error
	docs []knowledge.Document
}

func (f *fakeStore) Upsert(_ context.Context, docs []knowledge.Document) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, docs...)
	return nil
}

func newTestIngestor(t *testing.T, v BatchVectorizer, s Upserter) *Ingestor {
	t.Helper()
	splitter, err := chunk.New(50, 10)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return New(splitter, v, s, log.NewNop())
}

func TestIngestText(t *testing.T) {
	vec := &fakeVectorizer{}
	store := &fakeStore{}
	ing := newTestIngestor(t, vec, store)

	text := strings.Repeat("study abroad advising content ", 10)
	result, err := ing.IngestText(context.Background(), "handbook.txt", text)
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}

	if result.ChunksAdded < 2 {
		t.Fatalf("ChunksAdded = %d, want multiple chunks", result.ChunksAdded)
	}
	if result.ChunksAdded != len(store.docs) {
		t.Errorf("ChunksAdded = %d but store received %d docs", result.ChunksAdded, len(store.docs))
	}
	if len(vec.seen) != 1 {
		t.Errorf("vectorizer called %d times, want one batch", len(vec.seen))
	}

	for i, doc := range store.docs {
		wantSuffix := ":" + string(rune('0'+i))
		if !strings.HasSuffix(doc.ID, wantSuffix) {
			t.Errorf("doc %d ID = %q, want suffix %q", i, doc.ID, wantSuffix)
		}
		if doc.Metadata["source"] != "handbook.txt" {
			t.Errorf("doc %d source = %v, want handbook.txt", i, doc.Metadata["source"])
		}
		if doc.Metadata["chunk_index"] != i {
			t.Errorf("doc %d chunk_index = %v, want %d", i, doc.Metadata["chunk_index"], i)
		}
	}
}

func TestIngestTextDeterministicIDs(t *testing.T) {
	storeA := &fakeStore{}
	ingA := newTestIngestor(t, &fakeVectorizer{}, storeA)
	storeB := &fakeStore{}
	ingB := newTestIngestor(t, &fakeVectorizer{}, storeB)

	text := "advising hours are monday to friday nine to five"
	if _, err := ingA.IngestText(context.Background(), "hours.txt", text); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := ingB.IngestText(context.Background(), "hours.txt", text); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if storeA.docs[0].ID != storeB.docs[0].ID {
		t.Errorf("IDs differ for identical source: %q vs %q", storeA.docs[0].ID, storeB.docs[0].ID)
	}
}

func TestIngestTextEmpty(t *testing.T) {
	ing := newTestIngestor(t, &fakeVectorizer{}, &fakeStore{})
	if _, err := ing.IngestText(context.Background(), "empty.txt", "   \n  "); err == nil {
		t.Error("IngestText with blank content should fail")
	}
}

func TestIngestTextEmbedFailure(t *testing.T) {
	wantErr := errors.New("provider unavailable")
	store := &fakeStore{}
	ing := newTestIngestor(t, &fakeVectorizer{err: wantErr}, store)

	_, err := ing.IngestText(context.Background(), "a.txt", "some content")
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
	if len(store.docs) != 0 {
		t.Error("nothing should be stored when embedding fails")
	}
}

func TestIngestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faq.txt")
	if err := os.WriteFile(path, []byte("frequently asked questions about admission"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	store := &fakeStore{}
	ing := newTestIngestor(t, &fakeVectorizer{}, store)

	result, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if result.ChunksAdded == 0 {
		t.Error("ChunksAdded = 0, want at least one chunk")
	}
	if !filepath.IsAbs(result.Source) {
		t.Errorf("Source = %q, want absolute path", result.Source)
	}
}

func TestIngestFileMissing(t *testing.T) {
	ing := newTestIngestor(t, &fakeVectorizer{}, &fakeStore{})
	if _, err := ing.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("IngestFile on missing path should fail")
	}
}

func TestIngestFileDirectory(t *testing.T) {
	ing := newTestIngestor(t, &fakeVectorizer{}, &fakeStore{})
	if _, err := ing.IngestFile(context.Background(), t.TempDir()); err == nil {
		t.Error("IngestFile on a directory should fail")
	}
}
