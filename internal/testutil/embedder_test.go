package testutil

import (
	"context"
	"math"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestDeterministicVectorStable(t *testing.T) {
	a := DeterministicVector("tuition fees", 768)
	b := DeterministicVector("tuition fees", 768)

	if len(a) != 768 {
		t.Fatalf("len = %d, want 768", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at index %d: %v != %v", i, a[i], b[i])
		}
	}

	other := DeterministicVector("scholarships", 768)
	same := true
	for i := range a {
		if a[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different content produced identical vectors")
	}
}

func TestDeterministicVectorUnitNorm(t *testing.T) {
	vec := DeterministicVector("intake deadlines", 64)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", math.Sqrt(norm))
	}
}

func TestMockEmbedderPinnedVector(t *testing.T) {
	e := NewMockEmbedder(3)
	e.SetVector("pinned", []float32{1, 0, 0})

	resp, err := e.Embed(context.Background(), &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText("pinned", nil),
			ai.DocumentFromText("derived", nil),
		},
	})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(resp.Embeddings) != 2 {
		t.Fatalf("got %d embeddings, want 2", len(resp.Embeddings))
	}

	got := resp.Embeddings[0].Embedding
	if got[0] != 1 || got[1] != 0 || got[2] != 0 {
		t.Errorf("pinned vector = %v, want [1 0 0]", got)
	}
	if len(resp.Embeddings[1].Embedding) != 3 {
		t.Errorf("derived vector dim = %d, want 3", len(resp.Embeddings[1].Embedding))
	}
}
