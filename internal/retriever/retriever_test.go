package retriever

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/covebank/teller/internal/embedding"
	"github.com/covebank/teller/internal/models"
	"github.com/covebank/teller/internal/snapshot"
	"github.com/covebank/teller/internal/vector"
)

func buildSnapshot(t *testing.T, dir string, texts []string, embedder embedding.Embedder) {
	t.Helper()
	ix, err := vector.NewFlatIndex(embedder.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	var vectors [][]float32
	var metas []models.Chunk
	raw := make(map[string]string)
	for i, text := range texts {
		emb, err := embedder.Embed(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		id := string(rune('a' + i))
		vectors = append(vectors, emb)
		metas = append(metas, models.Chunk{ID: id, Source: "faq.pdf", ChunkIndex: i, TextPreview: text[:5]})
		raw[id] = text
	}
	if err := ix.Build(vectors); err != nil {
		t.Fatal(err)
	}
	if err := snapshot.Save(dir, &snapshot.Snapshot{Index: ix, Metas: metas, Raw: raw}); err != nil {
		t.Fatal(err)
	}
}

func TestNewWithoutSnapshot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), embedding.NewMockEmbedder(8))
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestNewDimensionMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshot")
	buildSnapshot(t, dir, []string{"card fees apply"}, embedding.NewMockEmbedder(8))
	if _, err := New(dir, embedding.NewMockEmbedder(16)); err == nil {
		t.Error("dimension mismatch should fail construction")
	}
}

func TestRetrieveReturnsFullText(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	dir := filepath.Join(t.TempDir(), "snapshot")
	texts := []string{
		"ATM withdrawal limit is $500 per day",
		"monthly maintenance fee is $3",
		"disputes are resolved within ten days",
	}
	buildSnapshot(t, dir, texts, embedder)

	r, err := New(dir, embedder)
	if err != nil {
		t.Fatal(err)
	}
	// The mock embedder is deterministic, so querying with an indexed text
	// must return that exact chunk first at distance ~0.
	got, err := r.Retrieve(context.Background(), texts[1], 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results", len(got))
	}
	if got[0].Text != texts[1] {
		t.Errorf("best match text = %q", got[0].Text)
	}
	if got[0].Distance > 1e-5 {
		t.Errorf("identical text distance = %f", got[0].Distance)
	}
	if got[0].Source != "faq.pdf" || got[0].ChunkIndex != 1 {
		t.Errorf("metadata = %+v", got[0])
	}
	if got[1].Distance < got[0].Distance {
		t.Error("results not ordered by distance")
	}
}

func TestRetrieveClampsK(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	dir := filepath.Join(t.TempDir(), "snapshot")
	buildSnapshot(t, dir, []string{"only one chunk"}, embedder)
	r, err := New(dir, embedder)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.Retrieve(context.Background(), "anything", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d results, want 1", len(got))
	}
}
