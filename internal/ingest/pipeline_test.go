package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/covebank/teller/internal/embedding"
	"github.com/covebank/teller/internal/snapshot"
)

// failingExtractor fails for paths containing "bad" and reads everything
// else as plain text.
type failingExtractor struct{}

func (failingExtractor) Extract(path string) (string, error) {
	if strings.Contains(path, "bad") {
		return "", fmt.Errorf("corrupt file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func newTestPipeline(t *testing.T, snapDir string) *Pipeline {
	t.Helper()
	p, err := New(failingExtractor{}, embedding.NewMockEmbedder(8), snapDir, 50, 10, 20, []string{".txt"})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestIngestBuildsSnapshot(t *testing.T) {
	docs := t.TempDir()
	writeDoc(t, docs, "limits.txt", strings.Repeat("ATM withdrawal limit is $500 per day. ", 5))
	writeDoc(t, docs, "fees.txt", strings.Repeat("Monthly card fee is $3. ", 5))
	writeDoc(t, docs, "ignored.bin", "binary")

	snapDir := filepath.Join(t.TempDir(), "snapshot")
	p := newTestPipeline(t, snapDir)
	res, err := p.Ingest(context.Background(), docs)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Documents != 2 {
		t.Errorf("documents = %d, want 2", res.Documents)
	}
	if res.Chunks == 0 {
		t.Fatal("expected chunks")
	}

	snap, err := snapshot.Load(snapDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Index.Size() != res.Chunks || len(snap.Metas) != res.Chunks {
		t.Errorf("index %d / metas %d / reported %d diverge", snap.Index.Size(), len(snap.Metas), res.Chunks)
	}
	seen := make(map[string]bool)
	for _, m := range snap.Metas {
		if seen[m.ID] {
			t.Errorf("duplicate chunk id %s", m.ID)
		}
		seen[m.ID] = true
		if snap.Raw[m.ID] == "" {
			t.Errorf("chunk %s has no raw text", m.ID)
		}
	}
}

func TestIngestSkipsFailingDocumentAndContinues(t *testing.T) {
	docs := t.TempDir()
	writeDoc(t, docs, "bad.txt", "whatever")
	writeDoc(t, docs, "good.txt", strings.Repeat("Disputes are resolved within 10 days. ", 5))

	snapDir := filepath.Join(t.TempDir(), "snapshot")
	p := newTestPipeline(t, snapDir)
	res, err := p.Ingest(context.Background(), docs)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Documents != 1 {
		t.Errorf("documents = %d, want 1", res.Documents)
	}
	if len(res.Failures) != 1 || !strings.Contains(res.Failures[0].Path, "bad.txt") {
		t.Errorf("failures = %+v", res.Failures)
	}
}

func TestIngestEmptyCorpus(t *testing.T) {
	docs := t.TempDir()
	snapDir := filepath.Join(t.TempDir(), "snapshot")
	p := newTestPipeline(t, snapDir)
	_, err := p.Ingest(context.Background(), docs)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if _, err := snapshot.Load(snapDir); !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Error("empty corpus must not write a snapshot")
	}
}

func TestIngestRejectsBadChunkParams(t *testing.T) {
	_, err := New(failingExtractor{}, embedding.NewMockEmbedder(8), t.TempDir(), 10, 10, 20, nil)
	if err == nil {
		t.Error("overlap >= size should fail")
	}
}

func TestAddDocumentAppends(t *testing.T) {
	docs := t.TempDir()
	writeDoc(t, docs, "a.txt", strings.Repeat("Transfers settle next business day. ", 5))
	snapDir := filepath.Join(t.TempDir(), "snapshot")
	p := newTestPipeline(t, snapDir)
	if _, err := p.Ingest(context.Background(), docs); err != nil {
		t.Fatal(err)
	}
	before, _ := snapshot.Load(snapDir)

	writeDoc(t, docs, "b.txt", strings.Repeat("Chargebacks take 30 days. ", 5))
	res, err := p.AddDocument(context.Background(), filepath.Join(docs, "b.txt"))
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	after, err := snapshot.Load(snapDir)
	if err != nil {
		t.Fatal(err)
	}
	if after.Index.Size() != before.Index.Size()+res.Chunks {
		t.Errorf("index grew %d -> %d, want +%d", before.Index.Size(), after.Index.Size(), res.Chunks)
	}
	// Existing positions preserved.
	for i := range before.Metas {
		if after.Metas[i].ID != before.Metas[i].ID {
			t.Fatalf("position %d changed after append", i)
		}
	}
}

func TestIngestCancellation(t *testing.T) {
	docs := t.TempDir()
	writeDoc(t, docs, "a.txt", "text")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPipeline(t, filepath.Join(t.TempDir(), "snapshot"))
	if _, err := p.Ingest(ctx, docs); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
