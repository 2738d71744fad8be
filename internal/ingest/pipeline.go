// Package ingest builds the corpus snapshot from a folder of source
// documents: extract text, chunk, embed, and publish atomically.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/covebank/teller/internal/chunker"
	"github.com/covebank/teller/internal/embedding"
	"github.com/covebank/teller/internal/models"
	"github.com/covebank/teller/internal/snapshot"
	"github.com/covebank/teller/internal/vector"
)

// ErrEmptyCorpus is returned when no chunks result from any document; an
// all-empty index would make every later search ill-defined, so no snapshot
// is written.
var ErrEmptyCorpus = errors.New("ingest: no chunks produced from any document")

// TextExtractor extracts plain text from a document file. It is an external
// capability; extract.NewExtractor provides the default implementation.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// Failure records a document that could not be ingested. The pipeline skips
// it and continues; failures are reported in the Result, never silently
// dropped.
type Failure struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Result summarizes an ingestion run.
type Result struct {
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Pipeline drives chunking, embedding, and snapshot assembly.
type Pipeline struct {
	extractor    TextExtractor
	embedder     embedding.Embedder
	chunker      *chunker.Chunker
	snapshotDir  string
	previewChars int
	extensions   []string
	logger       *zap.Logger // optional; when set, logs per-document progress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for per-document progress and failure events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates an ingestion pipeline. chunkSize and chunkOverlap are in
// characters; overlap >= size is a configuration error.
func New(
	extractor TextExtractor,
	embedder embedding.Embedder,
	snapshotDir string,
	chunkSize, chunkOverlap, previewChars int,
	extensions []string,
	opts ...Option,
) (*Pipeline, error) {
	ch, err := chunker.New(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		extractor:    extractor,
		embedder:     embedder,
		chunker:      ch,
		snapshotDir:  snapshotDir,
		previewChars: previewChars,
		extensions:   extensions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Ingest enumerates documents in folder, builds a fresh snapshot, and
// publishes it atomically. A document that fails extraction is skipped and
// reported in the result; ErrEmptyCorpus is returned when zero chunks result
// across all documents, in which case nothing is written.
func (p *Pipeline) Ingest(ctx context.Context, folder string) (*Result, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("ingest: read folder: %w", err)
	}

	var (
		result  Result
		vectors [][]float32
		metas   []models.Chunk
		raw     = make(map[string]string)
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(folder, entry.Name())
		if !p.extensionAllowed(path) {
			continue
		}
		if p.logger != nil {
			p.logger.Debug("ingesting document", zap.String("path", path))
		}
		chunks, embs, err := p.processDocument(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			result.Failures = append(result.Failures, Failure{Path: path, Err: err.Error()})
			if p.logger != nil {
				p.logger.Warn("document skipped", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		for i := range chunks {
			raw[chunks[i].ID] = chunks[i].Text
			metas = append(metas, chunks[i])
			vectors = append(vectors, embs[i])
		}
		result.Documents++
		result.Chunks += len(chunks)
	}

	if len(metas) == 0 {
		return &result, ErrEmptyCorpus
	}

	ix, err := vector.NewFlatIndex(p.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := ix.Build(vectors); err != nil {
		return nil, fmt.Errorf("ingest: build index: %w", err)
	}
	if err := snapshot.Save(p.snapshotDir, &snapshot.Snapshot{Index: ix, Metas: metas, Raw: raw}); err != nil {
		return nil, err
	}
	if p.logger != nil {
		p.logger.Info("ingestion complete",
			zap.Int("documents", result.Documents),
			zap.Int("chunks", result.Chunks),
			zap.Int("failures", len(result.Failures)))
	}
	return &result, nil
}

// AddDocument appends a single document to an existing snapshot without
// re-embedding the rest of the corpus. Existing vector positions are
// preserved and the extended snapshot is republished atomically. When no
// snapshot exists yet the document becomes the whole corpus.
func (p *Pipeline) AddDocument(ctx context.Context, path string) (*Result, error) {
	chunks, embs, err := p.processDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &Result{}, ErrEmptyCorpus
	}

	snap, err := snapshot.Load(p.snapshotDir)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		ix, ixErr := vector.NewFlatIndex(p.embedder.Dimensions())
		if ixErr != nil {
			return nil, ixErr
		}
		snap = &snapshot.Snapshot{Index: ix, Raw: make(map[string]string)}
	} else if err != nil {
		return nil, err
	}

	if err := snap.Index.Append(embs); err != nil {
		return nil, fmt.Errorf("ingest: append vectors: %w", err)
	}
	for i := range chunks {
		snap.Raw[chunks[i].ID] = chunks[i].Text
		snap.Metas = append(snap.Metas, chunks[i])
	}
	if err := snapshot.Save(p.snapshotDir, snap); err != nil {
		return nil, err
	}
	return &Result{Documents: 1, Chunks: len(chunks)}, nil
}

// processDocument extracts, chunks, and embeds one document. Chunk IDs are
// fresh UUIDs, so they are unique across the whole corpus.
func (p *Pipeline) processDocument(ctx context.Context, path string) ([]models.Chunk, [][]float32, error) {
	text, err := p.extractor.Extract(path)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: %w", err)
	}
	pieces := p.chunker.Chunk(text)
	if len(pieces) == 0 {
		return nil, nil, nil
	}
	embs, err := p.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return nil, nil, fmt.Errorf("embed: %w", err)
	}
	source := filepath.Base(path)
	chunks := make([]models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.Chunk{
			ID:          uuid.New().String(),
			Source:      source,
			ChunkIndex:  i,
			TextPreview: preview(piece, p.previewChars),
			Text:        piece,
		}
	}
	return chunks, embs, nil
}

func (p *Pipeline) extensionAllowed(path string) bool {
	if len(p.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range p.extensions {
		if strings.EqualFold(strings.TrimPrefix(a, "."), strings.TrimPrefix(ext, ".")) {
			return true
		}
	}
	return false
}

func preview(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
