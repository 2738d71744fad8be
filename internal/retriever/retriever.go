// Package retriever answers nearest-neighbor queries over a persisted corpus snapshot.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/covebank/teller/internal/embedding"
	"github.com/covebank/teller/internal/models"
	"github.com/covebank/teller/internal/snapshot"
)

// ErrNotInitialized is returned by New when no corpus snapshot exists;
// retrieval is unusable until ingestion has run.
var ErrNotInitialized = errors.New("retriever: no corpus snapshot; run ingestion first")

// Retriever embeds queries and returns the closest chunks from the snapshot
// loaded at construction. The snapshot is read once and shared read-only, so
// a Retriever is safe for concurrent use.
type Retriever struct {
	embedder embedding.Embedder
	snap     *snapshot.Snapshot
}

// New loads the snapshot at snapshotDir exactly once. The embedder must be
// the same model identity used at ingestion: a dimension mismatch between
// embedder and index is a fatal configuration error.
func New(snapshotDir string, embedder embedding.Embedder) (*Retriever, error) {
	snap, err := snapshot.Load(snapshotDir)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	if d := embedder.Dimensions(); d != 0 && d != snap.Index.Dimensions() {
		return nil, fmt.Errorf("retriever: embedder dimension %d != index dimension %d", d, snap.Index.Dimensions())
	}
	return &Retriever{embedder: embedder, snap: snap}, nil
}

// Retrieve returns the top-k chunks nearest to query, best match first, each
// with its full text from the raw-text map.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}
	hits, err := r.snap.Index.Search(emb, k)
	if err != nil {
		return nil, err
	}
	out := make([]models.RetrievedChunk, len(hits))
	for i, h := range hits {
		meta := r.snap.Metas[h.Position]
		text, ok := r.snap.Raw[meta.ID]
		if !ok {
			text = meta.TextPreview
		}
		out[i] = models.RetrievedChunk{
			ID:         meta.ID,
			Source:     meta.Source,
			ChunkIndex: meta.ChunkIndex,
			Text:       text,
			Distance:   h.Distance,
		}
	}
	return out, nil
}

// Size returns the number of chunks in the loaded snapshot.
func (r *Retriever) Size() int {
	return r.snap.Index.Size()
}
