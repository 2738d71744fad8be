// Package embedding provides text embedding via an OpenAI-compatible API or
// a local ONNX model, with caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. For a fixed model identity
// the mapping from text to vector is deterministic; the dimension is constant
// for the lifetime of the embedder and governs the index built from it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
