// Package models defines core data structures for chunks, chat requests, and answers.
package models

// Chunk is the atomic retrieval unit: a bounded window of an ingested document.
// The ID is a UUID assigned at ingestion time and is stable for the lifetime
// of the corpus snapshot it belongs to.
type Chunk struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunk_index"`
	TextPreview string `json:"text_preview"`
	// Text is the full chunk content. It is persisted in the raw-text map,
	// not in the metadata list, so it is empty on metadata-only loads.
	Text string `json:"-"`
}

// RetrievedChunk is a chunk returned by retrieval, with its full text and
// the distance to the query embedding (lower is closer).
type RetrievedChunk struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

// Citation points from a synthesized answer back to the chunk that grounded it.
type Citation struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
}
