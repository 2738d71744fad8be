package main

import (
	"context"
	"sync"

	"github.com/covebank/teller/internal/models"
	"github.com/covebank/teller/internal/retriever"
)

// corpusHandle wraps the retriever behind a lock so the watcher can swap in
// a freshly loaded snapshot while the server keeps serving. A nil retriever
// means no snapshot has been ingested yet.
type corpusHandle struct {
	mu sync.RWMutex
	r  *retriever.Retriever
}

func (h *corpusHandle) set(r *retriever.Retriever) {
	h.mu.Lock()
	h.r = r
	h.mu.Unlock()
}

func (h *corpusHandle) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	h.mu.RLock()
	r := h.r
	h.mu.RUnlock()
	if r == nil {
		return nil, retriever.ErrNotInitialized
	}
	return r.Retrieve(ctx, query, k)
}

func (h *corpusHandle) Size() int {
	h.mu.RLock()
	r := h.r
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	return r.Size()
}
