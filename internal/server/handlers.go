package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/covebank/teller/internal/models"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserText == "" {
		s.respondError(w, http.StatusBadRequest, "user_text is required")
		return
	}
	resp, err := s.chat.Handle(r.Context(), &req)
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	chunks := 0
	if s.corpus != nil {
		chunks = s.corpus.Size()
	}
	resp := map[string]interface{}{
		"chunks": chunks,
		"ready":  chunks > 0,
	}
	resp["config"] = map[string]interface{}{
		"embedding_provider":   s.config.Embedding.Provider,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"chunk_size":           s.config.Ingest.ChunkSize,
		"chunk_overlap":        s.config.Ingest.ChunkOverlap,
		"top_k":                s.config.Chat.TopK,
		"snapshot_dir":         s.config.Storage.SnapshotDir,
		"docs_dir":             s.config.Ingest.DocsDir,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
