package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/covebank/teller/internal/config"
	"github.com/covebank/teller/internal/models"
)

type stubChat struct {
	resp *models.ChatResponse
	err  error
	got  *models.ChatRequest
}

func (s *stubChat) Handle(_ context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	s.got = req
	return s.resp, s.err
}

type stubCorpus int

func (s stubCorpus) Size() int { return int(s) }

func newTestServer(t *testing.T, chat ChatHandler, corpus Corpus) *httptest.Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	srv := httptest.NewServer(NewServer(chat, corpus, cfg, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleChat(t *testing.T) {
	chat := &stubChat{resp: &models.ChatResponse{
		SessionID: "sess-1",
		Intent:    models.IntentFAQ,
		Response:  &models.Answer{Answer: "ok", Citations: []models.Citation{}},
	}}
	srv := newTestServer(t, chat, stubCorpus(3))

	body, _ := json.Marshal(models.ChatRequest{UserText: "what are the fees?"})
	resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.SessionID != "sess-1" || out.Response == nil || out.Response.Answer != "ok" {
		t.Errorf("response = %+v", out)
	}
	if chat.got.UserText != "what are the fees?" {
		t.Errorf("request = %+v", chat.got)
	}
}

func TestHandleChatValidation(t *testing.T) {
	srv := newTestServer(t, &stubChat{}, stubCorpus(0))

	resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/chat", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty user_text: status = %d", resp.StatusCode)
	}
}

func TestHandleChatError(t *testing.T) {
	srv := newTestServer(t, &stubChat{err: errors.New("snapshot missing")}, stubCorpus(0))
	body, _ := json.Marshal(models.ChatRequest{UserText: "anything"})
	resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, &stubChat{}, stubCorpus(42))
	resp, err := http.Get(srv.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["chunks"] != float64(42) || out["ready"] != true {
		t.Errorf("status = %v", out)
	}
	cfg, ok := out["config"].(map[string]any)
	if !ok || cfg["top_k"] != float64(4) {
		t.Errorf("config = %v", out["config"])
	}
}

func TestHandleStatusNoCorpus(t *testing.T) {
	srv := newTestServer(t, &stubChat{}, nil)
	resp, err := http.Get(srv.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["chunks"] != float64(0) || out["ready"] != false {
		t.Errorf("status = %v", out)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &stubChat{}, stubCorpus(0))
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
