package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/covebank/teller/internal/models"
)

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != OutputText {
		t.Errorf("empty: %v %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json: %v %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("yaml should be rejected")
	}
}

func TestWriteChatResponseTextFAQ(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.ChatResponse{
		SessionID: "sess-1",
		Intent:    models.IntentFAQ,
		Response: &models.Answer{
			Answer:    "The limit is $500.",
			Citations: []models.Citation{{Source: "faq.pdf", ChunkIndex: 2}},
		},
	}
	if err := WriteChatResponse(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"sess-1", "faq", "The limit is $500.", "faq.pdf (chunk 2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteChatResponseTextNeedsAuth(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.ChatResponse{SessionID: "s", Intent: models.IntentAction, Status: models.StatusNeedsAuth}
	if err := WriteChatResponse(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "needs_auth") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteChatResponseJSON(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.ChatResponse{
		SessionID:    "s",
		Intent:       models.IntentAction,
		ActionResult: map[string]any{"status": "ok", "balance": 1250.75},
	}
	if err := WriteChatResponse(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.ChatResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ActionResult["balance"] != 1250.75 {
		t.Errorf("decoded = %+v", decoded)
	}
}
