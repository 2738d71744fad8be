package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/covebank/teller/internal/action"
	"github.com/covebank/teller/internal/intent"
	"github.com/covebank/teller/internal/models"
)

type stubAnswers struct {
	query  string
	called int
}

func (s *stubAnswers) Answer(_ context.Context, redactedQuery string) (*models.Answer, []models.RetrievedChunk, error) {
	s.called++
	s.query = redactedQuery
	return &models.Answer{
		Answer:    "The limit is $500.",
		Citations: []models.Citation{{Source: "faq.pdf", ChunkIndex: 2}},
	}, nil, nil
}

type stubActions struct {
	executed []string
	params   action.Params
	result   map[string]any
	last4    string
}

func (s *stubActions) Execute(_ context.Context, name string, params action.Params) (map[string]any, error) {
	s.executed = append(s.executed, name)
	s.params = params
	if s.result != nil {
		return s.result, nil
	}
	return map[string]any{"status": "ok"}, nil
}

func (s *stubActions) ActiveCardLast4(_ context.Context, _ string) (string, error) {
	if s.last4 == "" {
		return "", action.ErrNoActiveCard
	}
	return s.last4, nil
}

func newTestOrchestrator(answers *stubAnswers, actions *stubActions) *Orchestrator {
	return New(intent.NewKeywordClassifier(), answers, actions)
}

func TestHandleFAQ(t *testing.T) {
	answers := &stubAnswers{}
	actions := &stubActions{}
	o := newTestOrchestrator(answers, actions)

	resp, err := o.Handle(context.Background(), &models.ChatRequest{UserText: "What is the ATM withdrawal limit?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Intent != models.IntentFAQ {
		t.Errorf("intent = %s", resp.Intent)
	}
	if resp.Response == nil || resp.Response.Answer != "The limit is $500." {
		t.Errorf("response = %+v", resp.Response)
	}
	if resp.SessionID == "" {
		t.Error("session id not assigned")
	}
	if len(actions.executed) != 0 {
		t.Errorf("action path invoked for FAQ: %v", actions.executed)
	}
}

func TestHandlePreservesSessionID(t *testing.T) {
	o := newTestOrchestrator(&stubAnswers{}, &stubActions{})
	resp, err := o.Handle(context.Background(), &models.ChatRequest{SessionID: "sess-1", UserText: "how do fees work"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "sess-1" {
		t.Errorf("session id = %q", resp.SessionID)
	}
}

func TestHandleRedactsBeforeAnswering(t *testing.T) {
	answers := &stubAnswers{}
	o := newTestOrchestrator(answers, &stubActions{})
	_, err := o.Handle(context.Background(), &models.ChatRequest{
		UserText: "what fees apply to my card 4242 4242 4242 4242?",
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(answers.query, "4242") {
		t.Errorf("PII reached the answer agent: %q", answers.query)
	}
	if !strings.Contains(answers.query, "<CARD_MASK>_1") {
		t.Errorf("redacted query = %q", answers.query)
	}
}

func TestHandleActionNeedsAuth(t *testing.T) {
	actions := &stubActions{}
	o := newTestOrchestrator(&stubAnswers{}, actions)

	cases := []*models.ChatRequest{
		{UserText: "please block my card"},
		{UserText: "please block my card", Authenticated: true},
		{UserText: "what's my balance", AccountID: "acct_123"},
	}
	for _, req := range cases {
		resp, err := o.Handle(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Status != models.StatusNeedsAuth {
			t.Errorf("%+v: status = %q", req, resp.Status)
		}
		if resp.Intent != models.IntentAction {
			t.Errorf("%+v: intent = %s", req, resp.Intent)
		}
	}
	if len(actions.executed) != 0 {
		t.Errorf("account service called before auth: %v", actions.executed)
	}
}

func TestHandleBlockCardUsesRequestLast4(t *testing.T) {
	actions := &stubActions{}
	o := newTestOrchestrator(&stubAnswers{}, actions)

	resp, err := o.Handle(context.Background(), &models.ChatRequest{
		UserText:      "block my card",
		AccountID:     "acct_123",
		CardLast4:     "1111",
		Authenticated: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ActionResult == nil || resp.ActionResult["status"] != "ok" {
		t.Errorf("action result = %v", resp.ActionResult)
	}
	if len(actions.executed) != 1 || actions.executed[0] != action.BlockCard {
		t.Errorf("executed = %v", actions.executed)
	}
	if actions.params["card_last4"] != "1111" {
		t.Errorf("card_last4 = %q", actions.params["card_last4"])
	}
}

func TestHandleBlockCardFallsBackToActiveCard(t *testing.T) {
	actions := &stubActions{last4: "4242"}
	o := newTestOrchestrator(&stubAnswers{}, actions)

	_, err := o.Handle(context.Background(), &models.ChatRequest{
		UserText:      "freeze card now",
		AccountID:     "acct_123",
		Authenticated: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if actions.params["card_last4"] != "4242" {
		t.Errorf("card_last4 = %q", actions.params["card_last4"])
	}
}

func TestHandleBlockCardNoActiveCard(t *testing.T) {
	actions := &stubActions{}
	o := newTestOrchestrator(&stubAnswers{}, actions)

	resp, err := o.Handle(context.Background(), &models.ChatRequest{
		UserText:      "block my card",
		AccountID:     "acct_127",
		Authenticated: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ActionResult == nil || resp.ActionResult["error"] != "card_last4 is required" {
		t.Errorf("action result = %v", resp.ActionResult)
	}
	if len(actions.executed) != 0 {
		t.Errorf("block executed without a card: %v", actions.executed)
	}
}

func TestHandleBalance(t *testing.T) {
	actions := &stubActions{result: map[string]any{"status": "ok", "balance": 1250.75}}
	o := newTestOrchestrator(&stubAnswers{}, actions)

	resp, err := o.Handle(context.Background(), &models.ChatRequest{
		UserText:      "get balance please",
		AccountID:     "acct_123",
		Authenticated: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ActionResult["balance"] != 1250.75 {
		t.Errorf("action result = %v", resp.ActionResult)
	}
	if actions.params["account_id"] != "acct_123" {
		t.Errorf("params = %v", actions.params)
	}
}

func TestHandleUnroutableActionIsUnknown(t *testing.T) {
	actions := &stubActions{}
	o := newTestOrchestrator(&stubAnswers{}, actions)

	resp, err := o.Handle(context.Background(), &models.ChatRequest{
		UserText:      "I want to raise a dispute",
		AccountID:     "acct_123",
		Authenticated: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Intent != models.IntentUnknown {
		t.Errorf("intent = %s", resp.Intent)
	}
	if resp.ActionResult != nil || resp.Response != nil {
		t.Errorf("unexpected payload: %+v", resp)
	}
	if len(actions.executed) != 0 {
		t.Errorf("executed = %v", actions.executed)
	}
}
