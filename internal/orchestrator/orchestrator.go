// Package orchestrator runs the per-request chat pipeline: redact, classify,
// then either answer from the corpus or gate and execute an account action.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/covebank/teller/internal/action"
	"github.com/covebank/teller/internal/intent"
	"github.com/covebank/teller/internal/models"
	"github.com/covebank/teller/internal/redact"
	"github.com/covebank/teller/pkg/utils"
)

// AnswerAgent is the FAQ path.
type AnswerAgent interface {
	Answer(ctx context.Context, redactedQuery string) (*models.Answer, []models.RetrievedChunk, error)
}

// ActionAgent is the account-action path.
type ActionAgent interface {
	Execute(ctx context.Context, name string, params action.Params) (map[string]any, error)
	ActiveCardLast4(ctx context.Context, accountID string) (string, error)
}

// Orchestrator wires the chat pipeline together. It holds no per-session
// state; every request is classified and routed independently.
type Orchestrator struct {
	classifier intent.Classifier
	answers    AnswerAgent
	actions    ActionAgent
	logger     *zap.Logger
	timeout    time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithTimeout bounds the handling of a single request.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// New creates the orchestrator.
func New(classifier intent.Classifier, answers AnswerAgent, actions ActionAgent, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		answers:    answers,
		actions:    actions,
		logger:     zap.NewNop(),
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle processes one chat request. PII is stripped before classification,
// so neither the classifier, the retrieval pipeline, nor the model ever sees
// raw card numbers, SSNs, phone numbers, or emails. The redaction mapping
// stays on the stack of this call and is dropped when it returns.
func (o *Orchestrator) Handle(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	redacted, replacements := redact.Redact(req.UserText)
	detected := o.classifier.Classify(redacted)
	// Only the redacted text is ever logged.
	o.logger.Info("chat request",
		zap.String("session_id", sessionID),
		zap.String("intent", string(detected)),
		zap.String("user_text", utils.Truncate(redacted, 120)),
		zap.Int("redactions", len(replacements)))

	if detected == models.IntentFAQ {
		answer, chunks, err := o.answers.Answer(ctx, redacted)
		if err != nil {
			return nil, err
		}
		o.logger.Debug("faq answered",
			zap.String("session_id", sessionID),
			zap.Int("contexts", len(chunks)),
			zap.Int("citations", len(answer.Citations)))
		return &models.ChatResponse{
			SessionID: sessionID,
			Intent:    models.IntentFAQ,
			Response:  answer,
		}, nil
	}

	return o.handleAction(ctx, sessionID, redacted, req)
}

// handleAction routes a classified action request. Routing is a second
// keyword pass over the redacted text: block requests and balance requests
// are executable, everything else that tripped an action trigger is reported
// as unknown rather than guessed at.
func (o *Orchestrator) handleAction(ctx context.Context, sessionID, redacted string, req *models.ChatRequest) (*models.ChatResponse, error) {
	lower := strings.ToLower(redacted)

	switch {
	case strings.Contains(lower, "block"):
		if resp := o.authGate(sessionID, req); resp != nil {
			return resp, nil
		}
		last4 := req.CardLast4
		if last4 == "" {
			found, err := o.actions.ActiveCardLast4(ctx, req.AccountID)
			if err != nil {
				if errors.Is(err, action.ErrNoActiveCard) {
					return &models.ChatResponse{
						SessionID:    sessionID,
						Intent:       models.IntentAction,
						ActionResult: map[string]any{"error": "card_last4 is required"},
					}, nil
				}
				return nil, err
			}
			last4 = found
		}
		result, err := o.actions.Execute(ctx, action.BlockCard, action.Params{
			"account_id": req.AccountID,
			"card_last4": last4,
			"reason":     "Customer request",
		})
		if err != nil {
			return nil, err
		}
		return &models.ChatResponse{
			SessionID:    sessionID,
			Intent:       models.IntentAction,
			ActionResult: result,
		}, nil

	case strings.Contains(lower, "balance"):
		if resp := o.authGate(sessionID, req); resp != nil {
			return resp, nil
		}
		result, err := o.actions.Execute(ctx, action.GetBalance, action.Params{
			"account_id": req.AccountID,
		})
		if err != nil {
			return nil, err
		}
		return &models.ChatResponse{
			SessionID:    sessionID,
			Intent:       models.IntentAction,
			ActionResult: result,
		}, nil

	default:
		o.logger.Info("action not routable", zap.String("session_id", sessionID))
		return &models.ChatResponse{
			SessionID: sessionID,
			Intent:    models.IntentUnknown,
		}, nil
	}
}

// authGate returns a needs_auth response when the request is not
// authenticated or names no account. No downstream call is made in that
// case.
func (o *Orchestrator) authGate(sessionID string, req *models.ChatRequest) *models.ChatResponse {
	if req.Authenticated && req.AccountID != "" {
		return nil
	}
	return &models.ChatResponse{
		SessionID: sessionID,
		Intent:    models.IntentAction,
		Status:    models.StatusNeedsAuth,
	}
}
