// Package action executes account operations against the account service.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Action names the agent can route.
const (
	BlockCard    = "block_card"
	RaiseDispute = "raise_dispute"
	GetBalance   = "get_balance"
)

// Params carries the named arguments for an action.
type Params map[string]string

// Agent calls the account service HTTP API. The service's JSON body is
// passed through to the caller verbatim, including error bodies such as a
// not-found account, so the chat response reflects exactly what the backing
// service said.
type Agent struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Agent) {
		a.client = client
	}
}

// NewAgent creates an agent for the account service at baseURL.
func NewAgent(baseURL string, opts ...Option) *Agent {
	a := &Agent{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Execute routes an action by name. A missing required parameter is a usage
// error and never reaches the wire. An unknown action name is not an error,
// it yields an error-shaped result the same way the account service reports
// its own failures.
func (a *Agent) Execute(ctx context.Context, name string, params Params) (map[string]any, error) {
	switch name {
	case BlockCard:
		if err := require(params, "account_id", "card_last4"); err != nil {
			return nil, err
		}
		return a.post(ctx, "/block_card", map[string]string{
			"account_id": params["account_id"],
			"card_last4": params["card_last4"],
			"reason":     defaultStr(params["reason"], "user request"),
		})
	case RaiseDispute:
		if err := require(params, "account_id", "transaction_id"); err != nil {
			return nil, err
		}
		return a.post(ctx, "/raise_dispute", map[string]string{
			"account_id":     params["account_id"],
			"transaction_id": params["transaction_id"],
			"reason":         defaultStr(params["reason"], "dispute"),
		})
	case GetBalance:
		if err := require(params, "account_id"); err != nil {
			return nil, err
		}
		return a.post(ctx, "/get_balance", map[string]string{
			"account_id": params["account_id"],
		})
	default:
		a.logger.Warn("unknown action requested", zap.String("action", name))
		return map[string]any{"error": "unknown action"}, nil
	}
}

func (a *Agent) post(ctx context.Context, path string, body map[string]string) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal action request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build action request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account service call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read account service response: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("account service returned %d with non-JSON body", resp.StatusCode)
	}
	a.logger.Debug("action executed",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))
	return out, nil
}

// ErrNoActiveCard is returned when an account has no single unambiguous
// active card to act on.
var ErrNoActiveCard = fmt.Errorf("no single active card on account")

// ActiveCardLast4 looks up the account and returns the last4 of its only
// active card. Used when a block request does not name a card.
func (a *Agent) ActiveCardLast4(ctx context.Context, accountID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/accounts/"+accountID, nil)
	if err != nil {
		return "", fmt.Errorf("build account request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("account service call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("account lookup returned %d", resp.StatusCode)
	}
	var acct struct {
		Cards []struct {
			Last4  string `json:"last4"`
			Status string `json:"status"`
		} `json:"cards"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		return "", fmt.Errorf("decode account response: %w", err)
	}
	active := ""
	for _, c := range acct.Cards {
		if c.Status != "active" {
			continue
		}
		if active != "" {
			return "", ErrNoActiveCard
		}
		active = c.Last4
	}
	if active == "" {
		return "", ErrNoActiveCard
	}
	return active, nil
}

func require(params Params, keys ...string) error {
	for _, key := range keys {
		if params[key] == "" {
			return fmt.Errorf("missing required parameter %q", key)
		}
	}
	return nil
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
