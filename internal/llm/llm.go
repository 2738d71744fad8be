// Package llm wraps an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// CompletionClient produces a completion for a system/user prompt pair.
// Callers that only need deterministic grounded answers depend on this
// interface so tests can substitute a canned client.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config configures the OpenAI-compatible client. The API key is resolved
// from the environment variable named by APIKeyEnv, never from config files.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Client calls an OpenAI-compatible /chat/completions endpoint with
// temperature zero. Grounded answering depends on the model not improvising,
// so temperature is fixed rather than configurable.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
}

// NewClient creates the client. Returns an error when the API key
// environment variable is unset or empty.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: 3,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends the prompt pair and returns the raw assistant message
// content. Transient failures (429 and 5xx) are retried with backoff.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"temperature": 0,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}
	url := c.baseURL + "/chat/completions"
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("build completion request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("completions endpoint returned %s", resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("completions endpoint returned %d: %s", resp.StatusCode, string(payload))
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		var out struct {
			Choices []struct {
				Message chatMessage `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return "", fmt.Errorf("decode completion response: %w", err)
		}
		if len(out.Choices) == 0 {
			return "", fmt.Errorf("no completion returned")
		}
		return out.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("completion request failed after retries: %w", lastErr)
}

// retryDelay returns an exponential backoff delay capped at 5s.
func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
