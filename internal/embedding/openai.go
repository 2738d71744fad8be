package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// OpenAIConfig configures the OpenAI-compatible embeddings client. The API
// key is resolved from the environment variable named by APIKeyEnv so that
// credentials never live in config files or source.
type OpenAIConfig struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Dimensions int
	CacheSize  int
	Timeout    time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	cache      *Cache
	maxRetries int

	// dimensions starts at the configured value and, when configured as 0,
	// is fixed by the first successful embed. Concurrent first embeds from
	// parallel requests race without the lock.
	mu         sync.Mutex
	dimensions int
}

// NewOpenAIEmbedder creates the client. Returns an error when the API key
// environment variable is unset or empty.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 10000
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
		cache:      NewCache(cfg.CacheSize),
		maxRetries: 3,
	}, nil
}

// Embed returns the embedding for text, using the cache when possible.
// A result whose dimension differs from the configured dimension is a
// configuration error, not a silent truncation.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	vec, err := e.request(ctx, text)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.dimensions == 0 {
		e.dimensions = len(vec)
	}
	dims := e.dimensions
	e.mu.Unlock()
	if len(vec) != dims {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(vec), dims)
	}
	e.cache.Set(text, vec)
	return vec, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{"model": e.model, "input": text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}
	url := e.baseURL + "/embeddings"
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("embeddings endpoint returned %s", resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, string(payload))
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		var out struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return out.Data[0].Embedding, nil
	}
	return nil, fmt.Errorf("embedding request failed after retries: %w", lastErr)
}

// EmbedBatch calls Embed for each text.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimension (0 until first successful embed
// when not configured explicitly).
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error { return nil }

// retryDelay returns an exponential backoff delay capped at 5s.
func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
