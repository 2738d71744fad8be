// Package answer produces grounded FAQ answers with citations.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/covebank/teller/internal/llm"
	"github.com/covebank/teller/internal/models"
)

const systemPrompt = "You are a banking assistant. ALWAYS return JSON with keys: answer, citations."

const ragPrompt = `You are a bank policy assistant. Use ONLY the RAG CONTEXTS below to answer the user's question.
If the answer cannot be found in contexts, respond: 'I don't know — please contact support.'

RAG CONTEXTS:
%s

USER QUERY (redacted):
%s

Return JSON strictly: {"answer": "...", "citations": [{"source":"...","chunk_index":...}]}`

// answerSchema validates the model output before it reaches clients. A reply
// that parses as JSON but lacks the contract shape is treated the same as
// non-JSON output.
const answerSchema = `{
	"type": "object",
	"required": ["answer", "citations"],
	"properties": {
		"answer": {"type": "string"},
		"citations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source", "chunk_index"],
				"properties": {
					"source": {"type": "string"},
					"chunk_index": {"type": "integer"}
				}
			}
		}
	}
}`

// Retriever is the slice of the retrieval layer the agent needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error)
}

// Agent retrieves supporting chunks and asks the model for a grounded,
// citation-bearing answer.
type Agent struct {
	retriever    Retriever
	client       llm.CompletionClient
	schema       *gojsonschema.Schema
	logger       *zap.Logger
	topK         int
	contextChars int
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New creates the agent. topK bounds retrieval and contextChars bounds the
// per-chunk text included in the prompt.
func New(retriever Retriever, client llm.CompletionClient, topK, contextChars int, opts ...Option) (*Agent, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(answerSchema))
	if err != nil {
		return nil, fmt.Errorf("compile answer schema: %w", err)
	}
	if topK <= 0 {
		topK = 4
	}
	if contextChars <= 0 {
		contextChars = 400
	}
	a := &Agent{
		retriever:    retriever,
		client:       client,
		schema:       schema,
		logger:       zap.NewNop(),
		topK:         topK,
		contextChars: contextChars,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Answer retrieves supporting chunks for the redacted query and asks the
// model. Retrieval failure is an error; a malformed model reply is not, it
// degrades to a fixed answer with no citations so the chat endpoint always
// has something well formed to return.
func (a *Agent) Answer(ctx context.Context, redactedQuery string) (*models.Answer, []models.RetrievedChunk, error) {
	chunks, err := a.retriever.Retrieve(ctx, redactedQuery, a.topK)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve contexts: %w", err)
	}
	prompt := fmt.Sprintf(ragPrompt, a.formatContexts(chunks), redactedQuery)

	raw, err := a.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		a.logger.Warn("completion failed", zap.Error(err))
		return &models.Answer{
			Answer:    "LLM error: " + err.Error(),
			Citations: []models.Citation{},
		}, chunks, nil
	}
	parsed := a.parse(raw)
	parsed.Citations = a.groundCitations(parsed.Citations, chunks)
	return parsed, chunks, nil
}

// groundCitations keeps only citations that point at a retrieved chunk.
// The model output is untrusted; a citation naming a source and index that
// never appeared in the prompt contexts is fabricated and is dropped.
func (a *Agent) groundCitations(cites []models.Citation, chunks []models.RetrievedChunk) []models.Citation {
	kept := make([]models.Citation, 0, len(cites))
	for _, c := range cites {
		for _, ch := range chunks {
			if c.Source == ch.Source && c.ChunkIndex == ch.ChunkIndex {
				kept = append(kept, c)
				break
			}
		}
	}
	if dropped := len(cites) - len(kept); dropped > 0 {
		a.logger.Warn("dropped citations not in retrieved contexts", zap.Int("dropped", dropped))
	}
	return kept
}

// formatContexts renders chunks as prompt blocks, each truncated to
// contextChars characters of text.
func (a *Agent) formatContexts(chunks []models.RetrievedChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		text := c.Text
		if runes := []rune(text); len(runes) > a.contextChars {
			text = string(runes[:a.contextChars])
		}
		blocks = append(blocks, fmt.Sprintf("Source: %s (chunk %d)\n%s", c.Source, c.ChunkIndex, text))
	}
	return strings.Join(blocks, "\n\n")
}

// parse validates raw model output against the answer schema and decodes it.
// Models wrap JSON in markdown fences often enough that stripping them first
// is worth the two lines.
func (a *Agent) parse(raw string) *models.Answer {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	fallback := &models.Answer{Answer: "LLM failed to produce JSON", Citations: []models.Citation{}}

	result, err := a.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil || !result.Valid() {
		a.logger.Warn("model output failed schema validation", zap.String("raw", raw))
		return fallback
	}
	var parsed models.Answer
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		a.logger.Warn("model output failed decoding", zap.Error(err))
		return fallback
	}
	if parsed.Citations == nil {
		parsed.Citations = []models.Citation{}
	}
	return &parsed
}
