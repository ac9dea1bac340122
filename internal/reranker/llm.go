package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/editalbot/docqa/internal/llm"
)

// LLMCrossEncoder scores query-passage pairs with a general-purpose LLM
// prompted to emit JSON relevance scores. It is a stand-in for deployments
// without a dedicated cross-encoder service: slower and noisier than a
// trained cross-encoder, but requiring no extra infrastructure.
type LLMCrossEncoder struct {
	llmClient llm.LLM
	model     string
}

// LLMCrossEncoderOption is a functional option for configuring LLMCrossEncoder.
type LLMCrossEncoderOption func(*LLMCrossEncoder)

// WithModel sets the model to use for scoring.
func WithModel(model string) LLMCrossEncoderOption {
	return func(r *LLMCrossEncoder) {
		r.model = model
	}
}

// NewLLMCrossEncoder creates a new LLM-based cross-encoder.
func NewLLMCrossEncoder(llmClient llm.LLM, opts ...LLMCrossEncoderOption) *LLMCrossEncoder {
	r := &LLMCrossEncoder{
		llmClient: llmClient,
		model:     "llama3.2",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// relevanceScore represents the structured output from the LLM.
type relevanceScore struct {
	DocIndex int     `json:"doc_index"`
	Score    float32 `json:"score"`
}

type scoreResponse struct {
	Scores []relevanceScore `json:"scores"`
}

// ScoreBatch asks the LLM to score each text's relevance to the query.
// A response that does not cover every input exactly once is an error; the
// caller decides whether to degrade.
func (r *LLMCrossEncoder) ScoreBatch(ctx context.Context, query string, texts []string) ([]float32, error) {
	if len(texts) == 0 {
		return []float32{}, nil
	}

	prompt := r.buildScoringPrompt(query, texts)

	gen, err := r.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       r.model,
		Temperature: 0.0, // Deterministic scoring
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM scoring failed: %w", err)
	}

	return parseScoreResponse(gen.Text, len(texts))
}

// buildScoringPrompt constructs the prompt for LLM-based relevance scoring.
func (r *LLMCrossEncoder) buildScoringPrompt(query string, texts []string) string {
	var sb strings.Builder

	sb.WriteString("You are a relevance scoring system. Score each document's relevance to the query.\n\n")
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	sb.WriteString("Documents to score:\n")
	for i, text := range texts {
		// Truncate content to avoid token limits. Runes, not bytes, so
		// accented text is never cut mid-character.
		if runes := []rune(text); len(runes) > 500 {
			text = string(runes[:500]) + "..."
		}
		sb.WriteString(fmt.Sprintf("[Doc %d]: %s\n\n", i, text))
	}

	sb.WriteString(`Score each document from 0.0 to 1.0 based on relevance to the query.
Output ONLY valid JSON in this exact format:
{"scores": [{"doc_index": 0, "score": 0.9}, {"doc_index": 1, "score": 0.3}, ...]}

Be strict: irrelevant documents should score below 0.3, somewhat relevant 0.3-0.7, highly relevant above 0.7.
Output only JSON, no explanation:`)

	return sb.String()
}

// parseScoreResponse extracts one score per input from the LLM response.
func parseScoreResponse(response string, numTexts int) ([]float32, error) {
	response = strings.TrimSpace(response)

	// Extract JSON from markdown code blocks if present
	if idx := strings.Index(response, "```json"); idx != -1 {
		start := idx + 7
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	} else if idx := strings.Index(response, "```"); idx != -1 {
		start := idx + 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	}

	response = strings.TrimSpace(response)

	var parsed scoreResponse
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse scoring response: %w", err)
	}

	scores := make([]float32, numTexts)
	seen := make([]bool, numTexts)
	for _, s := range parsed.Scores {
		if s.DocIndex < 0 || s.DocIndex >= numTexts {
			return nil, fmt.Errorf("scoring response index %d out of range", s.DocIndex)
		}
		if seen[s.DocIndex] {
			return nil, fmt.Errorf("scoring response has duplicate index %d", s.DocIndex)
		}
		seen[s.DocIndex] = true

		// Clamp score to valid range
		score := s.Score
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		scores[s.DocIndex] = score
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("scoring response is missing doc_index %d", i)
		}
	}

	return scores, nil
}

// Ensure LLMCrossEncoder implements CrossEncoder.
var _ CrossEncoder = (*LLMCrossEncoder)(nil)
