package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTEIBaseURL is the default text-embeddings-inference endpoint.
	DefaultTEIBaseURL = "http://localhost:8081"

	// DefaultTEITimeout bounds a single batch scoring call.
	DefaultTEITimeout = 30 * time.Second
)

// TEICrossEncoder scores pairs against a text-embeddings-inference style
// /rerank endpoint. The served model (e.g. ms-marco-MiniLM) is a true
// cross-encoder: it sees query and passage together.
type TEICrossEncoder struct {
	baseURL string
	model   string
	client  *http.Client
}

// TEIOption is a functional option for configuring TEICrossEncoder.
type TEIOption func(*TEICrossEncoder)

// WithTEIBaseURL sets a custom base URL for the rerank endpoint.
func WithTEIBaseURL(url string) TEIOption {
	return func(c *TEICrossEncoder) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithTEIModel sets the model name sent with each rerank request. Useful
// when the endpoint serves more than one model; when empty, the endpoint's
// default model is used.
func WithTEIModel(model string) TEIOption {
	return func(c *TEICrossEncoder) {
		c.model = model
	}
}

// WithTEIHTTPClient sets a custom HTTP client.
func WithTEIHTTPClient(client *http.Client) TEIOption {
	return func(c *TEICrossEncoder) {
		c.client = client
	}
}

// NewTEICrossEncoder creates a new cross-encoder client with the given options.
func NewTEICrossEncoder(opts ...TEIOption) *TEICrossEncoder {
	c := &TEICrossEncoder{
		baseURL: DefaultTEIBaseURL,
		client:  &http.Client{Timeout: DefaultTEITimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// teiRequest is the request body for the /rerank endpoint.
type teiRequest struct {
	Query    string   `json:"query"`
	Texts    []string `json:"texts"`
	Truncate bool     `json:"truncate"`
	Model    string   `json:"model,omitempty"`
}

// teiScore is one entry of the /rerank response. The endpoint returns
// entries sorted by score, so each carries the index of the input text it
// belongs to.
type teiScore struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// ScoreBatch scores every (query, text) pair in a single call. The endpoint
// returns scores sorted by relevance, so results are re-associated with
// their inputs by index rather than by position; a response that does not
// cover every input exactly once is an error.
func (c *TEICrossEncoder) ScoreBatch(ctx context.Context, query string, texts []string) ([]float32, error) {
	if len(texts) == 0 {
		return []float32{}, nil
	}

	body, err := json.Marshal(teiRequest{Query: query, Texts: texts, Truncate: true, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var entries []teiScore
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}

	if len(entries) != len(texts) {
		return nil, fmt.Errorf("rerank response has %d entries for %d inputs", len(entries), len(texts))
	}

	scores := make([]float32, len(texts))
	seen := make([]bool, len(texts))
	for _, e := range entries {
		if e.Index < 0 || e.Index >= len(texts) {
			return nil, fmt.Errorf("rerank response index %d out of range", e.Index)
		}
		if seen[e.Index] {
			return nil, fmt.Errorf("rerank response has duplicate index %d", e.Index)
		}
		seen[e.Index] = true
		scores[e.Index] = e.Score
	}

	return scores, nil
}

// Ensure TEICrossEncoder implements CrossEncoder.
var _ CrossEncoder = (*TEICrossEncoder)(nil)
