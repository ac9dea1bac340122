// Package llm provides interfaces and implementations for Large Language Model clients.
package llm

import (
	"context"
)

// GenerateOptions configures the LLM generation request.
type GenerateOptions struct {
	// Model specifies the LLM model to use (e.g., "llama3.2", "mistral").
	Model string

	// SystemPrompt sets the system-level instructions for the model.
	SystemPrompt string

	// Temperature controls randomness in generation (0.0 = deterministic, 1.0 = creative).
	Temperature float32

	// MaxTokens limits the maximum number of tokens in the response.
	MaxTokens int
}

// Usage reports token counts for a completed generation. The counts feed
// the per-message metrics stored with the chat history.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Generation is the result of a completed LLM call.
type Generation struct {
	Text  string
	Usage Usage
}

// LLM defines the interface for Large Language Model clients.
type LLM interface {
	// Generate sends a prompt to the LLM and returns the complete response
	// with token usage. It blocks until the full response is received or an
	// error occurs.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Generation, error)
}
