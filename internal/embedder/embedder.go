// Package embedder provides interfaces and implementations for text embedding.
package embedder

import "context"

// Embedder defines the interface for text embedding services.
// Implementations must be deterministic for a given model version and safe
// for concurrent use.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// ModelConfig holds configuration for a specific embedding model.
type ModelConfig struct {
	Dimension     int // Embedding dimension
	ContextLength int // Max tokens the model can process
	MaxChunkWords int // Recommended max chunk size in words (safe limit)
}

// KnownModels maps embedding model names to their configurations. The chunk
// limits are conservative to avoid "context length exceeded" errors.
var KnownModels = map[string]ModelConfig{
	"all-minilm": {
		Dimension:     384,
		ContextLength: 256,
		MaxChunkWords: 150,
	},
	"nomic-embed-text": {
		Dimension:     768,
		ContextLength: 8192,
		MaxChunkWords: 512,
	},
	"mxbai-embed-large": {
		Dimension:     1024,
		ContextLength: 512,
		MaxChunkWords: 300,
	},
}

// GetModelConfig returns the configuration for a model, or defaults if unknown.
func GetModelConfig(modelName string) ModelConfig {
	if cfg, ok := KnownModels[modelName]; ok {
		return cfg
	}
	return ModelConfig{
		Dimension:     768,
		ContextLength: 2048,
		MaxChunkWords: 256,
	}
}
