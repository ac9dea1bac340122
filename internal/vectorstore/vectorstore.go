// Package vectorstore provides interfaces and implementations for vector similarity search.
package vectorstore

import (
	"context"
)

// Chunk represents an indexed passage with its embedding.
type Chunk struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult represents a nearest-neighbor search hit. Distance is a
// vector-space metric where smaller means more similar; it is not a
// relevance probability.
type SearchResult struct {
	ID       string
	Content  string
	Distance float32
	Metadata map[string]string
}

// StoredChunk represents an indexed passage returned by a full scan,
// without scoring.
type StoredChunk struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// VectorStore defines the interface for the passage index. All read
// operations are safe for concurrent use; writes happen only during
// offline ingestion.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, dimension int) error

	// Recreate drops and recreates the collection so the index reflects
	// only the current document set.
	Recreate(ctx context.Context, dimension int) error

	// Upsert inserts or updates chunks in the index.
	Upsert(ctx context.Context, chunks []Chunk) error

	// Search returns up to k nearest neighbors of vector, ordered by
	// ascending distance. An empty result is valid, not an error.
	Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// GetAll returns every indexed chunk, unordered and unscored.
	// An empty index yields an empty slice, not an error.
	GetAll(ctx context.Context) ([]StoredChunk, error)

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (uint64, error)
}
