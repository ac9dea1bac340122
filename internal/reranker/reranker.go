// Package reranker provides cross-encoder scoring for retrieval re-ranking.
//
// A cross-encoder scores a (query, passage) pair jointly, which is more
// accurate than comparing independent embeddings but costs one model call
// per batch. The retrieval pipeline uses it to re-order a wide candidate
// set down to the few most relevant passages.
//
// # Trade-offs
//
//   - Latency: adds one batch inference call over the full candidate set;
//     this dominates per-query latency.
//   - Quality: significantly better relevance when the top vector results
//     have similar distances.
//
// The pipeline treats cross-encoder failure as recoverable and falls back
// to vector-distance ordering, so implementations should return errors
// rather than partial results.
package reranker

import "context"

// CrossEncoder scores query-passage pairs.
type CrossEncoder interface {
	// ScoreBatch scores every (query, text) pair and returns one scalar per
	// input text, in the same order and of the same length as texts. Larger
	// scores mean more relevant. Implementations must return an error when
	// they cannot honor the order and length guarantee.
	ScoreBatch(ctx context.Context, query string, texts []string) ([]float32, error)
}
