package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/editalbot/docqa/internal/embedder"
	"github.com/editalbot/docqa/internal/reranker"
	"github.com/editalbot/docqa/internal/vectorstore"
)

// ErrEmptyQuery is returned when a retrieval operation is called with an
// empty query string.
var ErrEmptyQuery = errors.New("query must not be empty")

// Config holds the pipeline's result-set sizes.
type Config struct {
	// KRaw is the Stage 1 breadth: how many candidates the recall stage
	// requests from the vector index.
	KRaw int

	// KFinal is the final result count after re-ranking.
	KFinal int
}

// Pipeline orchestrates the recall and precision stages over the three
// shared handles: the embedder, the vector index, and the cross-encoder.
// It is constructed once at startup, performs no writes, and is safe for
// concurrent use by any number of simultaneous retrieval calls.
type Pipeline struct {
	embedder embedder.Embedder
	store    vectorstore.VectorStore
	encoder  reranker.CrossEncoder
	kRaw     int
	kFinal   int
	logger   *slog.Logger
}

// New creates a Pipeline. Result-set sizes are validated here so a
// malformed configuration fails before any query is accepted. KFinal
// larger than KRaw is legal (the caller simply gets at most KRaw results)
// but almost certainly a misconfiguration, so it is logged.
func New(emb embedder.Embedder, store vectorstore.VectorStore, encoder reranker.CrossEncoder, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if encoder == nil {
		return nil, errors.New("cross-encoder is required")
	}
	if cfg.KRaw < 1 {
		return nil, fmt.Errorf("KRaw must be at least 1, got %d", cfg.KRaw)
	}
	if cfg.KFinal < 1 {
		return nil, fmt.Errorf("KFinal must be at least 1, got %d", cfg.KFinal)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KFinal > cfg.KRaw {
		logger.Warn("KFinal exceeds KRaw; retrieval will return fewer results than requested",
			"k_final", cfg.KFinal,
			"k_raw", cfg.KRaw,
		)
	}

	return &Pipeline{
		embedder: emb,
		store:    store,
		encoder:  encoder,
		kRaw:     cfg.KRaw,
		kFinal:   cfg.KFinal,
		logger:   logger,
	}, nil
}

// Retrieve runs the full two-stage pipeline: a wide vector search followed
// by cross-encoder re-ranking, truncated to the configured final size.
//
// Stage 1 failure (embedder or index unavailable) is a hard error: no
// candidates means no meaningful fallback. Stage 2 failure degrades instead
// of failing: the Stage 1 candidates are returned re-sorted by ascending
// distance, tagged RankedByDistance, and the fallback is logged so operators
// can detect cross-encoder degradation.
func (p *Pipeline) Retrieve(ctx context.Context, query string) (*Result, error) {
	candidates, err := p.recall(ctx, query, p.kRaw)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{Passages: []RankedPassage{}, Ranking: RankedByRelevance}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Passage.Content
	}

	scores, err := p.encoder.ScoreBatch(ctx, query, texts)
	if err == nil && len(scores) != len(candidates) {
		err = fmt.Errorf("cross-encoder returned %d scores for %d candidates", len(scores), len(candidates))
	}
	if err != nil {
		p.logger.Warn("cross-encoder scoring failed, falling back to vector ranking",
			"error", err,
			"candidates", len(candidates),
		)
		return &Result{Passages: p.rankByDistance(candidates), Ranking: RankedByDistance}, nil
	}

	// Zip scores back onto their passages by position, then order by the
	// new criterion. The sort is stable, so candidates with equal scores
	// keep their Stage 1 (distance) order.
	ranked := make([]RankedPassage, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedPassage{Passage: c.Passage, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > p.kFinal {
		ranked = ranked[:p.kFinal]
	}

	return &Result{Passages: ranked, Ranking: RankedByRelevance}, nil
}

// RetrieveRecallOnly runs Stage 1 alone, querying the index directly for
// the final result count. It exists as an A/B baseline and as a degraded
// mode when no cross-encoder is deployed.
func (p *Pipeline) RetrieveRecallOnly(ctx context.Context, query string) ([]Candidate, error) {
	candidates, err := p.recall(ctx, query, p.kFinal)
	if err != nil {
		return nil, err
	}
	// The index returns results pre-sorted by distance; re-sorting is a
	// guarantee, not a correction.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	return candidates, nil
}

// ListAllPassages returns every indexed passage, unranked and unfiltered.
// A debugging and export primitive, not part of the retrieval hot path.
func (p *Pipeline) ListAllPassages(ctx context.Context) ([]Passage, error) {
	chunks, err := p.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning index: %w", err)
	}
	passages := make([]Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = newPassage(c.Content, c.Metadata)
	}
	return passages, nil
}

// recall embeds the query and performs the nearest-neighbor search. A
// zero-length candidate set is a valid result; embedder or index failure
// is propagated untouched.
func (p *Pipeline) recall(ctx context.Context, query string, k int) ([]Candidate, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := p.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	candidates := make([]Candidate, len(results))
	for i, r := range results {
		candidates[i] = Candidate{
			Passage:  newPassage(r.Content, r.Metadata),
			Distance: r.Distance,
		}
	}
	return candidates, nil
}

// rankByDistance produces the fallback ordering: ascending distance,
// truncated to the final size, with the distance standing in for the score.
func (p *Pipeline) rankByDistance(candidates []Candidate) []RankedPassage {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Distance < sorted[j].Distance
	})
	if len(sorted) > p.kFinal {
		sorted = sorted[:p.kFinal]
	}
	ranked := make([]RankedPassage, len(sorted))
	for i, c := range sorted {
		ranked[i] = RankedPassage{Passage: c.Passage, Score: c.Distance}
	}
	return ranked
}
