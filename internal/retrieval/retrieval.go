// Package retrieval implements the two-stage retrieval pipeline that selects
// which indexed passages ground an answer.
//
// Stage 1 (recall) embeds the query and runs a wide nearest-neighbor search
// against the vector index. Stage 2 (precision) re-scores the candidate set
// with a cross-encoder and keeps the few best. The two stages rank on
// opposite scales: vector distance is smaller-is-better, cross-encoder
// relevance is larger-is-better.
package retrieval

import "strconv"

// Passage is an immutable unit of indexed text with provenance metadata.
// It is read-only to the pipeline; passages are created once at ingestion
// time and never mutated afterwards.
type Passage struct {
	// Content is the passage text.
	Content string

	// Source identifies the origin document (a path relative to the
	// document root).
	Source string

	// Page is the page number within the source document, when known.
	Page *int

	// Extra holds any remaining passage metadata beyond the fields above,
	// preserving heterogeneous source-document attributes.
	Extra map[string]string
}

// Candidate is a Stage 1 result: a passage with its embedding distance to
// the query. Smaller distance means more similar; the distance is a proxy
// for relevance, not a relevance probability.
type Candidate struct {
	Passage  Passage
	Distance float32
}

// RankedPassage is a Stage 2 result: a passage with its cross-encoder
// relevance score. Larger is better. In a degraded (fallback) result the
// score is the Stage 1 distance instead; check Result.Ranking.
type RankedPassage struct {
	Passage Passage
	Score   float32
}

// Ranking identifies which criterion ordered a Result.
type Ranking int

const (
	// RankedByRelevance is the nominal case: passages ordered by descending
	// cross-encoder score.
	RankedByRelevance Ranking = iota

	// RankedByDistance is the degraded case: the cross-encoder failed and
	// passages are ordered by ascending embedding distance instead. Each
	// RankedPassage.Score then holds that distance.
	RankedByDistance
)

// String returns the ranking name for logs and API responses.
func (r Ranking) String() string {
	switch r {
	case RankedByRelevance:
		return "relevance"
	case RankedByDistance:
		return "distance_fallback"
	default:
		return "unknown"
	}
}

// Result is the outcome of a full-pipeline retrieval. Passages are ordered
// by the criterion named in Ranking and bounded by the configured final
// result count. An empty Passages slice is a valid result meaning no
// grounding is available.
type Result struct {
	Passages []RankedPassage
	Ranking  Ranking
}

// Degraded reports whether the result came from the distance-ordered
// fallback path rather than cross-encoder ranking.
func (r *Result) Degraded() bool {
	return r.Ranking == RankedByDistance
}

// newPassage builds a Passage from indexed content and its metadata map,
// lifting the two consumed fields out and keeping the rest as-is.
func newPassage(content string, metadata map[string]string) Passage {
	p := Passage{Content: content}
	var extra map[string]string
	for k, v := range metadata {
		switch k {
		case "source":
			p.Source = v
		case "page":
			if n, err := strconv.Atoi(v); err == nil {
				page := n
				p.Page = &page
			} else {
				// Unparseable page values stay visible in Extra.
				if extra == nil {
					extra = make(map[string]string)
				}
				extra[k] = v
			}
		default:
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[k] = v
		}
	}
	p.Extra = extra
	return p
}
