// Package fusion implements rank fusion and optional lexical rerank
// (C5): Reciprocal Rank Fusion over the ranked lists produced per query
// variant, followed by an optional exact-token + BM25 rerank pass over
// the fused candidate pool (spec §4.5). Grounded closely on the teacher's
// RRFFusion (internal/search/fusion.go) — same getOrCreate/compare/
// toSortedSlice shape, generalized to the spec's exact RRF formula,
// rerank-pool sizing, and lexical-rerank keys rather than the teacher's
// BM25/vector weight blend.
package fusion

import (
	"sort"
	"strings"

	"github.com/citeq/citeq/internal/bm25"
	"github.com/citeq/citeq/internal/dense"
	"github.com/citeq/citeq/internal/qparse"
)

// Hit is the common ranked-result shape shared by the lexical and dense
// retrievers and by every downstream fusion/rerank/selection stage
// (spec §3 "Hit"). After RRF, Score holds the fused score; after rerank,
// Score is left untouched (rerank reorders, it does not rescore into this
// field).
type Hit struct {
	Score     float64
	ChunkID   string
	DocID     string
	StartPage int
	EndPage   int
	Text      string
}

// FromBM25 adapts BM25 hits to the common Hit shape.
func FromBM25(hits []bm25.Hit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{Score: h.Score, ChunkID: h.ChunkID, DocID: h.DocID, StartPage: h.StartPage, EndPage: h.EndPage, Text: h.Text}
	}
	return out
}

// FromDense adapts dense-retriever hits to the common Hit shape.
func FromDense(hits []dense.Hit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{Score: h.Score, ChunkID: h.ChunkID, DocID: h.DocID, StartPage: h.StartPage, EndPage: h.EndPage, Text: h.Text}
	}
	return out
}

// DefaultK0 is the RRF smoothing constant (spec §4.5, §6 RETRIEVAL_RRF_K0).
const DefaultK0 = 60

// PerSourceK computes the per-variant retrieval pool size (spec §4.5):
// max(final_k * candidate_multiplier, final_k).
func PerSourceK(finalK, candidateMultiplier int) int {
	k := finalK * candidateMultiplier
	if k < finalK {
		return finalK
	}
	return k
}

type fusedEntry struct {
	hit             Hit
	fusedScore      float64
	bestSourceScore float64
	bestSourceIdx   int
}

// RRF combines any number of ranked lists via Reciprocal Rank Fusion
// (spec §4.5): each list contributes 1/(k0+rank) (1-indexed rank) to its
// chunk_id's fused score. One representative hit per chunk_id is kept —
// the one with the highest per-source score, ties broken by source order
// then (doc_id, start_page, chunk_id). Final order is
// (-fused_score, doc_id, start_page, chunk_id).
func RRF(lists [][]Hit, k0 int) []Hit {
	if k0 <= 0 {
		k0 = DefaultK0
	}

	entries := make(map[string]*fusedEntry)
	var order []string

	for srcIdx, list := range lists {
		for rank, h := range list {
			contribution := 1.0 / float64(k0+rank+1)
			e, ok := entries[h.ChunkID]
			if !ok {
				e = &fusedEntry{hit: h, bestSourceScore: h.Score, bestSourceIdx: srcIdx}
				entries[h.ChunkID] = e
				order = append(order, h.ChunkID)
			} else if h.Score > e.bestSourceScore || (h.Score == e.bestSourceScore && srcIdx < e.bestSourceIdx) {
				e.bestSourceScore = h.Score
				e.bestSourceIdx = srcIdx
				e.hit.DocID, e.hit.StartPage, e.hit.EndPage, e.hit.Text = h.DocID, h.StartPage, h.EndPage, h.Text
			}
			e.fusedScore += contribution
		}
	}

	out := make([]Hit, 0, len(order))
	for _, cid := range order {
		e := entries[cid]
		e.hit.Score = e.fusedScore
		out = append(out, e.hit)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return compare(out[i], out[j])
	})
	return out
}

func compare(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.DocID != b.DocID {
		return a.DocID < b.DocID
	}
	if a.StartPage != b.StartPage {
		return a.StartPage < b.StartPage
	}
	return a.ChunkID < b.ChunkID
}

// RerankConfig configures the optional lexical rerank pass (spec §4.5).
type RerankConfig struct {
	Enabled bool
	Pool    int
}

// Rerank reorders the top rerank_pool fused candidates by exact
// technical-token presence, then BM25 score_text, then the standard
// (doc_id, start_page, chunk_id) tie-break, truncating to finalK (spec
// §4.5). When cfg.Enabled is false it falls through to the fused order,
// truncated to finalK.
func Rerank(query string, fused []Hit, finalK int, cfg RerankConfig, idx *bm25.Index) []Hit {
	if !cfg.Enabled {
		return truncate(fused, finalK)
	}

	pool := cfg.Pool
	if pool < finalK {
		pool = finalK
	}
	if pool > len(fused) {
		pool = len(fused)
	}
	candidates := fused[:pool]

	tokens := lowerUnique(qparse.TechnicalTokens(query))

	type scored struct {
		hit   Hit
		exact bool
		bm    float64
	}
	scoredList := make([]scored, len(candidates))
	for i, h := range candidates {
		lowerText := strings.ToLower(h.Text)
		exact := false
		for _, t := range tokens {
			if strings.Contains(lowerText, t) {
				exact = true
				break
			}
		}
		scoredList[i] = scored{hit: h, exact: exact, bm: idx.ScoreText(query, h.Text)}
	}

	sort.SliceStable(scoredList, func(i, j int) bool {
		a, b := scoredList[i], scoredList[j]
		if a.exact != b.exact {
			return a.exact
		}
		if a.bm != b.bm {
			return a.bm > b.bm
		}
		if a.hit.DocID != b.hit.DocID {
			return a.hit.DocID < b.hit.DocID
		}
		if a.hit.StartPage != b.hit.StartPage {
			return a.hit.StartPage < b.hit.StartPage
		}
		return a.hit.ChunkID < b.hit.ChunkID
	})

	out := make([]Hit, 0, finalK)
	for i, s := range scoredList {
		if finalK > 0 && i >= finalK {
			break
		}
		out = append(out, s.hit)
	}
	return out
}

func truncate(hits []Hit, k int) []Hit {
	if k <= 0 || k >= len(hits) {
		return hits
	}
	return hits[:k]
}

func lowerUnique(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		lower := strings.ToLower(t)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	return out
}
