package eval

import "math"

// Hit is the minimal retrieved-result shape metrics are scored against
// (spec §4.10 "Relevance"): a doc_id and inclusive page span.
type Hit struct {
	DocID     string
	StartPage int
	EndPage   int
}

func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart <= bEnd && bStart <= aEnd
}

// matchesGold implements strict relevance: doc_id equal and inclusive
// page ranges overlap.
func matchesGold(h Hit, g GoldSpan) bool {
	return h.DocID == g.DocID && overlaps(h.StartPage, h.EndPage, g.StartPage, g.EndPage)
}

func truncate(hits []Hit, k int) []Hit {
	if k <= 0 || k >= len(hits) {
		return hits
	}
	return hits[:k]
}

// RecallAtK counts each gold span at most once, matched by any hit in
// the top k.
func RecallAtK(hits []Hit, gold []GoldSpan, k int) float64 {
	if len(gold) == 0 {
		return 0
	}
	top := truncate(hits, k)
	matched := make([]bool, len(gold))
	count := 0
	for _, h := range top {
		for gi, g := range gold {
			if !matched[gi] && matchesGold(h, g) {
				matched[gi] = true
				count++
			}
		}
	}
	return float64(count) / float64(len(gold))
}

// MRRAtK returns the reciprocal rank of the first relevant hit in the
// top k, or 0 if none.
func MRRAtK(hits []Hit, gold []GoldSpan, k int) float64 {
	top := truncate(hits, k)
	for i, h := range top {
		for _, g := range gold {
			if matchesGold(h, g) {
				return 1 / float64(i+1)
			}
		}
	}
	return 0
}

// NDCGAtK uses binary gains; each gold span contributes gain at most
// once, credited to the first hit (by rank) that covers it. Normalized
// by the ideal DCG over min(|gold|, k) unit gains.
func NDCGAtK(hits []Hit, gold []GoldSpan, k int) float64 {
	if k <= 0 || len(gold) == 0 {
		return 0
	}
	top := truncate(hits, k)
	covered := make([]bool, len(gold))
	dcg := 0.0
	for i, h := range top {
		rank := i + 1
		for gi, g := range gold {
			if covered[gi] || !matchesGold(h, g) {
				continue
			}
			covered[gi] = true
			dcg += 1 / math.Log2(float64(rank)+1)
			break
		}
	}

	idealCount := len(gold)
	if idealCount > k {
		idealCount = k
	}
	idcg := 0.0
	for rank := 1; rank <= idealCount; rank++ {
		idcg += 1 / math.Log2(float64(rank)+1)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// DocOnlyRecallAtK is a relaxed diagnostic: doc match only, ignoring
// page spans entirely (spec §4.10 "Relaxed diagnostics").
func DocOnlyRecallAtK(hits []Hit, gold []GoldSpan, k int) float64 {
	if len(gold) == 0 {
		return 0
	}
	top := truncate(hits, k)
	matched := make([]bool, len(gold))
	count := 0
	for _, h := range top {
		for gi, g := range gold {
			if !matched[gi] && h.DocID == g.DocID {
				matched[gi] = true
				count++
			}
		}
	}
	return float64(count) / float64(len(gold))
}

// NearPageRecallAtK relaxes strict overlap by tolerance t pages in
// either direction on either span.
func NearPageRecallAtK(hits []Hit, gold []GoldSpan, k int, tolerance int) float64 {
	if len(gold) == 0 {
		return 0
	}
	top := truncate(hits, k)
	matched := make([]bool, len(gold))
	count := 0
	for _, h := range top {
		for gi, g := range gold {
			if matched[gi] || h.DocID != g.DocID {
				continue
			}
			if overlaps(h.StartPage-tolerance, h.EndPage+tolerance, g.StartPage, g.EndPage) ||
				overlaps(h.StartPage, h.EndPage, g.StartPage-tolerance, g.EndPage+tolerance) {
				matched[gi] = true
				count++
			}
		}
	}
	return float64(count) / float64(len(gold))
}
