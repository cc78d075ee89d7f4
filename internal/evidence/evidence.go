// Package evidence implements the evidence selector (C6): dedup, stable
// sort, budget-bounded primary selection, and same-document neighbor
// windowing over a fused hit list (spec §4.6). Grounded on the
// dedup/sort/budget shape visible in the teacher's options.go score
// post-processing and its bm25_factory-style budget configuration.
package evidence

import (
	"fmt"
	"sort"

	"github.com/citeq/citeq/internal/chunkstore"
	"github.com/citeq/citeq/internal/fusion"
)

// Item is an evidence hit with its assigned citation key (spec §3
// "Evidence item"). Keys are assigned in final context order, c1..cN.
type Item struct {
	Key       string
	Score     float64
	ChunkID   string
	DocID     string
	StartPage int
	EndPage   int
	Text      string
}

// Options bounds evidence selection (spec §4.6, §6 ASK_* env vars).
type Options struct {
	MaxChunks        int
	MaxChars         int
	IncludeNeighbors bool
	NeighborWindow   int
	MinEvidenceHits  int
}

// Result is the outcome of Select.
type Result struct {
	Items []Item
	// UniqueHitCount is the number of distinct chunk_ids after dedup,
	// before budget truncation — used by the control loop's
	// insufficient_hits sufficiency check (spec §4.8).
	UniqueHitCount int
	// Sufficient reports UniqueHitCount >= opts.MinEvidenceHits.
	Sufficient bool
}

// Select implements spec §4.6 steps 1-5: dedup by chunk_id (max score
// kept), stable sort by (-score, doc_id, start_page, end_page, chunk_id),
// primary selection bounded by MaxChunks/MaxChars, optional same-doc
// neighbor windowing (also bounded by both budgets), and citation-key
// assignment matching final context order.
func Select(hits []fusion.Hit, store *chunkstore.Store, opts Options) Result {
	deduped := dedupMaxScore(hits)
	sort.SliceStable(deduped, func(i, j int) bool {
		return lessForSelection(deduped[i], deduped[j])
	})

	result := Result{UniqueHitCount: len(deduped)}
	result.Sufficient = opts.MinEvidenceHits <= 0 || result.UniqueHitCount >= opts.MinEvidenceHits

	primary := selectPrimary(deduped, opts.MaxChunks, opts.MaxChars)

	var final []Item
	if opts.IncludeNeighbors && opts.NeighborWindow > 0 && store != nil {
		final = withNeighbors(primary, store, opts)
	} else {
		final = toItems(primary)
	}

	for i := range final {
		final[i].Key = fmt.Sprintf("c%d", i+1)
	}
	result.Items = final
	return result
}

func dedupMaxScore(hits []fusion.Hit) []fusion.Hit {
	best := make(map[string]fusion.Hit, len(hits))
	var order []string
	for _, h := range hits {
		cur, ok := best[h.ChunkID]
		if !ok {
			best[h.ChunkID] = h
			order = append(order, h.ChunkID)
			continue
		}
		if h.Score > cur.Score {
			best[h.ChunkID] = h
		}
	}
	out := make([]fusion.Hit, len(order))
	for i, cid := range order {
		out[i] = best[cid]
	}
	return out
}

func lessForSelection(a, b fusion.Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.DocID != b.DocID {
		return a.DocID < b.DocID
	}
	if a.StartPage != b.StartPage {
		return a.StartPage < b.StartPage
	}
	if a.EndPage != b.EndPage {
		return a.EndPage < b.EndPage
	}
	return a.ChunkID < b.ChunkID
}

// selectPrimary walks the sorted, deduped hit list, stopping once maxChunks
// hits are selected or the cumulative text length has passed maxChars,
// whichever comes first; the hit that carries the total past maxChars is
// kept.
func selectPrimary(sorted []fusion.Hit, maxChunks, maxChars int) []fusion.Hit {
	var out []fusion.Hit
	chars := 0
	for _, h := range sorted {
		if maxChunks > 0 && len(out) >= maxChunks {
			break
		}
		if maxChars > 0 && chars > maxChars {
			break
		}
		out = append(out, h)
		chars += len(h.Text)
	}
	return out
}

// withNeighbors expands each selected primary hit with up to window
// same-document neighbors before and after it, inserted adjacent to
// their seed in context order, never altering the primary hits' relative
// ordering, and respecting the remaining chunk/char budget across the
// whole list (spec §4.6 step 4).
func withNeighbors(primary []fusion.Hit, store *chunkstore.Store, opts Options) []Item {
	included := make(map[string]bool, len(primary))
	for _, h := range primary {
		included[h.ChunkID] = true
	}

	chunks := 0
	chars := 0
	for _, h := range primary {
		chunks++
		chars += len(h.Text)
	}

	var final []Item
	for _, h := range primary {
		neighbors := store.Neighbors(h.ChunkID, opts.NeighborWindow)
		var before, after []*chunkstore.Chunk
		seed, ok := store.GetByChunkID(h.ChunkID)
		if ok {
			for _, n := range neighbors {
				if n.VectorID < seed.VectorID {
					before = append(before, n)
				} else {
					after = append(after, n)
				}
			}
		}

		for _, n := range before {
			if tryInclude(n, included, &chunks, &chars, opts) {
				final = append(final, itemFromChunk(n, 0))
			}
		}
		final = append(final, toItem(h))
		for _, n := range after {
			if tryInclude(n, included, &chunks, &chars, opts) {
				final = append(final, itemFromChunk(n, 0))
			}
		}
	}
	return final
}

func tryInclude(c *chunkstore.Chunk, included map[string]bool, chunks, chars *int, opts Options) bool {
	if included[c.ChunkID] {
		return false
	}
	if opts.MaxChunks > 0 && *chunks >= opts.MaxChunks {
		return false
	}
	if opts.MaxChars > 0 && *chars > opts.MaxChars {
		return false
	}
	included[c.ChunkID] = true
	*chunks++
	*chars += len(c.Text)
	return true
}

func toItem(h fusion.Hit) Item {
	return Item{Score: h.Score, ChunkID: h.ChunkID, DocID: h.DocID, StartPage: h.StartPage, EndPage: h.EndPage, Text: h.Text}
}

func toItems(hits []fusion.Hit) []Item {
	out := make([]Item, len(hits))
	for i, h := range hits {
		out[i] = toItem(h)
	}
	return out
}

func itemFromChunk(c *chunkstore.Chunk, score float64) Item {
	return Item{Score: score, ChunkID: c.ChunkID, DocID: c.DocID, StartPage: c.StartPage, EndPage: c.EndPage, Text: c.Text}
}
