// Package bm25 implements the lexical index (C2): a classical Okapi BM25
// scorer with a technical-token-aware tokenizer, built deterministically
// from the chunk store and persisted as a single JSON artifact.
//
// The scorer is hand-written rather than delegated to a third-party
// search engine because spec invariant I2 requires byte-identical,
// reproducible persistence of the exact artifact shape in §3/§6 — see
// DESIGN.md for the full justification.
package bm25

import (
	"math"
	"sort"

	"github.com/citeq/citeq/internal/chunkstore"
)

// DefaultK1 and DefaultB are the classical BM25 smoothing parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// DocMeta is the chunk metadata carried alongside each posting entry, so
// the artifact is self-contained and doesn't need the chunk store at
// search time.
type DocMeta struct {
	ChunkID   string `json:"chunk_id"`
	DocID     string `json:"doc_id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	Text      string `json:"text"`
	VectorID  int    `json:"vector_id"`
}

// VocabEntry is a token's document frequency and precomputed IDF.
type VocabEntry struct {
	DF  int     `json:"df"`
	IDF float64 `json:"idf"`
}

// Posting records a token's term frequency within one document.
type Posting struct {
	DocIdx int `json:"doc_idx"`
	TF     int `json:"tf"`
}

// Index is the in-memory BM25 index; Artifact is its serializable form.
type Index struct {
	k1         float64
	b          float64
	avgdl      float64
	docCount   int
	vocab      map[string]VocabEntry
	postings   map[string][]Posting
	docLengths []int
	docs       []DocMeta
}

// Hit is a single lexical search result (spec §3).
type Hit struct {
	Score     float64
	ChunkID   string
	DocID     string
	StartPage int
	EndPage   int
	Text      string
}

// Build constructs a BM25 index from the chunk store, iterating chunks in
// ascending vector_id order so the result — and therefore the persisted
// artifact — is a deterministic function of the corpus.
func Build(store *chunkstore.Store, k1, b float64) *Index {
	chunks := store.All()
	docs := make([]DocMeta, len(chunks))
	docLengths := make([]int, len(chunks))
	postings := make(map[string][]Posting)

	totalLen := 0
	for docIdx, c := range chunks {
		docs[docIdx] = DocMeta{
			ChunkID:   c.ChunkID,
			DocID:     c.DocID,
			StartPage: c.StartPage,
			EndPage:   c.EndPage,
			Text:      c.Text,
			VectorID:  c.VectorID,
		}

		tokens := Tokenize(c.Text)
		docLengths[docIdx] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		order := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if _, seen := tf[tok]; !seen {
				order = append(order, tok)
			}
			tf[tok]++
		}
		for _, tok := range order {
			postings[tok] = append(postings[tok], Posting{DocIdx: docIdx, TF: tf[tok]})
		}
	}

	n := len(chunks)
	vocab := make(map[string]VocabEntry, len(postings))
	for tok, pl := range postings {
		df := len(pl)
		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		vocab[tok] = VocabEntry{DF: df, IDF: idf}
	}

	avgdl := 0.0
	if n > 0 {
		avgdl = float64(totalLen) / float64(n)
	}

	return &Index{
		k1:         k1,
		b:          b,
		avgdl:      avgdl,
		docCount:   n,
		vocab:      vocab,
		postings:   postings,
		docLengths: docLengths,
		docs:       docs,
	}
}

// Search returns the top-k hits for query, ordered by
// (-score, doc_id, start_page, chunk_id). An empty or all-unknown-token
// query returns zero hits, never an error.
func (idx *Index) Search(query string, k int) []Hit {
	scores := idx.scoreAll(Tokenize(query))
	if len(scores) == 0 {
		return nil
	}

	type scored struct {
		docIdx int
		score  float64
	}
	ranked := make([]scored, 0, len(scores))
	for docIdx, s := range scores {
		ranked = append(ranked, scored{docIdx, s})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		da, db := idx.docs[a.docIdx], idx.docs[b.docIdx]
		if da.DocID != db.DocID {
			return da.DocID < db.DocID
		}
		if da.StartPage != db.StartPage {
			return da.StartPage < db.StartPage
		}
		return da.ChunkID < db.ChunkID
	})

	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}

	hits := make([]Hit, len(ranked))
	for i, r := range ranked {
		d := idx.docs[r.docIdx]
		hits[i] = Hit{Score: r.score, ChunkID: d.ChunkID, DocID: d.DocID, StartPage: d.StartPage, EndPage: d.EndPage, Text: d.Text}
	}
	return hits
}

// ScoreText scores an arbitrary text against query using this index's
// IDF table and avgdl, for use by the lexical rerank stage (spec §4.5).
// Tokens absent from the index's vocabulary contribute zero.
func (idx *Index) ScoreText(query, text string) float64 {
	queryTokens := Tokenize(query)
	docTokens := Tokenize(text)
	docLen := float64(len(docTokens))

	tf := make(map[string]int, len(docTokens))
	for _, tok := range docTokens {
		tf[tok]++
	}

	score := 0.0
	for _, qt := range uniqueInOrder(queryTokens) {
		entry, ok := idx.vocab[qt]
		if !ok {
			continue
		}
		t := float64(tf[qt])
		if t == 0 {
			continue
		}
		denom := t + idx.k1*(1-idx.b+idx.b*docLen/idx.avgdl)
		score += entry.IDF * (t * (idx.k1 + 1)) / denom
	}
	return score
}

// scoreAll computes the BM25 score for every document that shares at
// least one token with the query.
func (idx *Index) scoreAll(queryTokens []string) map[int]float64 {
	if len(queryTokens) == 0 || idx.avgdl == 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, qt := range uniqueInOrder(queryTokens) {
		entry, ok := idx.vocab[qt]
		if !ok {
			continue
		}
		for _, p := range idx.postings[qt] {
			dl := float64(idx.docLengths[p.DocIdx])
			tf := float64(p.TF)
			denom := tf + idx.k1*(1-idx.b+idx.b*dl/idx.avgdl)
			scores[p.DocIdx] += entry.IDF * (tf * (idx.k1 + 1)) / denom
		}
	}
	return scores
}

func uniqueInOrder(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Stats summarizes the index for diagnostics.
type Stats struct {
	DocCount  int
	TermCount int
	AvgDL     float64
}

// Stats returns index summary statistics.
func (idx *Index) Stats() Stats {
	return Stats{DocCount: idx.docCount, TermCount: len(idx.vocab), AvgDL: idx.avgdl}
}
