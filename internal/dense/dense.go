// Package dense implements the dense retriever adapter (C3): a uniform
// hit contract wrapped around an external dense-vector index, selectable
// by VECTOR_BACKEND between an in-process coder/hnsw graph and a
// Postgres/pgvector-backed index.
package dense

import (
	"context"
	"math"
	"sort"

	"github.com/citeq/citeq/internal/chunkstore"
)

// RawHit is what a backend returns: a vector_id and its inner-product
// score against an L2-normalized query vector.
type RawHit struct {
	VectorID int
	Score    float64
}

// Hit is a dense search result with chunk metadata resolved through C1.
type Hit struct {
	Score     float64
	VectorID  int
	ChunkID   string
	DocID     string
	StartPage int
	EndPage   int
	Text      string
}

// Index is the uniform dense-retriever contract (spec §4.3, §6): search
// over L2-normalized query vectors using inner product, in deterministic
// order.
type Index interface {
	Search(ctx context.Context, queryVector []float32, k int) ([]RawHit, error)
	Close() error
}

// Resolve turns raw backend hits into fully resolved Hits, sorted
// deterministically by (-score, doc_id, start_page, chunk_id) regardless
// of the order the backend returned them in — satisfying the
// reordered-adapter-output determinism requirement (S5).
func Resolve(store *chunkstore.Store, raw []RawHit) []Hit {
	hits := make([]Hit, 0, len(raw))
	for _, r := range raw {
		c, ok := store.GetByVectorID(r.VectorID)
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			Score:     r.Score,
			VectorID:  r.VectorID,
			ChunkID:   c.ChunkID,
			DocID:     c.DocID,
			StartPage: c.StartPage,
			EndPage:   c.EndPage,
			Text:      c.Text,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
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
	})
	return hits
}

// QueryEmbedder turns a query string into the vector Index.Search expects.
// Defined here (not imported from internal/embed) to keep this package free
// of a dependency on the concrete embedding backend.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Adapter implements the C3 contract's `search(query, k) -> hits` shape by
// embedding the query string before delegating to Index.Search and
// resolving hits through C1.
type Adapter struct {
	Index    Index
	Embedder QueryEmbedder
	Store    *chunkstore.Store
}

// Search embeds query, searches the underlying Index, and resolves the
// raw hits into fully-populated Hits in deterministic order.
func (a *Adapter) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	vec, err := a.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	raw, err := a.Index.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	return Resolve(a.Store, raw), nil
}

// Normalize L2-normalizes a vector in place and returns it. A zero vector
// is left unchanged.
func Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
	return v
}
