package dense

import (
	"context"
	"math"
	"testing"

	"github.com/citeq/citeq/internal/chunkstore"
)

func testStore(t *testing.T) *chunkstore.Store {
	t.Helper()
	store, err := chunkstore.New([]*chunkstore.Chunk{
		{ChunkID: "A::p0001::c000", DocID: "A", StartPage: 1, EndPage: 1, Text: "alpha", VectorID: 0},
		{ChunkID: "B::p0001::c000", DocID: "B", StartPage: 1, EndPage: 1, Text: "beta", VectorID: 1},
	})
	if err != nil {
		t.Fatalf("chunkstore.New: %v", err)
	}
	return store
}

func TestNormalizeProducesUnitVector(t *testing.T) {
	v := Normalize([]float32{3, 4})
	mag := math.Hypot(float64(v[0]), float64(v[1]))
	if math.Abs(mag-1.0) > 1e-6 {
		t.Fatalf("magnitude = %v, want 1.0", mag)
	}
}

func TestNormalizeLeavesZeroVectorUnchanged(t *testing.T) {
	v := Normalize([]float32{0, 0})
	if v[0] != 0 || v[1] != 0 {
		t.Fatalf("got %v, want unchanged zero vector", v)
	}
}

func TestResolveSortsDeterministicallyByScoreThenTieBreak(t *testing.T) {
	store := testStore(t)
	raw := []RawHit{
		{VectorID: 1, Score: 0.5},
		{VectorID: 0, Score: 0.5},
	}
	hits := Resolve(store, raw)
	if len(hits) != 2 || hits[0].DocID != "A" || hits[1].DocID != "B" {
		t.Fatalf("hits = %+v, want A before B on tied score", hits)
	}
}

func TestResolveDropsUnknownVectorIDs(t *testing.T) {
	store := testStore(t)
	hits := Resolve(store, []RawHit{{VectorID: 99, Score: 1.0}})
	if len(hits) != 0 {
		t.Fatalf("hits = %+v, want none for unresolved vector_id", hits)
	}
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeIndex struct {
	hits []RawHit
	err  error
}

func (f fakeIndex) Search(ctx context.Context, queryVector []float32, k int) ([]RawHit, error) {
	return f.hits, f.err
}

func (f fakeIndex) Close() error { return nil }

func TestAdapterSearchEmbedsThenResolves(t *testing.T) {
	store := testStore(t)
	adapter := &Adapter{
		Index:    fakeIndex{hits: []RawHit{{VectorID: 0, Score: 0.9}}},
		Embedder: fakeEmbedder{vec: []float32{1, 0}},
		Store:    store,
	}

	hits, err := adapter.Search(context.Background(), "key generation", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != "A" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestAdapterSearchPropagatesEmbedError(t *testing.T) {
	adapter := &Adapter{
		Index:    fakeIndex{},
		Embedder: fakeEmbedder{err: context.DeadlineExceeded},
		Store:    testStore(t),
	}
	if _, err := adapter.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error from embedder")
	}
}
