package evidence

import (
	"testing"

	"github.com/citeq/citeq/internal/chunkstore"
	"github.com/citeq/citeq/internal/fusion"
)

func newStore(t *testing.T) *chunkstore.Store {
	t.Helper()
	chunks := []*chunkstore.Chunk{
		{ChunkID: "D1::p0001::c000", DocID: "D1", StartPage: 1, EndPage: 1, Text: "one", VectorID: 0},
		{ChunkID: "D1::p0002::c000", DocID: "D1", StartPage: 2, EndPage: 2, Text: "two", VectorID: 1},
		{ChunkID: "D1::p0003::c000", DocID: "D1", StartPage: 3, EndPage: 3, Text: "three", VectorID: 2},
		{ChunkID: "D1::p0004::c000", DocID: "D1", StartPage: 4, EndPage: 4, Text: "four", VectorID: 3},
	}
	store, err := chunkstore.New(chunks)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSelectDedupKeepsMaxScore(t *testing.T) {
	store := newStore(t)
	hits := []fusion.Hit{
		{ChunkID: "D1::p0002::c000", DocID: "D1", StartPage: 2, EndPage: 2, Score: 0.1, Text: "two"},
		{ChunkID: "D1::p0002::c000", DocID: "D1", StartPage: 2, EndPage: 2, Score: 0.9, Text: "two"},
	}
	res := Select(hits, store, Options{MaxChunks: 10, MaxChars: 1000, MinEvidenceHits: 1})
	if len(res.Items) != 1 {
		t.Fatalf("expected 1 deduped item, got %d", len(res.Items))
	}
	if res.Items[0].Score != 0.9 {
		t.Errorf("expected max score 0.9, got %v", res.Items[0].Score)
	}
}

func TestSelectBudgetStopsAtMaxChunks(t *testing.T) {
	store := newStore(t)
	hits := []fusion.Hit{
		{ChunkID: "D1::p0001::c000", DocID: "D1", StartPage: 1, EndPage: 1, Score: 0.9, Text: "one"},
		{ChunkID: "D1::p0002::c000", DocID: "D1", StartPage: 2, EndPage: 2, Score: 0.8, Text: "two"},
		{ChunkID: "D1::p0003::c000", DocID: "D1", StartPage: 3, EndPage: 3, Score: 0.7, Text: "three"},
	}
	res := Select(hits, store, Options{MaxChunks: 2, MaxChars: 10000, MinEvidenceHits: 1})
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items bounded by MaxChunks, got %d", len(res.Items))
	}
}

func TestSelectInsufficientHits(t *testing.T) {
	store := newStore(t)
	hits := []fusion.Hit{{ChunkID: "D1::p0001::c000", DocID: "D1", StartPage: 1, EndPage: 1, Score: 0.9, Text: "one"}}
	res := Select(hits, store, Options{MaxChunks: 10, MaxChars: 1000, MinEvidenceHits: 2})
	if res.Sufficient {
		t.Fatalf("expected insufficient with 1 hit and MinEvidenceHits=2")
	}
}

func TestSelectCitationKeysMatchOrder(t *testing.T) {
	store := newStore(t)
	hits := []fusion.Hit{
		{ChunkID: "D1::p0003::c000", DocID: "D1", StartPage: 3, EndPage: 3, Score: 0.5, Text: "three"},
		{ChunkID: "D1::p0001::c000", DocID: "D1", StartPage: 1, EndPage: 1, Score: 0.9, Text: "one"},
	}
	res := Select(hits, store, Options{MaxChunks: 10, MaxChars: 10000, MinEvidenceHits: 1})
	if res.Items[0].Key != "c1" || res.Items[0].ChunkID != "D1::p0001::c000" {
		t.Fatalf("expected c1 assigned to highest-scored hit first, got %+v", res.Items)
	}
	if res.Items[1].Key != "c2" {
		t.Fatalf("expected c2 second, got %+v", res.Items)
	}
}

func TestSelectNeighborWindowSameDocOnly(t *testing.T) {
	store := newStore(t)
	hits := []fusion.Hit{
		{ChunkID: "D1::p0002::c000", DocID: "D1", StartPage: 2, EndPage: 2, Score: 0.9, Text: "two"},
	}
	res := Select(hits, store, Options{MaxChunks: 10, MaxChars: 10000, MinEvidenceHits: 1, IncludeNeighbors: true, NeighborWindow: 1})
	if len(res.Items) != 3 {
		t.Fatalf("expected seed + 2 neighbors, got %d: %+v", len(res.Items), res.Items)
	}
	if res.Items[0].ChunkID != "D1::p0001::c000" || res.Items[1].ChunkID != "D1::p0002::c000" || res.Items[2].ChunkID != "D1::p0003::c000" {
		t.Fatalf("expected before/seed/after order, got %+v", res.Items)
	}
}

func TestSelectNeighborsRespectBudget(t *testing.T) {
	store := newStore(t)
	hits := []fusion.Hit{
		{ChunkID: "D1::p0002::c000", DocID: "D1", StartPage: 2, EndPage: 2, Score: 0.9, Text: "two"},
	}
	res := Select(hits, store, Options{MaxChunks: 2, MaxChars: 10000, MinEvidenceHits: 1, IncludeNeighbors: true, NeighborWindow: 1})
	if len(res.Items) != 2 {
		t.Fatalf("expected neighbor expansion bounded by MaxChunks=2, got %d: %+v", len(res.Items), res.Items)
	}
}
