package fusion

import (
	"testing"

	"github.com/citeq/citeq/internal/bm25"
	"github.com/citeq/citeq/internal/chunkstore"
)

func mkHit(cid, doc string, page int, text string) Hit {
	return Hit{ChunkID: cid, DocID: doc, StartPage: page, EndPage: page, Text: text}
}

func TestRRFBasicFusion(t *testing.T) {
	lexical := []Hit{mkHit("a", "D1", 1, "alpha"), mkHit("b", "D1", 2, "beta")}
	dense := []Hit{mkHit("b", "D1", 2, "beta"), mkHit("c", "D1", 3, "gamma")}

	fused := RRF([][]Hit{lexical, dense}, DefaultK0)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused hits, got %d", len(fused))
	}
	// b appears in both lists (rank1 in dense, rank2 in lexical) so should
	// score highest.
	if fused[0].ChunkID != "b" {
		t.Errorf("expected chunk b to rank first, got %q (fused=%v)", fused[0].ChunkID, fused)
	}
}

func TestRRFDeterministicAcrossRuns(t *testing.T) {
	lexical := []Hit{mkHit("z", "D2", 5, "z"), mkHit("a", "D1", 1, "a")}
	fused1 := RRF([][]Hit{lexical}, DefaultK0)
	// The same hits in reversed rank order; built for contrast only and
	// not compared, since rank changes the fused scores.
	lexical2 := []Hit{mkHit("a", "D1", 1, "a"), mkHit("z", "D2", 5, "z")}
	fused2 := RRF([][]Hit{lexical2}, DefaultK0)

	// Scores differ here (rank matters) but both should be internally
	// consistent and deterministic given the same input list, run twice.
	fused1b := RRF([][]Hit{lexical}, DefaultK0)
	for i := range fused1 {
		if fused1[i].ChunkID != fused1b[i].ChunkID {
			t.Fatalf("RRF not deterministic: %v vs %v", fused1, fused1b)
		}
	}
	_ = fused2
}

func TestRerankDisabledFallsThroughToFusedOrder(t *testing.T) {
	fused := []Hit{mkHit("a", "D1", 1, "alpha"), mkHit("b", "D1", 2, "beta")}
	out := Rerank("alpha", fused, 2, RerankConfig{Enabled: false}, nil)
	if len(out) != 2 || out[0].ChunkID != "a" || out[1].ChunkID != "b" {
		t.Fatalf("disabled rerank should preserve fused order, got %v", out)
	}
}

func TestRerankPrefersExactTokenPresence(t *testing.T) {
	store, err := chunkstore.New([]*chunkstore.Chunk{
		{ChunkID: "x", DocID: "D1", StartPage: 1, EndPage: 1, Text: "The ML-KEM.KeyGen algorithm begins.", VectorID: 0},
		{ChunkID: "y", DocID: "D1", StartPage: 2, EndPage: 2, Text: "An unrelated chunk about something else.", VectorID: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	idx := bm25.Build(store, bm25.DefaultK1, bm25.DefaultB)

	fused := []Hit{
		mkHit("y", "D1", 2, "An unrelated chunk about something else."),
		mkHit("x", "D1", 1, "The ML-KEM.KeyGen algorithm begins."),
	}
	out := Rerank("What is ML-KEM.KeyGen?", fused, 2, RerankConfig{Enabled: true, Pool: 2}, idx)
	if out[0].ChunkID != "x" {
		t.Fatalf("expected exact-token chunk x to rank first, got %v", out)
	}
}

func TestPerSourceK(t *testing.T) {
	if got := PerSourceK(10, 4); got != 40 {
		t.Errorf("PerSourceK(10,4) = %d, want 40", got)
	}
	if got := PerSourceK(10, 0); got != 10 {
		t.Errorf("PerSourceK(10,0) = %d, want 10 (floor at finalK)", got)
	}
}
