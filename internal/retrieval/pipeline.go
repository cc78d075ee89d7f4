// Package retrieval wires the query variant generator (C4), lexical and
// dense retrievers (C2, C3), and fusion/rerank (C5) into the single
// Retrieve call the control loop's Retriever interface names (spec
// §4.8). No teacher file wires this exact chain end to end — it's
// assembled here from the already-wired C2-C5 components, the way the
// control loop's own design note expects a composition layer above it.
package retrieval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/citeq/citeq/internal/bm25"
	"github.com/citeq/citeq/internal/dense"
	"github.com/citeq/citeq/internal/fusion"
	"github.com/citeq/citeq/internal/variant"
)

// DenseSearcher is the query-string-level dense search contract, matched
// by *dense.Adapter.
type DenseSearcher interface {
	Search(ctx context.Context, query string, k int) ([]dense.Hit, error)
}

// Config mirrors internal/config.Retrieval (spec §6), kept separate so
// this package doesn't depend on the config layer directly.
type Config struct {
	Mode                string // "base" (lexical only) or "hybrid" (lexical + dense)
	QueryFusion         bool
	RRFK0               int
	CandidateMultiplier int
	EnableRerank        bool
	RerankPool          int
}

// Pipeline implements control.Retriever by composing C2-C5.
type Pipeline struct {
	BM25  *bm25.Index
	Dense DenseSearcher // nil when running lexical-only (search --backend bm25)
	Cfg   Config
}

// Retrieve runs one full retrieval pass for query: variant expansion,
// per-variant lexical/dense search, RRF fusion, and optional rerank,
// returning at most finalK hits (fewer when fewer candidates are found). The per-variant searches
// fan out concurrently via errgroup, since BM25 and dense search for one
// variant are independent of every other variant's.
func (p *Pipeline) Retrieve(ctx context.Context, query string, finalK int) ([]fusion.Hit, error) {
	variants := []string{query}
	if p.Cfg.QueryFusion {
		variants = variant.Generate(query)
	}

	perSourceK := fusion.PerSourceK(finalK, p.Cfg.CandidateMultiplier)

	// perVariant[i] holds this variant's lists (BM25, then dense), kept
	// separate so goroutines never share a slice.
	perVariant := make([][][]fusion.Hit, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			var out [][]fusion.Hit
			if p.BM25 != nil {
				out = append(out, fusion.FromBM25(p.BM25.Search(v, perSourceK)))
			}
			if p.Cfg.Mode == "hybrid" && p.Dense != nil {
				denseHits, err := p.Dense.Search(gctx, v, perSourceK)
				if err != nil {
					return err
				}
				out = append(out, fusion.FromDense(denseHits))
			}
			perVariant[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var lists [][]fusion.Hit
	for _, out := range perVariant {
		lists = append(lists, out...)
	}

	fused := fusion.RRF(lists, p.Cfg.RRFK0)

	rerankCfg := fusion.RerankConfig{Enabled: p.Cfg.EnableRerank, Pool: p.Cfg.RerankPool}
	return fusion.Rerank(query, fused, finalK, rerankCfg, p.BM25), nil
}
