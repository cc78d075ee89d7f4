package cmd

import (
	"context"

	"github.com/citeq/citeq/internal/answer"
	"github.com/citeq/citeq/internal/chunkstore"
	"github.com/citeq/citeq/internal/citation"
	"github.com/citeq/citeq/internal/config"
	"github.com/citeq/citeq/internal/eval"
	"github.com/citeq/citeq/internal/evidence"
	"github.com/citeq/citeq/internal/metrics"
	"github.com/citeq/citeq/internal/retrieval"
)

// runAnswerStats runs the evidence-selection + answer-builder pass (C6,
// C7) over every scored row, the same single-round path `ask` uses, and
// returns the number of rows that ended in refusal. Used by `eval-run
// --with-answers` to report citation-grounded answer quality alongside
// the retrieval metrics. reg may be nil, in which case refusals are
// still counted and returned but not recorded to citeq_refusals_total.
func runAnswerStats(ctx context.Context, cfg *config.Config, store *chunkstore.Store, pipeline *retrieval.Pipeline, rows []eval.Row, reg *metrics.Registry) (refusals int, err error) {
	gen, err := buildGenerator(cfg)
	if err != nil {
		return 0, err
	}

	opts := evidence.Options{
		MaxChunks:        cfg.Answer.MaxContextChunks,
		MaxChars:         cfg.Answer.MaxContextChars,
		IncludeNeighbors: cfg.Answer.IncludeNeighborChunks,
		NeighborWindow:   cfg.Answer.NeighborWindow,
		MinEvidenceHits:  cfg.Answer.MinEvidenceHits,
	}

	for _, row := range rows {
		hits, rerr := pipeline.Retrieve(ctx, row.Question, cfg.Retrieval.TopK)
		if rerr != nil {
			return refusals, rerr
		}

		result := evidence.Select(hits, store, opts)
		if !result.Sufficient {
			refusals++
			if reg != nil {
				reg.RefusalsTotal.WithLabelValues("insufficient_evidence").Inc()
			}
			continue
		}

		ans, aerr := answer.Build(ctx, gen, row.Question, result.Items, hits)
		if aerr != nil {
			return refusals, aerr
		}
		if ans.Answer == citation.RefusalSentinel {
			refusals++
			if reg != nil {
				reg.RefusalsTotal.WithLabelValues("missing_citations").Inc()
			}
		}
	}
	return refusals, nil
}
