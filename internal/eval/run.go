package eval

import (
	"github.com/rs/zerolog"
)

// HitFetcher retrieves the top-k hits for a question, independent of
// which retrieval backend (BM25, dense, fused) the caller wired up.
type HitFetcher func(question string, k int) ([]Hit, error)

// Run scores every row in scope (spec §4.10 "Scoring scope") against
// fetch, logging batch progress with zerolog the way the teacher logs
// long-running background work. maxK is the largest cutoff in ks; it
// bounds the single retrieval call per row.
func Run(rows []Row, fetch HitFetcher, ks []int, nearPageTolerance int, logger zerolog.Logger) (results []QuestionResult, skipped []string, err error) {
	scored, skippedQIDs := ScoringRows(rows)

	maxK := 0
	for _, k := range ks {
		if k > maxK {
			maxK = k
		}
	}

	results = make([]QuestionResult, 0, len(scored))
	for i, row := range scored {
		hits, ferr := fetch(row.Question, maxK)
		if ferr != nil {
			logger.Error().Str("qid", row.QID).Err(ferr).Msg("retrieval failed during eval run")
			return nil, nil, ferr
		}
		results = append(results, ComputeQuestionResult(row, hits, ks, nearPageTolerance))

		if (i+1)%10 == 0 || i == len(scored)-1 {
			logger.Info().
				Int("completed", i+1).
				Int("total", len(scored)).
				Msg("eval-run progress")
		}
	}

	return results, skippedQIDs, nil
}
