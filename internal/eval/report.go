package eval

import (
	"encoding/json"
	"fmt"
	"io"
)

// AtK holds every metric computed at one cutoff k.
type AtK struct {
	K              int     `json:"k"`
	Recall         float64 `json:"recall"`
	MRR            float64 `json:"mrr"`
	NDCG           float64 `json:"ndcg"`
	DocOnlyRecall  float64 `json:"doc_only_recall"`
	NearPageRecall float64 `json:"near_page_recall"`
}

// QuestionResult is one per_question.jsonl record.
type QuestionResult struct {
	QID      string `json:"qid"`
	Question string `json:"question"`
	Metrics  []AtK  `json:"metrics"`
}

// Summary is the summary.json payload, with a deliberately fixed field
// and slice order so two runs with identical inputs serialize
// byte-identically (spec §4.10, §8 S6).
type Summary struct {
	DatasetSize       int      `json:"dataset_size"`
	ScoredCount       int      `json:"scored_count"`
	SkippedQIDs       []string `json:"skipped_qids"`
	NearPageTolerance int      `json:"near_page_tolerance"`
	Metrics           []AtK    `json:"metrics"`
}

// ComputeQuestionResult scores one dataset row against its retrieved
// hits at every cutoff in ks.
func ComputeQuestionResult(row Row, hits []Hit, ks []int, nearPageTolerance int) QuestionResult {
	metrics := make([]AtK, 0, len(ks))
	for _, k := range ks {
		metrics = append(metrics, AtK{
			K:              k,
			Recall:         RecallAtK(hits, row.Gold, k),
			MRR:            MRRAtK(hits, row.Gold, k),
			NDCG:           NDCGAtK(hits, row.Gold, k),
			DocOnlyRecall:  DocOnlyRecallAtK(hits, row.Gold, k),
			NearPageRecall: NearPageRecallAtK(hits, row.Gold, k, nearPageTolerance),
		})
	}
	return QuestionResult{QID: row.QID, Question: row.Question, Metrics: metrics}
}

// ComputeSummary aggregates per-question results into dataset-level
// means at each cutoff.
func ComputeSummary(results []QuestionResult, ks []int, datasetSize int, skipped []string, nearPageTolerance int) Summary {
	summary := Summary{
		DatasetSize:       datasetSize,
		ScoredCount:       len(results),
		SkippedQIDs:       skipped,
		NearPageTolerance: nearPageTolerance,
		Metrics:           make([]AtK, 0, len(ks)),
	}
	if summary.SkippedQIDs == nil {
		summary.SkippedQIDs = []string{}
	}

	for _, k := range ks {
		var agg AtK
		agg.K = k
		for _, r := range results {
			for _, m := range r.Metrics {
				if m.K != k {
					continue
				}
				agg.Recall += m.Recall
				agg.MRR += m.MRR
				agg.NDCG += m.NDCG
				agg.DocOnlyRecall += m.DocOnlyRecall
				agg.NearPageRecall += m.NearPageRecall
			}
		}
		if n := float64(len(results)); n > 0 {
			agg.Recall /= n
			agg.MRR /= n
			agg.NDCG /= n
			agg.DocOnlyRecall /= n
			agg.NearPageRecall /= n
		}
		summary.Metrics = append(summary.Metrics, agg)
	}
	return summary
}

// WritePerQuestionJSONL writes one JSON object per line, in the order
// given (callers pass results already in qid_sort_key order, matching
// the dataset load order).
func WritePerQuestionJSONL(w io.Writer, results []QuestionResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummaryJSON writes the deterministic summary.json payload.
func WriteSummaryJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// WriteSummaryMarkdown writes a human-readable Markdown table mirroring
// summary.json.
func WriteSummaryMarkdown(w io.Writer, summary Summary) error {
	if _, err := fmt.Fprintf(w, "# Evaluation Summary\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "- dataset_size: %d\n- scored: %d\n- skipped: %d\n- near_page_tolerance: %d\n\n",
		summary.DatasetSize, summary.ScoredCount, len(summary.SkippedQIDs), summary.NearPageTolerance); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "| k | recall | mrr | ndcg | doc_only_recall | near_page_recall |\n|---|---|---|---|---|---|\n"); err != nil {
		return err
	}
	for _, m := range summary.Metrics {
		if _, err := fmt.Fprintf(w, "| %d | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
			m.K, m.Recall, m.MRR, m.NDCG, m.DocOnlyRecall, m.NearPageRecall); err != nil {
			return err
		}
	}
	return nil
}
