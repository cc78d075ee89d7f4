package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citeq/citeq/internal/eval"
	citeqerrors "github.com/citeq/citeq/internal/errors"
	"github.com/citeq/citeq/internal/metrics"
	"github.com/citeq/citeq/internal/obslog"
)

type evalRunOptions struct {
	dataset           string
	ks                string
	withAnswers       bool
	nearPageTolerance int
	allowUnlabeled    bool
	outDir            string
	metricsOut        string
}

func newEvalRunCmd() *cobra.Command {
	var opts evalRunOptions

	cmd := &cobra.Command{
		Use:   "eval-run",
		Short: "Score retrieval (and optionally answers) against a labeled dataset (C10)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvalRun(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "path to the line-JSON evaluation dataset (required)")
	cmd.Flags().StringVar(&opts.ks, "ks", "1,3,5,10", "comma-separated cutoffs to score at")
	cmd.Flags().BoolVar(&opts.withAnswers, "with-answers", false, "also run the answer builder and report refusal/citation stats")
	cmd.Flags().IntVar(&opts.nearPageTolerance, "near-page-tolerance", 1, "page tolerance for near_page_recall")
	cmd.Flags().BoolVar(&opts.allowUnlabeled, "allow-unlabeled", false, "accept dataset rows with answerable=true and empty gold (skipped either way)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "directory to write per_question.jsonl, summary.json, summary.md into")
	cmd.Flags().StringVar(&opts.metricsOut, "metrics-out", "", "write citeq_* Prometheus metrics (text exposition format) to this path")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

func parseKs(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ks := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, citeqerrors.ConfigError(fmt.Sprintf("invalid --ks value %q", p), err)
		}
		ks = append(ks, n)
	}
	return ks, nil
}

func runEvalRun(cmd *cobra.Command, opts evalRunOptions) error {
	ctx := cmd.Context()
	cfg := appConfig

	ks, err := parseKs(opts.ks)
	if err != nil {
		return err
	}

	rows, err := eval.LoadDatasetFile(opts.dataset)
	if err != nil {
		return err
	}
	if !opts.allowUnlabeled {
		for _, row := range rows {
			if row.Answerable && len(row.Gold) == 0 {
				return citeqerrors.DatasetError(fmt.Sprintf("qid %q is answerable but carries no gold spans; pass --allow-unlabeled to score the rest of the dataset anyway", row.QID), nil)
			}
		}
	}

	store, err := loadStore()
	if err != nil {
		return err
	}
	pipeline, closeDense, err := buildRetriever(ctx, cfg, store, "faiss")
	if err != nil {
		return err
	}
	defer closeDense()

	fetch := func(question string, k int) ([]eval.Hit, error) {
		hits, err := pipeline.Retrieve(ctx, question, k)
		if err != nil {
			return nil, err
		}
		out := make([]eval.Hit, len(hits))
		for i, h := range hits {
			out[i] = eval.Hit{DocID: h.DocID, StartPage: h.StartPage, EndPage: h.EndPage}
		}
		return out, nil
	}

	logger := obslog.NewBatchLogger("info")
	results, skipped, err := eval.Run(rows, fetch, ks, opts.nearPageTolerance, logger)
	if err != nil {
		return err
	}

	summary := eval.ComputeSummary(results, ks, len(rows), skipped, opts.nearPageTolerance)

	if err := writeEvalOutputs(opts.outDir, results, summary); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "scored %d/%d questions (%d skipped)\n", summary.ScoredCount, summary.DatasetSize, len(summary.SkippedQIDs))

	var reg *metrics.Registry
	if opts.metricsOut != "" {
		reg = metrics.New()
	}

	if opts.withAnswers {
		scored, _ := eval.ScoringRows(rows)
		refusals, err := runAnswerStats(ctx, cfg, store, pipeline, scored, reg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "answers: %d/%d refused\n", refusals, len(scored))
	}

	if reg != nil {
		if err := reg.WriteTextFile(opts.metricsOut); err != nil {
			return err
		}
	}
	return nil
}

func writeEvalOutputs(outDir string, results []eval.QuestionResult, summary eval.Summary) error {
	perQuestion, err := os.Create(filepath.Join(outDir, "per_question.jsonl"))
	if err != nil {
		return err
	}
	defer perQuestion.Close()
	if err := eval.WritePerQuestionJSONL(perQuestion, results); err != nil {
		return err
	}

	summaryJSON, err := os.Create(filepath.Join(outDir, "summary.json"))
	if err != nil {
		return err
	}
	defer summaryJSON.Close()
	if err := eval.WriteSummaryJSON(summaryJSON, summary); err != nil {
		return err
	}

	summaryMD, err := os.Create(filepath.Join(outDir, "summary.md"))
	if err != nil {
		return err
	}
	defer summaryMD.Close()
	return eval.WriteSummaryMarkdown(summaryMD, summary)
}
