package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citeq/citeq/internal/answer"
	"github.com/citeq/citeq/internal/citation"
	"github.com/citeq/citeq/internal/evidence"
)

type askOptions struct {
	json         bool
	showEvidence bool
	saveJSON     string
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Retrieve evidence and generate one cited answer",
		Long: `ask runs a single retrieval + evidence-selection + answer-builder pass
(C2-C7) and prints the answer with its citations, or the refusal sentinel
when the corpus doesn't support a cited answer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print the answer as JSON (citation.AnswerResult)")
	cmd.Flags().BoolVar(&opts.showEvidence, "show-evidence", false, "print the selected evidence items before the answer")
	cmd.Flags().StringVar(&opts.saveJSON, "save-json", "", "also write the JSON answer to this path")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts askOptions) error {
	ctx := cmd.Context()
	cfg := appConfig

	store, err := loadStore()
	if err != nil {
		return err
	}

	pipeline, closeDense, err := buildRetriever(ctx, cfg, store, "faiss")
	if err != nil {
		return err
	}
	defer closeDense()

	hits, err := pipeline.Retrieve(ctx, question, cfg.Retrieval.TopK)
	if err != nil {
		return err
	}

	result := evidence.Select(hits, store, evidence.Options{
		MaxChunks:        cfg.Answer.MaxContextChunks,
		MaxChars:         cfg.Answer.MaxContextChars,
		IncludeNeighbors: cfg.Answer.IncludeNeighborChunks,
		NeighborWindow:   cfg.Answer.NeighborWindow,
		MinEvidenceHits:  cfg.Answer.MinEvidenceHits,
	})

	if opts.showEvidence {
		for _, item := range result.Items {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s p%d-p%d: %s\n", item.Key, item.DocID, item.StartPage, item.EndPage, item.Text)
		}
	}

	var answerResult citation.AnswerResult
	if !result.Sufficient {
		answerResult = citation.AnswerResult{Answer: citation.RefusalSentinel}
	} else {
		gen, err := buildGenerator(cfg)
		if err != nil {
			return err
		}
		answerResult, err = answer.Build(ctx, gen, question, result.Items, hits)
		if err != nil {
			return err
		}
	}

	if err := citation.Validate(answerResult, cfg.Answer.RequireCitations); err != nil {
		return err
	}

	if err := writeAnswer(cmd, answerResult, opts); err != nil {
		return err
	}
	return nil
}

func writeAnswer(cmd *cobra.Command, result citation.AnswerResult, opts askOptions) error {
	if opts.json || opts.saveJSON != "" {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		if opts.json {
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		}
		if opts.saveJSON != "" {
			if err := os.WriteFile(opts.saveJSON, payload, 0644); err != nil {
				return err
			}
		}
		if opts.json {
			return nil
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
	for _, c := range result.Citations {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s p%d-p%d (%s)\n", c.Key, c.DocID, c.StartPage, c.EndPage, c.ChunkID)
	}
	return nil
}
