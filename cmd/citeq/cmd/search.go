package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type searchOptions struct {
	mode                string
	backend             string
	k                   int
	candidateMultiplier int
	k0                  int
	noQueryFusion       bool
	noRerank            bool
	rerankPool          int
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run retrieval only and print the ranked hits",
		Long: `search runs one retrieval pass (C2-C5: lexical, dense, fusion, and
optional rerank) and prints the ranked hits without generating an answer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "", "retrieval mode: base or hybrid (default: config)")
	cmd.Flags().StringVar(&opts.backend, "backend", "faiss", "dense backend to use: faiss or bm25")
	cmd.Flags().IntVar(&opts.k, "k", 0, "number of hits to return (default: config top_k)")
	cmd.Flags().IntVar(&opts.candidateMultiplier, "candidate-multiplier", 0, "per-source candidate multiplier (default: config)")
	cmd.Flags().IntVar(&opts.k0, "k0", 0, "RRF k0 constant (default: config)")
	cmd.Flags().BoolVar(&opts.noQueryFusion, "no-query-fusion", false, "disable query variant generation (C4)")
	cmd.Flags().BoolVar(&opts.noRerank, "no-rerank", false, "disable lexical overlap rerank (C5)")
	cmd.Flags().IntVar(&opts.rerankPool, "rerank-pool", 0, "rerank candidate pool size (default: config)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	ctx := cmd.Context()

	store, err := loadStore()
	if err != nil {
		return err
	}

	cfg := *appConfig
	if opts.mode != "" {
		cfg.Retrieval.Mode = opts.mode
	}
	if opts.k > 0 {
		cfg.Retrieval.TopK = opts.k
	}
	if opts.candidateMultiplier > 0 {
		cfg.Retrieval.CandidateMultiplier = opts.candidateMultiplier
	}
	if opts.k0 > 0 {
		cfg.Retrieval.RRFK0 = opts.k0
	}
	if opts.noQueryFusion {
		cfg.Retrieval.QueryFusion = false
	}
	if opts.noRerank {
		cfg.Retrieval.EnableRerank = false
	}
	if opts.rerankPool > 0 {
		cfg.Retrieval.RerankPool = opts.rerankPool
	}

	pipeline, closeDense, err := buildRetriever(ctx, &cfg, store, opts.backend)
	if err != nil {
		return err
	}
	defer closeDense()

	hits, err := pipeline.Retrieve(ctx, query, cfg.Retrieval.TopK)
	if err != nil {
		return err
	}

	color := isColorTerminal()
	for _, h := range hits {
		preview := h.Text
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		score := bold(color, fmt.Sprintf("%.4f", h.Score))
		loc := dim(color, fmt.Sprintf("(%s)", h.ChunkID))
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  p%d-p%d  %s  %s\n",
			score, h.DocID, h.StartPage, h.EndPage, loc, preview)
	}
	return nil
}
