package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/citeq/citeq/internal/bm25"
	"github.com/citeq/citeq/internal/chunkstore"
	"github.com/citeq/citeq/internal/config"
	"github.com/citeq/citeq/internal/dense"
	"github.com/citeq/citeq/internal/embed"
)

type ingestBuildOptions struct {
	k1      float64
	b       float64
	backend string
}

func newIngestCmd() *cobra.Command {
	ingest := &cobra.Command{
		Use:   "ingest",
		Short: "Build retrieval artifacts from an existing chunk store",
	}
	ingest.AddCommand(newIngestBuildCmd())
	return ingest
}

func newIngestBuildCmd() *cobra.Command {
	var opts ingestBuildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the BM25 artifact and dense index from <data-dir>/chunks.jsonl",
		Long: `build reads the chunk-store artifact the (out-of-scope) chunker already
produced at <data-dir>/chunks.jsonl, builds the BM25 index (C2) over it,
embeds every chunk's text, and writes the resulting dense index (C3) —
either an HNSW graph at <data-dir>/vectors.hnsw or, with
--backend pgvector, rows in the configured Postgres table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestBuild(cmd, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.k1, "k1", 1.2, "BM25 k1 parameter")
	cmd.Flags().Float64Var(&opts.b, "b", 0.75, "BM25 b parameter")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "dense backend to build: hnsw or pgvector (default: config vector_backend)")

	return cmd
}

func runIngestBuild(cmd *cobra.Command, opts ingestBuildOptions) error {
	ctx := cmd.Context()
	cfg := appConfig

	store, err := chunkstore.Load(chunkStorePath())
	if err != nil {
		return err
	}

	idx := bm25.Build(store, opts.k1, opts.b)
	if err := idx.Save(bm25ArtifactPath()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "bm25 artifact written: %d chunks, %d vocab terms\n", store.Len(), idx.Stats().TermCount)

	backend := opts.backend
	if backend == "" {
		backend = cfg.Retrieval.VectorBackend
	}

	vectors, err := embedCorpus(ctx, store)
	if err != nil {
		return err
	}

	switch backend {
	case "pgvector":
		if err := buildPGVectorIndex(ctx, cfg, vectors); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pgvector index populated: %d vectors\n", len(vectors))
	default:
		hnswIdx, err := dense.NewHNSWIndex(vectors, dense.DefaultHNSWConfig())
		if err != nil {
			return err
		}
		if err := dense.SaveHNSWIndex(hnswIdx, hnswIndexPath()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "hnsw index written: %d vectors\n", len(vectors))
	}

	return nil
}

func embedCorpus(ctx context.Context, store *chunkstore.Store) ([][]float32, error) {
	cfg := embed.DefaultOpenAIConfig()
	embedder := embed.NewOpenAIEmbedder(cfg)

	chunks := store.All()
	vectors := make([][]float32, len(chunks))
	for _, c := range chunks {
		vec, err := embedder.Embed(ctx, c.Text)
		if err != nil {
			return nil, err
		}
		vectors[c.VectorID] = vec
	}
	return vectors, nil
}

func buildPGVectorIndex(ctx context.Context, cfg *config.Config, vectors [][]float32) error {
	embedCfg := embed.DefaultOpenAIConfig()
	idx, err := dense.NewPGVectorIndex(ctx, dense.PGVectorConfig{
		DSN:       cfg.Retrieval.PostgresDSN,
		Dimension: embedCfg.Dimension,
	})
	if err != nil {
		return err
	}
	defer idx.Close()
	return idx.Upsert(ctx, vectors)
}
