package cmd

import (
	"context"
	"path/filepath"

	"github.com/citeq/citeq/internal/bm25"
	"github.com/citeq/citeq/internal/chunkstore"
	"github.com/citeq/citeq/internal/config"
	"github.com/citeq/citeq/internal/dense"
	"github.com/citeq/citeq/internal/embed"
	"github.com/citeq/citeq/internal/generate"
	"github.com/citeq/citeq/internal/retrieval"
)

func chunkStorePath() string { return filepath.Join(dataDir, "chunks.jsonl") }
func bm25ArtifactPath() string { return filepath.Join(dataDir, "bm25.artifact") }
func hnswIndexPath() string   { return filepath.Join(dataDir, "vectors.hnsw") }

func loadStore() (*chunkstore.Store, error) {
	return chunkstore.Load(chunkStorePath())
}

func loadBM25() (*bm25.Index, error) {
	return bm25.Load(bm25ArtifactPath())
}

// denseBackend selects which dense.Index VECTOR_BACKEND configures and
// wraps it in an Adapter so the pipeline sees the string-query contract.
// backendOverride lets search --backend={faiss,bm25} force lexical-only
// without touching the configured VECTOR_BACKEND (spec §6): "faiss"
// means "whichever dense backend is configured", "bm25" means lexical
// only (a nil return, no error).
func denseSearcher(ctx context.Context, cfg *config.Config, store *chunkstore.Store, backendOverride string) (retrieval.DenseSearcher, func() error, error) {
	if backendOverride == "bm25" {
		return nil, func() error { return nil }, nil
	}

	embedCfg := embed.DefaultOpenAIConfig()
	var embedder embed.QueryEmbedder = embed.NewOpenAIEmbedder(embedCfg)
	embedder = embed.NewCachedQueryEmbedder(embedder, 0)

	var idx dense.Index
	var err error
	switch cfg.Retrieval.VectorBackend {
	case "pgvector":
		idx, err = dense.NewPGVectorIndex(ctx, dense.PGVectorConfig{
			DSN:       cfg.Retrieval.PostgresDSN,
			Dimension: embedCfg.Dimension,
		})
	default:
		idx, err = dense.LoadHNSWIndex(hnswIndexPath(), dense.DefaultHNSWConfig())
	}
	if err != nil {
		return nil, nil, err
	}

	adapter := &dense.Adapter{Index: idx, Embedder: embedder, Store: store}
	return adapter, idx.Close, nil
}

func buildRetriever(ctx context.Context, cfg *config.Config, store *chunkstore.Store, backendOverride string) (*retrieval.Pipeline, func() error, error) {
	idx, err := loadBM25()
	if err != nil {
		return nil, nil, err
	}

	mode := cfg.Retrieval.Mode
	if backendOverride == "bm25" {
		mode = "base"
	}

	denseIdx, closeDense, err := denseSearcher(ctx, cfg, store, backendOverride)
	if err != nil {
		return nil, nil, err
	}

	pipeline := &retrieval.Pipeline{
		BM25:  idx,
		Dense: denseIdx,
		Cfg: retrieval.Config{
			Mode:                mode,
			QueryFusion:         cfg.Retrieval.QueryFusion,
			RRFK0:               cfg.Retrieval.RRFK0,
			CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
			EnableRerank:        cfg.Retrieval.EnableRerank,
			RerankPool:          cfg.Retrieval.RerankPool,
		},
	}
	return pipeline, closeDense, nil
}

func buildGenerator(cfg *config.Config) (generate.Generator, error) {
	return generate.New(cfg.Generator.Backend, cfg.Generator.Temperature)
}
