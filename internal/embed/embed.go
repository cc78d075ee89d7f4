// Package embed wraps the OpenAI embeddings endpoint behind the
// QueryEmbedder contract the dense retriever adapter (C3) needs to turn a
// query string into the vector the index searches against. Corpus
// embeddings themselves are produced offline by ingest build and are out
// of scope here (spec §4.3 takes the dense index as a given).
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// QueryEmbedder turns a query string into an embedding vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// OpenAIConfig configures OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// DefaultOpenAIConfig returns the embedding model citeq is built against.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{Model: "text-embedding-3-small", Dimension: 1536}
}

// OpenAIEmbedder implements QueryEmbedder via the OpenAI embeddings API.
// Grounded on sweetpotato0-ai-allin/contrib/embedder/openai/openai.go:
// client construction mirrors internal/generate's OpenAI adapter so both
// adapters share one client-construction idiom.
type OpenAIEmbedder struct {
	client    openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// NewOpenAIEmbedder constructs an OpenAI-backed QueryEmbedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg = DefaultOpenAIConfig()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     openai.EmbeddingModel(cfg.Model),
		dimension: cfg.Dimension,
	}
}

// Dimension implements QueryEmbedder.
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Embed implements QueryEmbedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embed: no embedding returned")
	}

	vec := make([]float32, e.dimension)
	for i := 0; i < len(resp.Data[0].Embedding) && i < e.dimension; i++ {
		vec[i] = float32(resp.Data[0].Embedding[i])
	}
	return vec, nil
}

var _ QueryEmbedder = (*OpenAIEmbedder)(nil)

// defaultQueryCacheSize bounds the cached-query embedder's LRU, sized for
// the repeated-rephrasing-and-refinement traffic spec §4.8's control loop
// generates against one corpus (a handful of variants per question, a
// handful of refine rounds).
const defaultQueryCacheSize = 512

// CachedQueryEmbedder wraps a QueryEmbedder with an in-process LRU cache
// keyed on the exact query string, avoiding a redundant embedding call
// when the query variant generator (C4) or control loop's refine node
// re-issues a question it has already embedded this run. Grounded on the
// teacher's CachedEmbedder (internal/embed/cached.go, now removed — see
// DESIGN.md) which wrapped the same Embedder contract with the same
// hashicorp/golang-lru cache, adapted here to the smaller QueryEmbedder
// surface.
type CachedQueryEmbedder struct {
	inner QueryEmbedder
	cache *lru.Cache[string, []float32]
}

// NewCachedQueryEmbedder wraps inner with an LRU cache of the given size.
// A non-positive size falls back to defaultQueryCacheSize.
func NewCachedQueryEmbedder(inner QueryEmbedder, size int) *CachedQueryEmbedder {
	if size <= 0 {
		size = defaultQueryCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedQueryEmbedder{inner: inner, cache: cache}
}

// Dimension implements QueryEmbedder.
func (c *CachedQueryEmbedder) Dimension() int { return c.inner.Dimension() }

// Embed implements QueryEmbedder, serving from cache on repeat queries.
func (c *CachedQueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, v)
	return v, nil
}

var _ QueryEmbedder = (*CachedQueryEmbedder)(nil)
