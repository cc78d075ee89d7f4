package dense

import (
	"context"
	"fmt"
	"os"

	"github.com/coder/hnsw"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

// HNSWIndex is an in-process dense index backed by coder/hnsw, used for
// local and offline runs (VECTOR_BACKEND=hnsw).
type HNSWIndex struct {
	graph *hnsw.Graph[uint64]
}

// HNSWConfig mirrors the graph construction parameters the teacher's
// vector store exposes.
type HNSWConfig struct {
	M        int
	EfSearch int
}

// DefaultHNSWConfig returns coder/hnsw's recommended defaults.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfSearch: 20}
}

// NewHNSWIndex builds an HNSW graph from vectors indexed by vector_id
// (row 0..N-1, matching the chunk store's contiguous vector_id range).
// Every vector is L2-normalized before insertion so the graph's distance
// function computes cosine similarity via inner product.
func NewHNSWIndex(vectors [][]float32, cfg HNSWConfig) (*HNSWIndex, error) {
	if cfg.M == 0 {
		cfg = DefaultHNSWConfig()
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	for vectorID, vec := range vectors {
		normalized := make([]float32, len(vec))
		copy(normalized, vec)
		Normalize(normalized)
		graph.Add(hnsw.MakeNode(uint64(vectorID), normalized))
	}

	return &HNSWIndex{graph: graph}, nil
}

// Search implements Index. Scores are cosine similarity in [-1, 1],
// derived from coder/hnsw's cosine distance (1 - similarity).
func (idx *HNSWIndex) Search(ctx context.Context, queryVector []float32, k int) ([]RawHit, error) {
	if idx.graph.Len() == 0 {
		return nil, nil
	}

	query := make([]float32, len(queryVector))
	copy(query, queryVector)
	Normalize(query)

	nodes := idx.graph.Search(query, k)
	hits := make([]RawHit, 0, len(nodes))
	for _, node := range nodes {
		distance := idx.graph.Distance(query, node.Value)
		hits = append(hits, RawHit{VectorID: int(node.Key), Score: 1 - float64(distance)})
	}
	return hits, nil
}

// Close releases graph resources.
func (idx *HNSWIndex) Close() error {
	idx.graph = nil
	return nil
}

// SaveHNSWIndex persists the graph to path using coder/hnsw's own binary
// export format.
func SaveHNSWIndex(idx *HNSWIndex, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return citeqerrors.RetrievalError(fmt.Sprintf("create hnsw index file %s", path), err)
	}
	defer f.Close()

	if err := idx.graph.Export(f); err != nil {
		return citeqerrors.RetrievalError(fmt.Sprintf("export hnsw graph to %s", path), err)
	}
	return nil
}

// LoadHNSWIndex reconstructs a graph previously written by
// SaveHNSWIndex.
func LoadHNSWIndex(path string, cfg HNSWConfig) (*HNSWIndex, error) {
	if cfg.M == 0 {
		cfg = DefaultHNSWConfig()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, citeqerrors.RetrievalError(fmt.Sprintf("open hnsw index file %s", path), err)
	}
	defer f.Close()

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	if err := graph.Import(f); err != nil {
		return nil, citeqerrors.Wrap(citeqerrors.ErrCodeArtifactCorrupt, fmt.Errorf("import hnsw graph from %s: %w", path, err))
	}

	return &HNSWIndex{graph: graph}, nil
}

var _ Index = (*HNSWIndex)(nil)
