package dense

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

// PGVectorIndex is a Postgres/pgvector-backed Index (VECTOR_BACKEND=pgvector),
// for deployments where the dense index lives alongside the rest of the
// document store instead of an in-process graph. Grounded on
// TicoDavid-RAGbox.co's pgx/pgvector repository: embeddings keyed by
// vector_id, cosine distance via the `<=>` operator, ordered ascending
// distance with score = 1 - distance.
type PGVectorIndex struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
}

// PGVectorConfig configures the connection and schema for PGVectorIndex.
type PGVectorConfig struct {
	DSN       string
	Table     string
	Dimension int
}

// NewPGVectorIndex connects to Postgres and ensures the embeddings table
// and pgvector extension exist.
func NewPGVectorIndex(ctx context.Context, cfg PGVectorConfig) (*PGVectorIndex, error) {
	if cfg.Table == "" {
		cfg.Table = "citeq_embeddings"
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, "connect to pgvector", err)
	}

	idx := &PGVectorIndex{pool: pool, table: cfg.Table, dimension: cfg.Dimension}
	if err := idx.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *PGVectorIndex) ensureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS %s (
	vector_id INTEGER PRIMARY KEY,
	embedding vector(%d) NOT NULL
);
`, idx.table, idx.dimension)

	if _, err := idx.pool.Exec(ctx, stmt); err != nil {
		return citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, "ensure pgvector schema", err)
	}
	return nil
}

// Upsert replaces the embedding rows for the given vector IDs, used by
// ingest build when VECTOR_BACKEND=pgvector.
func (idx *PGVectorIndex) Upsert(ctx context.Context, vectors [][]float32) error {
	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, "begin pgvector upsert", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", idx.table)); err != nil {
		return citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, "truncate pgvector table", err)
	}

	for vectorID, vec := range vectors {
		if len(vec) != idx.dimension {
			return citeqerrors.New(citeqerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("vector %d: expected dimension %d, got %d", vectorID, idx.dimension, len(vec)), nil)
		}
		normalized := make([]float32, len(vec))
		copy(normalized, vec)
		Normalize(normalized)

		if _, err := tx.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s (vector_id, embedding) VALUES ($1, $2)", idx.table),
			vectorID, pgvector.NewVector(normalized),
		); err != nil {
			return citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, fmt.Sprintf("insert vector %d", vectorID), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, "commit pgvector upsert", err)
	}
	return nil
}

// Search implements Index using pgvector's cosine distance operator.
// Query vectors are L2-normalized the same way HNSWIndex normalizes them,
// so scores from either backend are comparable inner-product similarities.
func (idx *PGVectorIndex) Search(ctx context.Context, queryVector []float32, k int) ([]RawHit, error) {
	query := make([]float32, len(queryVector))
	copy(query, queryVector)
	Normalize(query)

	rows, err := idx.pool.Query(ctx, fmt.Sprintf(
		`SELECT vector_id, 1 - (embedding <=> $1) AS score
		 FROM %s
		 ORDER BY embedding <=> $1
		 LIMIT $2`, idx.table),
		pgvector.NewVector(query), k)
	if err != nil {
		return nil, citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, "pgvector search", err)
	}
	defer rows.Close()

	var hits []RawHit
	for rows.Next() {
		var h RawHit
		if err := rows.Scan(&h.VectorID, &h.Score); err != nil {
			return nil, citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, "scan pgvector row", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, citeqerrors.New(citeqerrors.ErrCodeDenseUnavailable, "iterate pgvector rows", err)
	}
	return hits, nil
}

// Close releases the connection pool.
func (idx *PGVectorIndex) Close() error {
	idx.pool.Close()
	return nil
}

var _ Index = (*PGVectorIndex)(nil)
