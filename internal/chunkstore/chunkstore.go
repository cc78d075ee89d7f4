// Package chunkstore implements the chunk store (C1): an in-memory,
// read-only mapping from chunk_id and vector_id to chunk metadata and
// text, built once at startup from the chunk-store artifact produced by
// the (out of scope) chunker.
package chunkstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

// Chunk is a retrievable, citation-addressable unit of corpus text.
// Immutable after the store is built.
type Chunk struct {
	ChunkID   string `json:"chunk_id"`
	DocID     string `json:"doc_id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	Text      string `json:"text"`
	VectorID  int    `json:"vector_id"`
}

// FormatChunkID composes the canonical chunk_id: {doc_id}::p{page:04d}::c{idx:03d}.
func FormatChunkID(docID string, page, idx int) string {
	return fmt.Sprintf("%s::p%04d::c%03d", docID, page, idx)
}

// Store is the read-only chunk store, indexed by chunk_id and by the
// dense-aligned vector_id.
type Store struct {
	byChunkID  map[string]*Chunk
	byVectorID []*Chunk // index i holds the chunk with vector_id == i
}

// New builds a Store from an already-loaded, unordered slice of chunks,
// validating the invariants from spec §3: chunk_id uniqueness, a
// contiguous vector_id range [0, N), and ascending-vector_id iteration
// order.
func New(chunks []*Chunk) (*Store, error) {
	byVectorID := make([]*Chunk, len(chunks))
	byChunkID := make(map[string]*Chunk, len(chunks))
	seen := make([]bool, len(chunks))

	for _, c := range chunks {
		if c.VectorID < 0 || c.VectorID >= len(chunks) {
			return nil, citeqerrors.DatasetError(
				fmt.Sprintf("chunk %s has out-of-range vector_id %d (corpus size %d)", c.ChunkID, c.VectorID, len(chunks)), nil)
		}
		if seen[c.VectorID] {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("duplicate vector_id %d", c.VectorID), nil)
		}
		seen[c.VectorID] = true

		if _, dup := byChunkID[c.ChunkID]; dup {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("duplicate chunk_id %s", c.ChunkID), nil)
		}
		if c.Text == "" {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("chunk %s has empty text", c.ChunkID), nil)
		}
		if c.StartPage < 1 || c.EndPage < c.StartPage {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("chunk %s has invalid page span [%d,%d]", c.ChunkID, c.StartPage, c.EndPage), nil)
		}

		byChunkID[c.ChunkID] = c
		byVectorID[c.VectorID] = c
	}

	for i, ok := range seen {
		if !ok {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("vector_id range is not contiguous: %d missing", i), nil)
		}
	}

	return &Store{byChunkID: byChunkID, byVectorID: byVectorID}, nil
}

// Load reads the line-JSON chunk-store artifact (spec §6) and builds a
// Store from it.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, citeqerrors.DatasetError(fmt.Sprintf("open chunk store %s", path), err)
	}
	defer f.Close()
	return LoadFrom(f)
}

// LoadFrom reads line-JSON chunk records from r.
func LoadFrom(r io.Reader) (*Store, error) {
	var chunks []*Chunk
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		var c Chunk
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("chunk store line %d: malformed JSON", line), err)
		}
		chunks = append(chunks, &c)
	}
	if err := scanner.Err(); err != nil {
		return nil, citeqerrors.DatasetError("read chunk store", err)
	}

	return New(chunks)
}

// GetByChunkID returns the chunk for chunkID, if present.
func (s *Store) GetByChunkID(chunkID string) (*Chunk, bool) {
	c, ok := s.byChunkID[chunkID]
	return c, ok
}

// GetByVectorID returns the chunk for vectorID, if present.
func (s *Store) GetByVectorID(vectorID int) (*Chunk, bool) {
	if vectorID < 0 || vectorID >= len(s.byVectorID) {
		return nil, false
	}
	return s.byVectorID[vectorID], true
}

// Len returns the number of chunks in the store.
func (s *Store) Len() int { return len(s.byVectorID) }

// All returns every chunk in ascending vector_id order — the store's
// deterministic iteration order.
func (s *Store) All() []*Chunk {
	out := make([]*Chunk, len(s.byVectorID))
	copy(out, s.byVectorID)
	return out
}

// Neighbors returns up to `window` same-document chunks immediately
// before and immediately after chunkID's vector_id, never crossing a
// doc_id boundary. Neighbors never merge into the seed chunk; each keeps
// its own chunk_id.
func (s *Store) Neighbors(chunkID string, window int) []*Chunk {
	seed, ok := s.byChunkID[chunkID]
	if !ok || window <= 0 {
		return nil
	}

	var out []*Chunk
	for offset := -window; offset <= window; offset++ {
		if offset == 0 {
			continue
		}
		vid := seed.VectorID + offset
		c, ok := s.GetByVectorID(vid)
		if !ok || c.DocID != seed.DocID {
			continue
		}
		out = append(out, c)
	}
	return out
}
