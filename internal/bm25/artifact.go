package bm25

import (
	"encoding/json"
	"fmt"
	"os"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

// Artifact is the single-file, serializable form of an Index (spec §3,
// §6): parameters, vocabulary/IDF, postings, per-document lengths, and a
// parallel array of chunk metadata indexed by doc_idx. encoding/json
// sorts map keys on marshal, so two builds over the same corpus with the
// same parameters produce byte-identical output (invariant I2).
type Artifact struct {
	K1         float64              `json:"k1"`
	B          float64              `json:"b"`
	AvgDL      float64              `json:"avgdl"`
	DocCount   int                  `json:"doc_count"`
	Vocab      map[string]VocabEntry `json:"vocab"`
	Postings   map[string][]Posting  `json:"postings"`
	DocLengths []int                `json:"doc_lengths"`
	Docs       []DocMeta            `json:"docs"`
}

// ToArtifact converts an in-memory Index into its persistable form.
func (idx *Index) ToArtifact() *Artifact {
	return &Artifact{
		K1:         idx.k1,
		B:          idx.b,
		AvgDL:      idx.avgdl,
		DocCount:   idx.docCount,
		Vocab:      idx.vocab,
		Postings:   idx.postings,
		DocLengths: idx.docLengths,
		Docs:       idx.docs,
	}
}

// FromArtifact reconstructs an in-memory Index from a loaded Artifact.
func FromArtifact(a *Artifact) *Index {
	return &Index{
		k1:         a.K1,
		b:          a.B,
		avgdl:      a.AvgDL,
		docCount:   a.DocCount,
		vocab:      a.Vocab,
		postings:   a.Postings,
		docLengths: a.DocLengths,
		docs:       a.Docs,
	}
}

// Save writes the index as a single JSON artifact file.
func (idx *Index) Save(path string) error {
	data, err := json.MarshalIndent(idx.ToArtifact(), "", "  ")
	if err != nil {
		return citeqerrors.InternalError("marshal bm25 artifact", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return citeqerrors.RetrievalError(fmt.Sprintf("write bm25 artifact %s", path), err)
	}
	return nil
}

// Load reads a single JSON BM25 artifact file and reconstructs the index.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, citeqerrors.RetrievalError(fmt.Sprintf("read bm25 artifact %s", path), err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, citeqerrors.Wrap(citeqerrors.ErrCodeArtifactCorrupt, fmt.Errorf("parse bm25 artifact %s: %w", path, err))
	}
	return FromArtifact(&a), nil
}
