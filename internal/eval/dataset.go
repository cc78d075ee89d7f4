// Package eval implements the evaluation harness (C10): dataset
// loading, strict and relaxed relevance scoring, Recall@k/MRR@k/nDCG@k
// metrics, and deterministic report writers (spec §4.10).
package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

// GoldSpan is a labeled relevant span (spec §3 "Dataset row").
type GoldSpan struct {
	DocID     string `json:"doc_id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// Row is one evaluation dataset record.
type Row struct {
	QID        string     `json:"qid"`
	Question   string     `json:"question"`
	Answerable bool       `json:"answerable"`
	Gold       []GoldSpan `json:"gold"`
}

// qidNumericPattern extracts a trailing integer from a qid for the
// numeric-aware sort key (spec §4.10: "q2 < q10").
var qidNumericPattern = regexp.MustCompile(`^(.*?)(\d+)$`)

// SortKey returns the numeric-aware key for r.QID: a (prefix, number)
// pair so "q2" sorts before "q10". A qid with no trailing digits uses the
// whole qid as its prefix (number 0, numeric false), so it sorts among
// the others by plain prefix comparison.
func (r Row) SortKey() (prefix string, number int, numeric bool) {
	m := qidNumericPattern.FindStringSubmatch(r.QID)
	if m == nil {
		return r.QID, 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return r.QID, 0, false
	}
	return m[1], n, true
}

// LoadDataset reads a line-based JSON dataset, validating each row
// (spec §4.10, §3): qid unique and non-empty, gold spans well-formed,
// and `answerable=false ⇒ gold=[]`.
func LoadDataset(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var rows []Row
	seen := make(map[string]bool)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("line %d: invalid JSON: %v", lineNo, err), err)
		}
		if row.QID == "" {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("line %d: empty qid", lineNo), nil)
		}
		if seen[row.QID] {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("line %d: duplicate qid %q", lineNo, row.QID), nil)
		}
		seen[row.QID] = true

		if !row.Answerable && len(row.Gold) != 0 {
			return nil, citeqerrors.DatasetError(fmt.Sprintf("line %d: qid %q is unanswerable but carries gold spans", lineNo, row.QID), nil)
		}
		for _, g := range row.Gold {
			if g.StartPage > g.EndPage {
				return nil, citeqerrors.DatasetError(fmt.Sprintf("line %d: qid %q has gold span with start_page > end_page", lineNo, row.QID), nil)
			}
		}

		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, citeqerrors.DatasetError("failed reading dataset", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return lessBySortKey(rows[i], rows[j])
	})
	return rows, nil
}

// LoadDatasetFile opens path and delegates to LoadDataset.
func LoadDatasetFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, citeqerrors.DatasetError(fmt.Sprintf("open dataset %s", path), err)
	}
	defer f.Close()
	return LoadDataset(f)
}

func lessBySortKey(a, b Row) bool {
	pa, na, oka := a.SortKey()
	pb, nb, okb := b.SortKey()
	if oka && okb && pa == pb {
		return na < nb
	}
	if pa != pb {
		return pa < pb
	}
	return na < nb
}

// ScoringRows returns only the rows in scope for metric scoring (spec
// §4.10 "Scoring scope"): answerable, with non-empty gold. The rest are
// returned separately as skipped qids, in dataset order.
func ScoringRows(rows []Row) (scored []Row, skipped []string) {
	for _, r := range rows {
		if r.Answerable && len(r.Gold) > 0 {
			scored = append(scored, r)
		} else {
			skipped = append(skipped, r.QID)
		}
	}
	return scored, skipped
}
