// Package variant implements the query variant generator (C4): a pure,
// deterministic, rule-based expansion of one question into an
// order-preserving, deduplicated list of query strings (spec §4.4).
// Grounded on the teacher's PatternDecomposer
// (internal/search/decomposer.go) — same shape (compiled regexes,
// ShouldDecompose-style gating, deterministic sub-query emission) but
// implementing spec §4.4's exact rule list instead of the teacher's
// noun/function decomposition heuristics.
package variant

import (
	"fmt"
	"strings"

	"github.com/citeq/citeq/internal/qparse"
)

// Generate expands q into its deterministic variant list, per spec §4.4
// rules 1-6. The input q is always the first element (invariant I6).
func Generate(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return []string{q}
	}
	variants := []string{q}

	// Rule 2: technical-compound expansion.
	for _, tok := range qparse.TechnicalTokens(q) {
		parts := splitComponents(tok)
		if len(parts) < 2 {
			continue
		}
		variants = append(variants, q+" "+strings.Join(parts, " "))
	}

	// Rule 3: dot-name variants for scheme root + operation phrasing.
	roots := schemeRoots(q)
	ops := qparse.OperationNames(q)
	for _, root := range roots {
		for _, op := range ops {
			variants = append(variants, fmt.Sprintf("%s %s.%s", q, root, op))
		}
	}

	// Rule 4: "Algorithm N" variants.
	if num, ok := qparse.AlgorithmNumber(q); ok {
		base := "Algorithm " + num
		variants = append(variants, base)
		for _, tok := range qparse.TechnicalTokens(q) {
			variants = append(variants, base+" "+tok)
		}
	}

	// Rule 5: compare-intent topic variants.
	if a, b, ok := qparse.CompareTopics(q); ok {
		variants = append(variants, a, b)
	}

	return dedup(variants)
}

// schemeRoots returns the technical tokens in q eligible to serve as a
// scheme root for rule 3 — any compound token at least one of whose
// components contains a letter (excludes purely numeric compounds like
// "2024-01-01").
func schemeRoots(q string) []string {
	var roots []string
	for _, tok := range qparse.TechnicalTokens(q) {
		for _, part := range splitComponents(tok) {
			if containsLetter(part) {
				roots = append(roots, tok)
				break
			}
		}
	}
	return roots
}

func splitComponents(tok string) []string {
	var parts []string
	var cur strings.Builder
	for _, r := range tok {
		if r == '-' || r == '.' || r == '_' {
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func containsLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// dedup preserves first-seen order (spec §4.4 rule 6, invariant I6).
func dedup(variants []string) []string {
	seen := make(map[string]bool, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
