// Package qparse provides deterministic, regex-based extraction of
// question features — compare topics, anchors, scheme roots, operation
// phrases, Algorithm/Table/Section references — shared between the query
// variant generator (C4) and the control loop's router/assess/refine
// nodes (C8), so both components agree on what counts as a "compare
// intent" or an "anchor". Grounded on the teacher's compiled-regex-table
// style in internal/search/patterns.go.
package qparse

import (
	"regexp"
	"strings"
)

// Compiled once at package init, matching the teacher's convention.
var (
	compareDiffPattern       = regexp.MustCompile(`(?i)differences?\s+between\s+(.+?)\s+and\s+(.+?)[?.!]*$`)
	compareComparePattern    = regexp.MustCompile(`(?i)\bcompare\s+(.+?)\s+(?:and|with)\s+(.+?)[?.!]*$`)
	compareComparisonPattern = regexp.MustCompile(`(?i)comparison\s+of\s+(.+?)\s+and\s+(.+?)[?.!]*$`)
	compareVersusPattern     = regexp.MustCompile(`(?i)^(.+?)\s+(?:vs\.?|versus)\s+(.+?)[?.!]*$`)

	definitionPattern = regexp.MustCompile(`(?i)^\s*(what\s+(is|are)\b|define\b|explain\b)`)

	algorithmNumberPattern = regexp.MustCompile(`(?i)algorithm\s+(\d+)`)
	algorithmKeywords      = regexp.MustCompile(`(?i)shake128|shake256|\bxof\b`)

	tablePattern   = regexp.MustCompile(`(?i)table\s+(\d+)`)
	sectionPattern = regexp.MustCompile(`(?i)section\s+(\d+(?:\.\d+)*)`)
	anchorKeyword  = regexp.MustCompile(`(?i)keygen|encaps|decaps|shake128|shake256|\bxof\b`)

	// technicalTokenPattern matches compound technical identifiers such as
	// ML-KEM, ML-DSA.KeyGen — the same shape the BM25 tokenizer treats as
	// a compound (spec §4.2), reused here to detect scheme roots.
	technicalTokenPattern = regexp.MustCompile(`[A-Za-z0-9]+(?:[-._][A-Za-z0-9]+)+`)
)

// operationPhrase maps a question phrasing to the dot-name suffix used in
// scheme-root.OpName variants (spec §4.4 rule 3).
type operationPhrase struct {
	phrase string
	opName string
}

var operationPhrases = []operationPhrase{
	{"key generation", "KeyGen"},
	{"encapsulation", "Encaps"},
	{"decapsulation", "Decaps"},
	{"sign", "Sign"},
	{"verify", "Verify"},
}

// standardIDs maps a detected scheme root to its FIPS standard identifier,
// used by the control loop's compare-bias query refinement (spec §4.8).
var standardIDs = map[string]string{
	"ML-KEM":  "FIPS 203",
	"ML-DSA":  "FIPS 204",
	"SLH-DSA": "FIPS 205",
}

// CompareTopics extracts topic A and topic B from a compare-intent
// question, trying each pattern from spec §4.8 routing rule 1 in order.
// Identical topics (case-insensitive) are rejected, signaling the caller
// to fall back to general retrieve.
func CompareTopics(q string) (a, b string, ok bool) {
	for _, re := range []*regexp.Regexp{compareDiffPattern, compareComparePattern, compareComparisonPattern, compareVersusPattern} {
		m := re.FindStringSubmatch(q)
		if len(m) != 3 {
			continue
		}
		ta, tb := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if ta == "" || tb == "" || strings.EqualFold(ta, tb) {
			continue
		}
		return ta, tb, true
	}
	return "", "", false
}

// IsDefinitionIntent reports whether q matches the definition routing
// pattern (spec §4.8 rule 2).
func IsDefinitionIntent(q string) bool {
	return definitionPattern.MatchString(q)
}

// IsAlgorithmIntent reports whether q matches the algorithm routing
// pattern (spec §4.8 rule 3).
func IsAlgorithmIntent(q string) bool {
	return algorithmNumberPattern.MatchString(q) || algorithmKeywords.MatchString(q)
}

// AlgorithmNumber extracts the first "Algorithm N" integer from q.
func AlgorithmNumber(q string) (string, bool) {
	m := algorithmNumberPattern.FindStringSubmatch(q)
	if len(m) == 2 {
		return m[1], true
	}
	return "", false
}

// TechnicalTokens returns every compound technical token in q, in
// encounter order, duplicates included (callers that need uniqueness
// dedupe themselves).
func TechnicalTokens(q string) []string {
	return technicalTokenPattern.FindAllString(q, -1)
}

// OperationNames returns the dot-name operation suffixes (KeyGen, Encaps,
// Decaps, Sign, Verify) whose phrasing appears in q, in rule-table order.
func OperationNames(q string) []string {
	lower := strings.ToLower(q)
	var names []string
	for _, op := range operationPhrases {
		if strings.Contains(lower, op.phrase) {
			names = append(names, op.opName)
		}
	}
	return names
}

// StandardID returns the FIPS standard identifier for a detected scheme
// root, or "" if root is not a known scheme.
func StandardID(root string) string {
	return standardIDs[strings.ToUpper(root)]
}

// roleFamilies maps a detected scheme root to the role phrase its
// documents use to describe it, used by the compare fallback (spec §4.7)
// to bias representative-hit selection toward the sentence that actually
// states the scheme's role.
var roleFamilies = map[string]string{
	"ML-KEM":  "key-encapsulation mechanism",
	"ML-DSA":  "digital signature scheme",
	"SLH-DSA": "digital signature scheme",
}

// RoleFamily returns the role phrase associated with a compare topic,
// matching on any known scheme root contained in the topic string, or ""
// if none match.
func RoleFamily(topic string) string {
	upper := strings.ToUpper(topic)
	for root, phrase := range roleFamilies {
		if strings.Contains(upper, root) {
			return phrase
		}
	}
	return ""
}

// Anchors extracts distinctive anchor tokens from q (spec §4.8
// assess_evidence / GLOSSARY): "Algorithm N", "Table N", "Section x.y",
// and the fixed keyword set (keygen, encaps, decaps, shake128, shake256,
// xof). Order is first-seen, deduplicated case-insensitively.
func Anchors(q string) []string {
	var anchors []string
	seen := make(map[string]bool)
	add := func(s string) {
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			return
		}
		seen[key] = true
		anchors = append(anchors, s)
	}
	for _, m := range algorithmNumberPattern.FindAllStringSubmatch(q, -1) {
		add("Algorithm " + m[1])
	}
	for _, m := range tablePattern.FindAllStringSubmatch(q, -1) {
		add("Table " + m[1])
	}
	for _, m := range sectionPattern.FindAllStringSubmatch(q, -1) {
		add("Section " + m[1])
	}
	for _, m := range anchorKeyword.FindAllString(q, -1) {
		add(strings.ToLower(m))
	}
	return anchors
}
