package bm25

import (
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
)

// tokenPattern matches either a technical compound — runs of [A-Za-z0-9]
// joined by one or more of [-._] — or a plain alphanumeric run. The
// compound alternative is tried first so "ML-KEM.KeyGen" matches whole
// rather than splitting at the first hyphen. Go's regexp package compiles
// to RE2 and never backtracks pathologically on long inputs, satisfying
// the tokenizer's linear-time requirement without any special-casing.
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+(?:[-._][A-Za-z0-9]+)+|[A-Za-z0-9]+`)

// joinerPattern splits a matched compound back into its alphanumeric
// components at emit time.
var joinerPattern = regexp.MustCompile(`[-._]`)

// Tokenize implements the BM25 tokenizer (spec §4.2, §9): technical
// compounds are emitted both as the full lowercased compound and as each
// lowercased alphanumeric component; all other punctuation is stripped.
//
//	Tokenize("ML-KEM.KeyGen") == []string{"ml-kem.keygen", "ml", "kem", "keygen"}
func Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(text, -1)
	tokens := make([]string, 0, len(matches))

	for _, m := range matches {
		lower := strings.ToLower(m)
		if joinerPattern.MatchString(m) {
			tokens = append(tokens, lower)
			for _, part := range joinerPattern.Split(lower, -1) {
				if part != "" {
					tokens = append(tokens, part)
				}
			}
			continue
		}
		tokens = append(tokens, lower)
	}

	return tokens
}

// BleveTokenizer adapts Tokenize to bleve's analysis.Tokenizer interface
// so any Bleve-driven analysis pipeline elsewhere in this repo shares the
// same compound-aware tokenization rule as the hand-written BM25 scorer.
type BleveTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (BleveTokenizer) Tokenize(input []byte) analysis.TokenStream {
	terms := Tokenize(string(input))
	stream := make(analysis.TokenStream, 0, len(terms))
	for i, t := range terms {
		stream = append(stream, &analysis.Token{
			Term:     []byte(t),
			Start:    0,
			End:      len(t),
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}
