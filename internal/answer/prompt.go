// Package answer implements the answer builder (C7): prompt assembly,
// evidence-block rendering, inline-citation enforcement (delegated to
// internal/citation), and the Algorithm-N / compare deterministic
// fallbacks (spec §4.7). Prompt/evidence-block assembly is grounded on
// TicoDavid-RAGbox.co's generation prompt builder.
package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/citeq/citeq/internal/evidence"
)

// SystemPrompt is the six-rule contract handed to the generator on every
// call (spec §4.7 R1-R6).
const SystemPrompt = `You are a citation-grounded technical assistant answering questions strictly from the evidence blocks provided below.

Rules:
R1. Answer only from the provided context. Do not use outside knowledge.
R2. Every sentence must end with at least one citation marker in the form [cN]. Multiple sources may be cited as [c1][c2] or [c1, c2].
R3. If the context does not support an answer, reply with exactly: not found in provided docs
R4. Do not state numeric, algorithmic, or symbolic specifics that are not present in the context.
R5. Prefer short bulleted claims over long prose.
R6. Only use citation keys that are defined in the evidence block below.`

var (
	stepBreakPattern = regexp.MustCompile(`(\s)(\d+:)`)
	forBreakPattern  = regexp.MustCompile(`(\s)(for\s*\()`)
)

// Prettify injects line breaks before numbered-step markers (`N:`) and
// `for (` tokens to normalize pseudocode layout (spec §4.7).
func Prettify(text string) string {
	text = stepBreakPattern.ReplaceAllString(text, "\n$2")
	text = forBreakPattern.ReplaceAllString(text, "\n$2")
	return text
}

// RenderEvidenceBlock renders the numbered evidence context handed to the
// generator: a header line per item (`[cN] | {doc_id} | p{start}-p{end} |
// {chunk_id}`) followed by prettified text (spec §4.7).
func RenderEvidenceBlock(items []evidence.Item) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "[%s] | %s | p%d-p%d | %s\n", item.Key, item.DocID, item.StartPage, item.EndPage, item.ChunkID)
		b.WriteString(Prettify(item.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildPrompt assembles the system and user prompt for a question and its
// selected evidence.
func BuildPrompt(question string, items []evidence.Item) (systemPrompt, userPrompt string) {
	var b strings.Builder
	b.WriteString("Evidence:\n\n")
	b.WriteString(RenderEvidenceBlock(items))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return SystemPrompt, b.String()
}

// ValidKeys returns the set of citation keys defined by items.
func ValidKeys(items []evidence.Item) map[string]bool {
	keys := make(map[string]bool, len(items))
	for _, item := range items {
		keys[item.Key] = true
	}
	return keys
}
