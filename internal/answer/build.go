package answer

import (
	"context"

	"github.com/citeq/citeq/internal/citation"
	"github.com/citeq/citeq/internal/evidence"
	"github.com/citeq/citeq/internal/fusion"
	"github.com/citeq/citeq/internal/generate"
	"github.com/citeq/citeq/internal/qparse"
)

// Build runs the full answer-builder pipeline for a question against its
// selected evidence (spec §4.7): assemble the prompt, call the
// generator, enforce inline citations, and — only if the generator
// refused or produced an answer that failed citation validation — try
// the deterministic Algorithm-N / compare fallbacks before giving up and
// returning the refusal sentinel. dedupedHits is the full deduplicated
// hit list (pre-budget), used only by the compare fallback.
func Build(ctx context.Context, gen generate.Generator, question string, items []evidence.Item, dedupedHits []fusion.Hit) (citation.AnswerResult, error) {
	systemPrompt, userPrompt := BuildPrompt(question, items)

	raw, err := gen.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return citation.AnswerResult{}, err
	}

	validKeys := ValidKeys(items)
	text, usedKeys, refusal, verr := citation.EnforceInlineCitations(raw, validKeys)
	if verr == nil && !refusal {
		return citation.AnswerResult{Answer: text, Citations: citationsFor(items, usedKeys)}, nil
	}

	if _, ok := qparse.AlgorithmNumber(question); ok {
		if result, ok := AlgorithmFallback(question, items); ok {
			return result, nil
		}
	}
	if _, _, ok := qparse.CompareTopics(question); ok {
		if result, ok := CompareFallback(question, dedupedHits); ok {
			return result, nil
		}
	}

	return citation.AnswerResult{Answer: citation.RefusalSentinel}, nil
}
