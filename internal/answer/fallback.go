package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/citeq/citeq/internal/citation"
	"github.com/citeq/citeq/internal/evidence"
	"github.com/citeq/citeq/internal/fusion"
	"github.com/citeq/citeq/internal/qparse"
)

var numberedStepLinePattern = regexp.MustCompile(`^(\d+):\s*(.*)$`)

// extractNumberedSteps returns each numbered pseudocode step found in
// text, verbatim, in order.
func extractNumberedSteps(text string) []string {
	var steps []string
	for _, line := range strings.Split(Prettify(text), "\n") {
		line = strings.TrimSpace(line)
		m := numberedStepLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		steps = append(steps, m[1]+": "+strings.TrimSpace(m[2]))
	}
	return steps
}

// AlgorithmFallback implements spec §4.7's Algorithm-N fallback: activated
// only when the question names an "Algorithm N" and the generator
// refused. It searches the selected evidence for a block whose text
// contains the exact phrase and numbered step markers, extracts each
// step verbatim, and emits one bullet per step ending in that chunk's
// citation key.
func AlgorithmFallback(question string, items []evidence.Item) (citation.AnswerResult, bool) {
	num, ok := qparse.AlgorithmNumber(question)
	if !ok {
		return citation.AnswerResult{}, false
	}
	phrase := "Algorithm " + num

	for _, item := range items {
		if !strings.Contains(item.Text, phrase) {
			continue
		}
		steps := extractNumberedSteps(item.Text)
		if len(steps) == 0 {
			continue
		}

		lines := make([]string, 0, len(steps))
		for _, step := range steps {
			lines = append(lines, fmt.Sprintf("- %s [%s]", step, item.Key))
		}

		validKeys := map[string]bool{item.Key: true}
		text, usedKeys, refusal, err := citation.EnforceInlineCitations(strings.Join(lines, "\n"), validKeys)
		if err != nil || refusal {
			continue
		}
		return citation.AnswerResult{
			Answer:    text,
			Citations: citationsFor(items, usedKeys),
		}, true
	}
	return citation.AnswerResult{}, false
}

// pickHitForTopic selects the best representative hit for a compare
// topic from the full deduplicated hit list: the highest-ranked hit
// whose text or doc_id mentions the topic, preferring one that also
// states the topic's role phrase.
func pickHitForTopic(topic string, hits []fusion.Hit) (fusion.Hit, bool) {
	lowerTopic := strings.ToLower(topic)
	var candidates []fusion.Hit
	for _, h := range hits {
		if strings.Contains(strings.ToLower(h.Text), lowerTopic) || strings.Contains(strings.ToLower(h.DocID), lowerTopic) {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return fusion.Hit{}, false
	}

	if role := qparse.RoleFamily(topic); role != "" {
		for _, h := range candidates {
			if strings.Contains(strings.ToLower(h.Text), role) {
				return h, true
			}
		}
	}
	return candidates[0], true
}

// CompareFallback implements spec §4.7's compare fallback: activated when
// the question is a compare intent and the generator refused. It works
// from the full deduplicated hit list (not the budget-reduced evidence
// context) so that both topics get a representative hit even if one was
// trimmed from the final selection, and emits a minimal three-bullet
// answer with freshly assigned c1/c2 keys.
func CompareFallback(question string, dedupedHits []fusion.Hit) (citation.AnswerResult, bool) {
	topicA, topicB, ok := qparse.CompareTopics(question)
	if !ok {
		return citation.AnswerResult{}, false
	}

	hitA, okA := pickHitForTopic(topicA, dedupedHits)
	hitB, okB := pickHitForTopic(topicB, dedupedHits)
	if !okA || !okB {
		return citation.AnswerResult{}, false
	}

	roleA := qparse.RoleFamily(topicA)
	if roleA == "" {
		roleA = "cryptographic scheme"
	}
	roleB := qparse.RoleFamily(topicB)
	if roleB == "" {
		roleB = "cryptographic scheme"
	}

	lines := []string{
		fmt.Sprintf("- %s is a %s [c1].", topicA, roleA),
		fmt.Sprintf("- %s is a %s [c2].", topicB, roleB),
		fmt.Sprintf("- %s and %s differ in cryptographic role and operations [c1][c2].", topicA, topicB),
	}

	validKeys := map[string]bool{"c1": true, "c2": true}
	text, usedKeys, refusal, err := citation.EnforceInlineCitations(strings.Join(lines, "\n"), validKeys)
	if err != nil || refusal {
		return citation.AnswerResult{}, false
	}

	citations := []citation.Citation{
		{Key: "c1", DocID: hitA.DocID, StartPage: hitA.StartPage, EndPage: hitA.EndPage, ChunkID: hitA.ChunkID},
		{Key: "c2", DocID: hitB.DocID, StartPage: hitB.StartPage, EndPage: hitB.EndPage, ChunkID: hitB.ChunkID},
	}
	kept := make([]citation.Citation, 0, len(usedKeys))
	for _, k := range usedKeys {
		for _, c := range citations {
			if c.Key == k {
				kept = append(kept, c)
			}
		}
	}
	return citation.AnswerResult{Answer: text, Citations: kept}, true
}

// citationsFor builds the Citation list for the keys a generated (or
// fallback) answer actually used, looking up each key's chunk metadata
// among the selected evidence.
func citationsFor(items []evidence.Item, usedKeys []string) []citation.Citation {
	byKey := make(map[string]evidence.Item, len(items))
	for _, item := range items {
		byKey[item.Key] = item
	}
	citations := make([]citation.Citation, 0, len(usedKeys))
	for _, key := range usedKeys {
		item, ok := byKey[key]
		if !ok {
			continue
		}
		citations = append(citations, citation.Citation{
			Key:       item.Key,
			DocID:     item.DocID,
			StartPage: item.StartPage,
			EndPage:   item.EndPage,
			ChunkID:   item.ChunkID,
		})
	}
	return citations
}
