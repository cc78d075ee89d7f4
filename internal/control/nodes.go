package control

import (
	"context"
	"sort"
	"strings"

	"github.com/citeq/citeq/internal/answer"
	"github.com/citeq/citeq/internal/chunkstore"
	"github.com/citeq/citeq/internal/citation"
	"github.com/citeq/citeq/internal/evidence"
	"github.com/citeq/citeq/internal/fusion"
	"github.com/citeq/citeq/internal/generate"
	"github.com/citeq/citeq/internal/qparse"
)

// route implements spec §4.8's priority-ordered routing heuristics,
// assigning the plan's action and mode hint. Every non-refuse action
// leads to retrieve; only step-budget exhaustion at entry routes
// straight to verify_or_refuse.
func route(state *AgentState, cfg Config) string {
	if state.Steps >= cfg.MaxSteps {
		state.Plan = Plan{Action: "refuse"}
		state.StopReason = stopStepBudgetExhausted
		state.trace(nodeRoute, "step budget exhausted at entry")
		return nodeVerifyOrRefuse
	}
	state.Steps++

	q := state.Question
	switch {
	case isCompareIntent(q):
		topicA, topicB, _ := qparse.CompareTopics(q)
		state.Plan = Plan{
			Action:   "compare",
			ModeHint: "compare",
			Query:    q,
			Args:     map[string]string{"topic_a": topicA, "topic_b": topicB},
		}
	case qparse.IsDefinitionIntent(q):
		state.Plan = Plan{Action: "resolve_definition", ModeHint: "definition", Query: q}
	case qparse.IsAlgorithmIntent(q):
		state.Plan = Plan{Action: "retrieve", ModeHint: "algorithm", Query: q}
	default:
		state.Plan = Plan{Action: "retrieve", ModeHint: "general", Query: q}
	}
	state.trace(nodeRoute, state.Plan.ModeHint)
	return nodeRetrieve
}

// isCompareIntent rejects identical topics per spec §4.8 rule 1, falling
// back to general retrieve in that case.
func isCompareIntent(q string) bool {
	a, b, ok := qparse.CompareTopics(q)
	return ok && !strings.EqualFold(a, b)
}

// retrieve checks budgets before calling the retriever (spec §4.8
// "Retrieval round semantics": budgets are checked before the tool
// call), then merges new hits into existing evidence by chunk_id dedup
// (first-seen wins) and re-sorts stably.
func retrieve(ctx context.Context, state *AgentState, retriever Retriever, cfg Config) string {
	if state.Steps >= cfg.MaxSteps {
		state.StopReason = stopStepBudgetExhausted
		state.trace(nodeRetrieve, "step budget exhausted")
		return nodeVerifyOrRefuse
	}
	state.Steps++
	if state.ToolCalls >= cfg.MaxToolCalls {
		state.StopReason = stopToolBudgetExhausted
		state.trace(nodeRetrieve, "tool budget exhausted")
		return nodeVerifyOrRefuse
	}
	if state.RetrievalRound >= cfg.MaxRetrievalRounds {
		state.StopReason = stopRoundBudgetExhausted
		state.trace(nodeRetrieve, "round budget exhausted")
		return nodeVerifyOrRefuse
	}

	state.ToolCalls++
	state.RetrievalRound++

	hits, err := retriever.Retrieve(ctx, state.Plan.Query, cfg.FinalK)
	if err != nil {
		state.Errors = append(state.Errors, err.Error())
		state.RefusalReason = refusalRetrievalFailed
		state.trace(nodeRetrieve, "retrieval failed: "+err.Error())
		return nodeVerifyOrRefuse
	}

	state.Hits = mergeHits(state.Hits, hits)
	state.trace(nodeRetrieve, state.Plan.Query)
	return nodeAssessEvidence
}

// mergeHits merges a new retrieval round's hits into the running
// evidence list by chunk_id, keeping the first-seen entry (spec §4.8:
// "first-seen wins"), then re-sorts stably by the same key order the
// evidence selector uses for its own dedup pass (spec §4.6 step 2) —
// applied here for round-merge ordering, a distinct concern from C6's
// final max-score dedup.
func mergeHits(existing, incoming []fusion.Hit) []fusion.Hit {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged := make([]fusion.Hit, 0, len(existing)+len(incoming))
	for _, h := range existing {
		if !seen[h.ChunkID] {
			seen[h.ChunkID] = true
			merged = append(merged, h)
		}
	}
	for _, h := range incoming {
		if !seen[h.ChunkID] {
			seen[h.ChunkID] = true
			merged = append(merged, h)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DocID != b.DocID {
			return a.DocID < b.DocID
		}
		if a.StartPage != b.StartPage {
			return a.StartPage < b.StartPage
		}
		if a.EndPage != b.EndPage {
			return a.EndPage < b.EndPage
		}
		return a.ChunkID < b.ChunkID
	})
	return merged
}

// assessEvidence implements spec §4.8's sufficiency check, reasons
// computed in fixed priority order, deferring the dedup/sort/budget work
// to the evidence selector (C6) so the same ordering rules apply here as
// at answer time.
func assessEvidence(state *AgentState, store *chunkstore.Store, cfg Config) string {
	if state.Steps >= cfg.MaxSteps {
		state.StopReason = stopStepBudgetExhausted
		state.trace(nodeAssessEvidence, "step budget exhausted")
		return nodeVerifyOrRefuse
	}
	state.Steps++

	result := evidence.Select(state.Hits, store, cfg.Evidence)
	state.EvidenceItems = result.Items

	reason, sufficient := sufficiencyReason(state, result, cfg)
	state.EvidenceSufficient = sufficient
	if sufficient {
		state.StopReason = stopSufficientEvidence
		state.trace(nodeAssessEvidence, stopSufficientEvidence)
		return nodeAnswer
	}

	switch {
	case state.Steps >= cfg.MaxSteps:
		state.StopReason = stopStepBudgetExhausted
	case state.ToolCalls >= cfg.MaxToolCalls:
		state.StopReason = stopToolBudgetExhausted
	case state.RetrievalRound >= cfg.MaxRetrievalRounds:
		state.StopReason = stopRoundBudgetExhausted
	default:
		state.StopReason = reason
	}
	state.trace(nodeAssessEvidence, state.StopReason)

	if state.StopReason == reasonInsufficientHits || state.StopReason == reasonAnchorMissing || state.StopReason == reasonCompareDocDiversityMissing {
		return nodeRefineQuery
	}
	return nodeVerifyOrRefuse
}

// sufficiencyReason evaluates spec §4.8's three insufficiency checks in
// fixed order, returning the first applicable one.
func sufficiencyReason(state *AgentState, result evidence.Result, cfg Config) (reason string, sufficient bool) {
	minHits := cfg.MinEvidenceHits
	if minHits <= 0 {
		minHits = cfg.Evidence.MinEvidenceHits
	}
	if result.UniqueHitCount < minHits {
		return reasonInsufficientHits, false
	}

	if anchors := qparse.Anchors(state.Question); len(anchors) > 0 {
		if !anyItemContainsAnchor(result.Items, anchors) {
			return reasonAnchorMissing, false
		}
	}

	if state.Plan.Action == "compare" {
		docs := make(map[string]bool)
		for _, item := range result.Items {
			docs[item.DocID] = true
		}
		if len(docs) < 2 {
			return reasonCompareDocDiversityMissing, false
		}
	}

	return stopSufficientEvidence, true
}

func anyItemContainsAnchor(items []evidence.Item, anchors []string) bool {
	for _, item := range items {
		lower := strings.ToLower(item.Text)
		for _, a := range anchors {
			if strings.Contains(lower, strings.ToLower(a)) {
				return true
			}
		}
	}
	return false
}

// refineQuery implements spec §4.8's deterministic, stop-reason-keyed
// query refinement.
func refineQuery(state *AgentState, cfg Config) string {
	if state.Steps >= cfg.MaxSteps {
		state.StopReason = stopStepBudgetExhausted
		state.trace(nodeRefineQuery, "step budget exhausted")
		return nodeVerifyOrRefuse
	}
	state.Steps++

	switch state.StopReason {
	case reasonAnchorMissing:
		anchors := qparse.Anchors(state.Question)
		state.Plan.Query = strings.TrimSpace(state.Plan.Query + " " + strings.Join(anchors, " "))
	case reasonCompareDocDiversityMissing:
		state.Plan.Query = strings.TrimSpace(state.Plan.Query + " " + compareBiasTokens(state.Plan.Args))
	case reasonInsufficientHits:
		state.Plan.Query = strings.TrimSpace(state.Plan.Query + " " + coverageBiasTokens(state.Plan.ModeHint))
	}
	state.trace(nodeRefineQuery, state.Plan.Query)
	return nodeRetrieve
}

func compareBiasTokens(args map[string]string) string {
	tokens := []string{}
	for _, topic := range []string{args["topic_a"], args["topic_b"]} {
		root := topic
		if toks := qparse.TechnicalTokens(topic); len(toks) > 0 {
			root = toks[0]
		}
		if id := qparse.StandardID(root); id != "" {
			tokens = append(tokens, id)
		}
	}
	tokens = append(tokens, "compare")
	return strings.Join(tokens, " ")
}

func coverageBiasTokens(modeHint string) string {
	if modeHint == "algorithm" {
		return "algorithm steps"
	}
	return "definition overview"
}

// answerNode calls the answer builder (C7) against the current evidence
// selection.
func answerNode(ctx context.Context, state *AgentState, gen generate.Generator, cfg Config) string {
	if state.Steps >= cfg.MaxSteps {
		state.StopReason = stopStepBudgetExhausted
		state.trace(nodeAnswer, "step budget exhausted")
		return nodeVerifyOrRefuse
	}
	state.Steps++

	result, err := answer.Build(ctx, gen, state.Question, state.EvidenceItems, state.Hits)
	if err != nil {
		state.Errors = append(state.Errors, err.Error())
		state.RefusalReason = refusalGeneratorFailed
		state.trace(nodeAnswer, "generator failed: "+err.Error())
		return nodeVerifyOrRefuse
	}

	state.DraftAnswer = result.Answer
	state.Citations = result.Citations
	state.trace(nodeAnswer, "draft produced")
	return nodeVerifyOrRefuse
}

// verifyOrRefuse implements spec §4.8's terminal node: refuses iff any
// of {not sufficient, empty draft, empty evidence, zero citations}.
// stop_reason is never overwritten here, keeping loop provenance
// (stop_reason) separate from output provenance (refusal_reason). If an
// earlier node already set refusal_reason (retrieval_failed,
// generator_failed), that takes precedence over the predicate checks
// below. Unlike the other nodes, this one never increments state.Steps:
// it is the loop's terminal bookkeeping, not a budgeted unit of work, so
// counting it here would let steps exceed MaxSteps (I7) purely as an
// artifact of how the loop terminates.
func verifyOrRefuse(state *AgentState) {
	preset := state.RefusalReason != ""
	emptyEvidence := len(state.Hits) == 0
	emptyDraft := state.DraftAnswer == "" || state.DraftAnswer == citation.RefusalSentinel
	noCitations := len(state.Citations) == 0

	refuse := preset || !state.EvidenceSufficient || emptyDraft || emptyEvidence || noCitations
	if !refuse {
		state.FinalAnswer = state.DraftAnswer
		state.trace(nodeVerifyOrRefuse, "accepted")
		return
	}

	state.Citations = nil
	if !preset {
		isBudgetStop := state.StopReason == stopStepBudgetExhausted ||
			state.StopReason == stopToolBudgetExhausted ||
			state.StopReason == stopRoundBudgetExhausted

		switch {
		case (!state.EvidenceSufficient || emptyEvidence) && isBudgetStop:
			state.RefusalReason = refusalBudgetExhausted
		case !state.EvidenceSufficient || emptyEvidence:
			state.RefusalReason = refusalInsufficientEvidence
		case emptyDraft:
			state.RefusalReason = refusalEmptyDraft
		case noCitations:
			state.RefusalReason = refusalMissingCitations
		default:
			state.RefusalReason = refusalInsufficientEvidence
		}
	}
	state.FinalAnswer = citation.RefusalSentinel
	state.trace(nodeVerifyOrRefuse, state.RefusalReason)
}
