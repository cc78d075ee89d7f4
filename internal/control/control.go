// Package control implements the bounded iterative control loop (C8): a
// small explicit state machine over route/retrieve/assess_evidence/
// refine_query/answer/verify_or_refuse nodes (spec §4.8). No
// graph-execution library from the example pack applies to this shape —
// the teacher's closest precedent, amanmcp's async.BackgroundIndexer, is
// a goroutine+channel progress tracker, not a step-bounded state
// machine — so this is plain `(*AgentState) string` step functions
// dispatched by a switch, per the spec's own design note (§9).
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/citeq/citeq/internal/chunkstore"
	"github.com/citeq/citeq/internal/citation"
	"github.com/citeq/citeq/internal/config"
	"github.com/citeq/citeq/internal/evidence"
	"github.com/citeq/citeq/internal/fusion"
	"github.com/citeq/citeq/internal/generate"
	"github.com/citeq/citeq/internal/metrics"
)

// Plan is the control loop's routing decision (spec §3 "Plan").
type Plan struct {
	Action   string // retrieve | resolve_definition | compare | summarize | refuse
	Query    string
	Args     map[string]string
	ModeHint string // general | definition | algorithm | symbolic | compare
}

// TraceEvent is one append-only provenance entry (spec §3 "trace").
type TraceEvent struct {
	Node   string
	Detail string
}

// AgentState is the single-owner mutable state threaded through the loop
// (spec §3 "Agent state"). One instance lives for exactly one question.
type AgentState struct {
	Question string
	Plan     Plan

	Hits          []fusion.Hit
	EvidenceItems []evidence.Item

	DraftAnswer string
	FinalAnswer string
	Citations   []citation.Citation

	Steps          int
	ToolCalls      int
	RetrievalRound int

	EvidenceSufficient bool
	StopReason         string
	RefusalReason      string

	Trace  []TraceEvent
	Errors []string
}

func (s *AgentState) trace(node, detail string) {
	s.Trace = append(s.Trace, TraceEvent{Node: node, Detail: detail})
}

// Config bounds loop execution (spec §4.8 budgets, §6 AGENT_* env vars).
type Config struct {
	MaxSteps           int
	MaxToolCalls       int
	MaxRetrievalRounds int
	MinEvidenceHits    int
	FinalK             int
	Evidence           evidence.Options
}

// DefaultConfig returns the spec's stated default budgets.
func DefaultConfig() Config {
	return Config{
		MaxSteps:           8,
		MaxToolCalls:       3,
		MaxRetrievalRounds: 2,
		MinEvidenceHits:    2,
		FinalK:             8,
		Evidence: evidence.Options{
			MaxChunks:       8,
			MaxChars:        6000,
			MinEvidenceHits: 2,
		},
	}
}

// FromAppConfig maps the resolved application configuration's Agent,
// Answer, and Retrieval sections onto a loop Config (spec §6 AGENT_*,
// ASK_*, TOP_K env vars).
func FromAppConfig(cfg *config.Config) Config {
	return Config{
		MaxSteps:           cfg.Agent.MaxSteps,
		MaxToolCalls:       cfg.Agent.MaxToolCalls,
		MaxRetrievalRounds: cfg.Agent.MaxRetrievalRounds,
		MinEvidenceHits:    cfg.Agent.MinEvidenceHits,
		FinalK:             cfg.Retrieval.TopK,
		Evidence: evidence.Options{
			MaxChunks:        cfg.Answer.MaxContextChunks,
			MaxChars:         cfg.Answer.MaxContextChars,
			IncludeNeighbors: cfg.Answer.IncludeNeighborChunks,
			NeighborWindow:   cfg.Answer.NeighborWindow,
			MinEvidenceHits:  cfg.Answer.MinEvidenceHits,
		},
	}
}

// Retriever performs one full retrieval pass for a query string,
// including query-variant expansion (C4), multi-source fusion, and
// optional rerank (C5). Implementations own the BM25 index, dense index,
// and variant generator; the control loop only sees the fused result.
type Retriever interface {
	Retrieve(ctx context.Context, query string, finalK int) ([]fusion.Hit, error)
}

const (
	nodeRoute          = "route"
	nodeRetrieve       = "retrieve"
	nodeAssessEvidence = "assess_evidence"
	nodeRefineQuery    = "refine_query"
	nodeAnswer         = "answer"
	nodeVerifyOrRefuse = "verify_or_refuse"
)

const (
	stopStepBudgetExhausted  = "step_budget_exhausted"
	stopToolBudgetExhausted  = "tool_budget_exhausted"
	stopRoundBudgetExhausted = "round_budget_exhausted"
	stopSufficientEvidence   = "sufficient_evidence"
	stopCancelled            = "cancelled"

	reasonInsufficientHits           = "insufficient_hits"
	reasonAnchorMissing              = "anchor_missing"
	reasonCompareDocDiversityMissing = "compare_doc_diversity_missing"

	refusalInsufficientEvidence = "insufficient_evidence"
	refusalEmptyDraft           = "empty_draft"
	refusalMissingCitations     = "missing_citations"
	refusalBudgetExhausted      = "budget_exhausted"
	refusalRetrievalFailed      = "retrieval_failed"
	refusalGeneratorFailed      = "generator_failed"
)

// Run executes the control loop for one question to completion (spec
// §4.8). A runtime recursion cap of max(20, MaxSteps*4) guards the
// dispatch loop regardless of node-level budget bookkeeping. reg may be
// nil, in which case no metrics are recorded (spec §6 "Metrics export"
// is opt-in via --metrics-out).
func Run(ctx context.Context, question string, retriever Retriever, store *chunkstore.Store, gen generate.Generator, cfg Config, reg *metrics.Registry) AgentState {
	state := &AgentState{Question: question}

	recursionCap := cfg.MaxSteps * 4
	if recursionCap < 20 {
		recursionCap = 20
	}

	observeNode := func(node string, fn func() string) string {
		if reg == nil {
			return fn()
		}
		start := time.Now()
		next := fn()
		reg.LoopStepDuration.WithLabelValues(node).Observe(time.Since(start).Seconds())
		return next
	}

	finish := func() AgentState {
		if reg != nil && state.RefusalReason != "" {
			reg.RefusalsTotal.WithLabelValues(state.RefusalReason).Inc()
		}
		return *state
	}

	node := nodeRoute
	for i := 0; i < recursionCap; i++ {
		if err := ctx.Err(); err != nil {
			state.StopReason = stopCancelled
			state.trace(nodeVerifyOrRefuse, "cancelled")
			observeNode(nodeVerifyOrRefuse, func() string { verifyOrRefuse(state); return "" })
			return finish()
		}

		switch node {
		case nodeRoute:
			node = observeNode(nodeRoute, func() string { return route(state, cfg) })
		case nodeRetrieve:
			roundBefore := state.RetrievalRound
			node = observeNode(nodeRetrieve, func() string { return retrieve(ctx, state, retriever, cfg) })
			if reg != nil && state.RetrievalRound > roundBefore {
				reg.RetrievalRoundsTotal.Inc()
			}
		case nodeAssessEvidence:
			node = observeNode(nodeAssessEvidence, func() string { return assessEvidence(state, store, cfg) })
		case nodeRefineQuery:
			node = observeNode(nodeRefineQuery, func() string { return refineQuery(state, cfg) })
		case nodeAnswer:
			node = observeNode(nodeAnswer, func() string { return answerNode(ctx, state, gen, cfg) })
		case nodeVerifyOrRefuse:
			observeNode(nodeVerifyOrRefuse, func() string { verifyOrRefuse(state); return "" })
			return finish()
		default:
			state.Errors = append(state.Errors, fmt.Sprintf("unknown control node %q", node))
			state.StopReason = stopStepBudgetExhausted
			verifyOrRefuse(state)
			return finish()
		}
	}

	state.StopReason = stopStepBudgetExhausted
	verifyOrRefuse(state)
	return finish()
}
