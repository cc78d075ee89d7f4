// Package trace writes the agent-ask trace file (spec §6 "Trace file"):
// a per-run JSON snapshot of the control loop's final AgentState,
// grounded on eval/report.go's plain encoding/json writer style.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/citeq/citeq/internal/citation"
	"github.com/citeq/citeq/internal/control"
)

// maxEvidenceTextLen is the truncation length for evidence text in a
// trace file (spec §6: "text truncated to 800 chars + ellipsis marker").
const maxEvidenceTextLen = 800

// EvidenceSnapshot is a trace file's truncated view of one evidence item.
type EvidenceSnapshot struct {
	Key       string `json:"key"`
	DocID     string `json:"doc_id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	ChunkID   string `json:"chunk_id"`
	Text      string `json:"text"`
}

// File is the trace file's JSON shape (spec §6).
type File struct {
	Question      string                    `json:"question"`
	Plan          control.Plan              `json:"plan"`
	Evidence      []EvidenceSnapshot        `json:"evidence"`
	DraftAnswer   string                    `json:"draft_answer"`
	FinalAnswer   string                    `json:"final_answer"`
	Citations     []citation.Citation       `json:"citations"`
	ToolCalls     int                       `json:"tool_calls"`
	Steps         int                       `json:"steps"`
	Trace         []control.TraceEvent      `json:"trace"`
	Errors        []string                  `json:"errors"`
	StopReason    string                    `json:"stop_reason"`
	RefusalReason string                    `json:"refusal_reason"`
}

// FromState builds a trace File from a completed control.AgentState.
func FromState(state control.AgentState) File {
	snapshots := make([]EvidenceSnapshot, 0, len(state.EvidenceItems))
	for _, item := range state.EvidenceItems {
		snapshots = append(snapshots, EvidenceSnapshot{
			Key:       item.Key,
			DocID:     item.DocID,
			StartPage: item.StartPage,
			EndPage:   item.EndPage,
			ChunkID:   item.ChunkID,
			Text:      truncate(item.Text, maxEvidenceTextLen),
		})
	}

	finalAnswer := state.DraftAnswer
	if state.RefusalReason != "" {
		finalAnswer = citation.RefusalSentinel
	}

	return File{
		Question:      state.Question,
		Plan:          state.Plan,
		Evidence:      snapshots,
		DraftAnswer:   state.DraftAnswer,
		FinalAnswer:   finalAnswer,
		Citations:     state.Citations,
		ToolCalls:     state.ToolCalls,
		Steps:         state.Steps,
		Trace:         state.Trace,
		Errors:        state.Errors,
		StopReason:    state.StopReason,
		RefusalReason: state.RefusalReason,
	}
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

// Write encodes f as indented JSON.
func Write(w io.Writer, f File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases question and collapses non-alphanumerics into single
// hyphens, trimmed, for use in the trace filename.
func Slug(question string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(question), "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		s = "question"
	}
	return s
}

// Filename returns the canonical trace filename for a run starting at
// ts: agent_<YYYYMMDD_HHMMSS>_<slug>.json (spec §6).
func Filename(ts time.Time, question string) string {
	return fmt.Sprintf("agent_%s_%s.json", ts.Format("20060102_150405"), Slug(question))
}
