package trace

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/citeq/citeq/internal/control"
	"github.com/citeq/citeq/internal/evidence"
)

func TestSlugLowercasesAndCollapsesPunctuation(t *testing.T) {
	got := Slug("What is ML-KEM, exactly?")
	if got != "what-is-ml-kem-exactly" {
		t.Fatalf("Slug = %q", got)
	}
}

func TestSlugFallsBackWhenEmpty(t *testing.T) {
	if got := Slug("???"); got != "question" {
		t.Fatalf("Slug = %q, want fallback", got)
	}
}

func TestFilenameMatchesCanonicalFormat(t *testing.T) {
	ts := time.Date(2026, 8, 1, 13, 4, 5, 0, time.UTC)
	got := Filename(ts, "what is ML-KEM")
	if got != "agent_20260801_130405_what-is-ml-kem.json" {
		t.Fatalf("Filename = %q", got)
	}
}

func TestFromStateTruncatesEvidenceText(t *testing.T) {
	longText := strings.Repeat("a", 900)
	state := control.AgentState{
		Question: "q",
		EvidenceItems: []evidence.Item{
			{Key: "c1", DocID: "A", StartPage: 1, EndPage: 1, ChunkID: "A::p0001::c000", Text: longText},
		},
	}

	f := FromState(state)
	if len(f.Evidence) != 1 {
		t.Fatalf("evidence len = %d, want 1", len(f.Evidence))
	}
	got := f.Evidence[0].Text
	if !strings.HasSuffix(got, "...") || len(got) != maxEvidenceTextLen+3 {
		t.Fatalf("Text = %q (len %d), want %d chars + ellipsis", got, len(got), maxEvidenceTextLen)
	}
}

func TestWriteEncodesValidJSON(t *testing.T) {
	f := File{Question: "q", FinalAnswer: "not found in provided docs"}
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), `"question": "q"`) {
		t.Fatalf("output missing question field: %s", buf.String())
	}
}
