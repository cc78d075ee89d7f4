package citation

import "testing"

func TestExtractMarkerKeysVariousForms(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"this is supported [c1].", []string{"c1"}},
		{"a combined claim [c1][c2].", []string{"c1", "c2"}},
		{"a combined claim [c1, c2].", []string{"c1", "c2"}},
		{"a combined claim [C2, C1].", []string{"c1", "c2"}},
		{"no markers here.", nil},
	}
	for _, c := range cases {
		got := ExtractMarkerKeys(c.text)
		if len(got) != len(c.want) {
			t.Fatalf("ExtractMarkerKeys(%q) = %v, want %v", c.text, got, c.want)
		}
		for i := range c.want {
			if got[i] != c.want[i] {
				t.Errorf("ExtractMarkerKeys(%q)[%d] = %q, want %q", c.text, i, got[i], c.want[i])
			}
		}
	}
}

func TestEnforceInlineCitationsRefusal(t *testing.T) {
	_, keys, refusal, err := EnforceInlineCitations("Not Found In Provided Docs", map[string]bool{})
	if err != nil || !refusal || len(keys) != 0 {
		t.Fatalf("expected normalized refusal, got refusal=%v keys=%v err=%v", refusal, keys, err)
	}
}

func TestEnforceInlineCitationsMissingMarkerRejected(t *testing.T) {
	_, _, _, err := EnforceInlineCitations("This sentence has no citation.", map[string]bool{"c1": true})
	if err == nil {
		t.Fatal("expected error for sentence without a citation marker")
	}
}

func TestEnforceInlineCitationsUnknownKeyRejected(t *testing.T) {
	_, _, _, err := EnforceInlineCitations("This is supported [c9].", map[string]bool{"c1": true})
	if err == nil {
		t.Fatal("expected error for unknown citation key")
	}
}

func TestEnforceInlineCitationsSuccess(t *testing.T) {
	text, keys, refusal, err := EnforceInlineCitations("First point [c1]. Second point [c1][c2].", map[string]bool{"c1": true, "c2": true})
	if err != nil || refusal {
		t.Fatalf("unexpected err=%v refusal=%v", err, refusal)
	}
	if text == "" {
		t.Fatal("expected non-empty answer text")
	}
	if len(keys) != 2 || keys[0] != "c1" || keys[1] != "c2" {
		t.Fatalf("keys = %v, want [c1 c2]", keys)
	}
}

func TestValidateRefusalMustHaveNoCitations(t *testing.T) {
	err := Validate(AnswerResult{Answer: RefusalSentinel, Citations: []Citation{{Key: "c1"}}}, true)
	if err == nil {
		t.Fatal("expected error: refusal with citations")
	}
}

func TestValidateNonRefusalRequiresCitations(t *testing.T) {
	err := Validate(AnswerResult{Answer: "Some answer [c1]."}, true)
	if err == nil {
		t.Fatal("expected error: non-refusal answer with no citations")
	}
}

func TestValidateUnknownKeyRejected(t *testing.T) {
	err := Validate(AnswerResult{
		Answer:    "Some answer [c2].",
		Citations: []Citation{{Key: "c1"}},
	}, true)
	if err == nil {
		t.Fatal("expected error: answer references key not in citations")
	}
}

func TestSplitSentencesHandlesBullets(t *testing.T) {
	sentences := SplitSentences("- First step [c1]\n- Second step [c2]")
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentence units from bullets, got %v", sentences)
	}
}
