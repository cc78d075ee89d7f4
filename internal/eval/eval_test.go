package eval

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadDatasetSortsNumericAware(t *testing.T) {
	data := `{"qid":"q10","question":"x","answerable":true,"gold":[{"doc_id":"A","start_page":1,"end_page":1}]}
{"qid":"q2","question":"y","answerable":true,"gold":[{"doc_id":"A","start_page":1,"end_page":1}]}
`
	rows, err := LoadDataset(strings.NewReader(data))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if rows[0].QID != "q2" || rows[1].QID != "q10" {
		t.Fatalf("order = %v, want [q2 q10]", []string{rows[0].QID, rows[1].QID})
	}
}

func TestLoadDatasetRejectsDuplicateQID(t *testing.T) {
	data := `{"qid":"q1","question":"x","answerable":false,"gold":[]}
{"qid":"q1","question":"y","answerable":false,"gold":[]}
`
	if _, err := LoadDataset(strings.NewReader(data)); err == nil {
		t.Fatal("expected error for duplicate qid")
	}
}

func TestLoadDatasetRejectsUnanswerableWithGold(t *testing.T) {
	data := `{"qid":"q1","question":"x","answerable":false,"gold":[{"doc_id":"A","start_page":1,"end_page":1}]}
`
	if _, err := LoadDataset(strings.NewReader(data)); err == nil {
		t.Fatal("expected error for unanswerable row with gold spans")
	}
}

func TestScoringRowsSkipsUnlabeled(t *testing.T) {
	rows := []Row{
		{QID: "q1", Answerable: true, Gold: []GoldSpan{{DocID: "A", StartPage: 1, EndPage: 1}}},
		{QID: "q2", Answerable: false},
		{QID: "q3", Answerable: true},
	}
	scored, skipped := ScoringRows(rows)
	if len(scored) != 1 || scored[0].QID != "q1" {
		t.Fatalf("scored = %+v", scored)
	}
	if len(skipped) != 2 {
		t.Fatalf("skipped = %+v", skipped)
	}
}

func TestRecallAtKCountsEachGoldOnce(t *testing.T) {
	gold := []GoldSpan{{DocID: "A", StartPage: 1, EndPage: 2}, {DocID: "B", StartPage: 5, EndPage: 5}}
	hits := []Hit{{DocID: "A", StartPage: 1, EndPage: 1}, {DocID: "A", StartPage: 2, EndPage: 2}, {DocID: "B", StartPage: 5, EndPage: 5}}
	if got := RecallAtK(hits, gold, 3); got != 1.0 {
		t.Fatalf("recall = %v, want 1.0", got)
	}
	if got := RecallAtK(hits, gold, 1); got != 0.5 {
		t.Fatalf("recall@1 = %v, want 0.5", got)
	}
}

func TestMRRAtKReturnsReciprocalRank(t *testing.T) {
	gold := []GoldSpan{{DocID: "A", StartPage: 1, EndPage: 1}}
	hits := []Hit{{DocID: "X", StartPage: 1, EndPage: 1}, {DocID: "A", StartPage: 1, EndPage: 1}}
	if got := MRRAtK(hits, gold, 5); got != 0.5 {
		t.Fatalf("mrr = %v, want 0.5", got)
	}
}

func TestMRRAtKZeroWhenNoneRelevant(t *testing.T) {
	gold := []GoldSpan{{DocID: "A", StartPage: 1, EndPage: 1}}
	hits := []Hit{{DocID: "X", StartPage: 9, EndPage: 9}}
	if got := MRRAtK(hits, gold, 5); got != 0 {
		t.Fatalf("mrr = %v, want 0", got)
	}
}

func TestNDCGAtKBoundedAndPerfectForIdealOrder(t *testing.T) {
	gold := []GoldSpan{{DocID: "A", StartPage: 1, EndPage: 1}, {DocID: "B", StartPage: 1, EndPage: 1}}
	hits := []Hit{{DocID: "A", StartPage: 1, EndPage: 1}, {DocID: "B", StartPage: 1, EndPage: 1}}
	got := NDCGAtK(hits, gold, 2)
	if got < 0.999 || got > 1.0 {
		t.Fatalf("ndcg = %v, want ~1.0 for ideal order", got)
	}
}

func TestNDCGAtKZeroWhenNoGold(t *testing.T) {
	if got := NDCGAtK(nil, nil, 5); got != 0 {
		t.Fatalf("ndcg = %v, want 0", got)
	}
}

func TestDocOnlyRecallIgnoresPages(t *testing.T) {
	gold := []GoldSpan{{DocID: "A", StartPage: 50, EndPage: 50}}
	hits := []Hit{{DocID: "A", StartPage: 1, EndPage: 1}}
	if got := DocOnlyRecallAtK(hits, gold, 1); got != 1.0 {
		t.Fatalf("doc_only_recall = %v, want 1.0", got)
	}
	if got := RecallAtK(hits, gold, 1); got != 0 {
		t.Fatalf("strict recall = %v, want 0 (pages don't overlap)", got)
	}
}

func TestNearPageRecallExpandsTolerance(t *testing.T) {
	gold := []GoldSpan{{DocID: "A", StartPage: 10, EndPage: 10}}
	hits := []Hit{{DocID: "A", StartPage: 12, EndPage: 12}}
	if got := NearPageRecallAtK(hits, gold, 1, 1); got != 0 {
		t.Fatalf("near_page_recall(t=1) = %v, want 0", got)
	}
	if got := NearPageRecallAtK(hits, gold, 1, 2); got != 1.0 {
		t.Fatalf("near_page_recall(t=2) = %v, want 1.0", got)
	}
}

func TestSummaryJSONDeterministicAcrossRuns(t *testing.T) {
	results := []QuestionResult{
		ComputeQuestionResult(Row{QID: "q1", Gold: []GoldSpan{{DocID: "A", StartPage: 1, EndPage: 1}}}, []Hit{{DocID: "A", StartPage: 1, EndPage: 1}}, []int{1, 5}, 1),
	}
	summary := ComputeSummary(results, []int{1, 5}, 1, nil, 1)

	var first, second bytes.Buffer
	if err := WriteSummaryJSON(&first, summary); err != nil {
		t.Fatalf("WriteSummaryJSON: %v", err)
	}
	if err := WriteSummaryJSON(&second, summary); err != nil {
		t.Fatalf("WriteSummaryJSON: %v", err)
	}
	if first.String() != second.String() {
		t.Fatal("expected byte-identical summary.json across runs with identical inputs")
	}
}

func TestRunScoresOnlyLabeledRows(t *testing.T) {
	rows := []Row{
		{QID: "q1", Question: "a", Answerable: true, Gold: []GoldSpan{{DocID: "A", StartPage: 1, EndPage: 1}}},
		{QID: "q2", Question: "b", Answerable: false},
	}
	fetch := func(question string, k int) ([]Hit, error) {
		return []Hit{{DocID: "A", StartPage: 1, EndPage: 1}}, nil
	}
	results, skipped, err := Run(rows, fetch, []int{1}, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].QID != "q1" {
		t.Fatalf("results = %+v", results)
	}
	if len(skipped) != 1 || skipped[0] != "q2" {
		t.Fatalf("skipped = %+v", skipped)
	}
}
