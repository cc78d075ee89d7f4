package metrics

import (
	"os"
	"strings"
	"testing"
)

func TestWriteTextFileContainsRegisteredSeries(t *testing.T) {
	reg := New()
	reg.RetrievalRoundsTotal.Add(2)
	reg.RefusalsTotal.WithLabelValues("insufficient_evidence").Inc()
	reg.LoopStepDuration.WithLabelValues("retrieve").Observe(0.1)

	f, err := os.CreateTemp(t.TempDir(), "metrics-*.prom")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := f.Name()
	f.Close()

	if err := reg.WriteTextFile(path); err != nil {
		t.Fatalf("WriteTextFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(data)
	for _, name := range []string{"citeq_retrieval_rounds_total", "citeq_refusals_total", "citeq_loop_step_duration_seconds"} {
		if !strings.Contains(text, name) {
			t.Errorf("expected %s in exposition output, got:\n%s", name, text)
		}
	}
}
