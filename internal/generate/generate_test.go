package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

type flakyGenerator struct {
	failures int
	calls    int
}

func (f *flakyGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient failure")
	}
	return "ok", nil
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyGenerator{failures: 1}
	g := &WithRetry{Inner: inner, Retry: citeqerrors.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}}

	text, err := g.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Fatalf("text = %q, want ok", text)
	}
	if inner.calls != 2 {
		t.Fatalf("calls = %d, want 2", inner.calls)
	}
}

func TestWithRetryFailsAfterExhaustingAttempts(t *testing.T) {
	inner := &flakyGenerator{failures: 10}
	g := &WithRetry{Inner: inner, Retry: citeqerrors.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}}

	_, err := g.Generate(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3 (1 initial + 2 retries)", inner.calls)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("unknown", 0); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
