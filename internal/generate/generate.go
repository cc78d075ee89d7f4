// Package generate implements the external generator adapter consumed by
// the answer builder (C7, spec §6): a uniform `Generate(ctx, systemPrompt,
// userPrompt) (string, error)` contract at temperature 0, with two concrete backends
// (Anthropic, OpenAI) selected by GENERATOR_BACKEND, and the spec's
// 3-attempt/0.5-1-2s retry policy wrapped around the external call.
// Grounded on sweetpotato0-ai-allin's per-provider-package client wrapper
// shape and TicoDavid-RAGbox.co's narrow system/user prompt split.
package generate

import (
	"context"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

// Generator is the external generate(prompt) capability (spec §1, §6):
// deterministic at temperature 0, no streaming.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// WithRetry wraps a Generator so every call is retried per spec §6's
// "3 attempts, 0.5/1/2s" backoff policy (internal/errors.RetryConfig),
// adapted from the teacher's generic RetryWithResult.
type WithRetry struct {
	Inner Generator
	Retry citeqerrors.RetryConfig
}

// NewWithRetry wraps inner with the default generator retry policy.
func NewWithRetry(inner Generator) *WithRetry {
	return &WithRetry{Inner: inner, Retry: citeqerrors.DefaultGeneratorRetryConfig()}
}

// Generate implements Generator, retrying transient failures per spec §7
// ("Generator errors (transient): retried per backoff; persistent
// failures cause refusal with refusal_reason = generator_failed").
func (w *WithRetry) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := citeqerrors.RetryWithResult(ctx, w.Retry, func() (string, error) {
		text, err := w.Inner.Generate(ctx, systemPrompt, userPrompt)
		if err != nil {
			return "", citeqerrors.GeneratorError("generator call failed", err)
		}
		return text, nil
	})
	if err != nil {
		return "", citeqerrors.GeneratorError("generator call failed after retries", err)
	}
	return result, nil
}
