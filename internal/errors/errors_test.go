package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsDeriveCategoryAndSeverity(t *testing.T) {
	cases := []struct {
		name     string
		build    func() *CiteqError
		category Category
	}{
		{"config", func() *CiteqError { return ConfigError("bad budget", nil) }, CategoryConfig},
		{"dataset", func() *CiteqError { return DatasetError("dup qid", nil) }, CategoryDataset},
		{"retrieval", func() *CiteqError { return RetrievalError("bm25 missing", nil) }, CategoryRetrieval},
		{"generator", func() *CiteqError { return GeneratorError("timeout", nil) }, CategoryGenerator},
		{"validation", func() *CiteqError { return ValidationError("missing marker", nil) }, CategoryValidation},
		{"internal", func() *CiteqError { return InternalError("panic recovered", nil) }, CategoryInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build()
			assert.Equal(t, tc.category, err.Category)
		})
	}
}

func TestErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(ErrCodeBM25Unavailable, cause)
	require.Error(t, wrapped)
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, errors.Is(wrapped, &CiteqError{Code: ErrCodeBM25Unavailable}))
	assert.False(t, errors.Is(wrapped, &CiteqError{Code: ErrCodeConfigInvalid}))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeDatasetMalformed, "bad row", nil).WithDetail("line", "7")
	assert.Equal(t, "7", err.Details["line"])
}

func TestIsRetryableAndFatal(t *testing.T) {
	retryable := New(ErrCodeGeneratorTimeout, "slow", nil)
	assert.True(t, IsRetryable(retryable))
	assert.False(t, IsFatal(retryable))

	fatal := New(ErrCodeConfigInvalid, "bad", nil)
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsRetryable(fatal))

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestGetCodeAndCategory(t *testing.T) {
	err := New(ErrCodeCitationUnknown, "bad key", nil)
	assert.Equal(t, ErrCodeCitationUnknown, GetCode(err))
	assert.Equal(t, CategoryValidation, GetCategory(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}
