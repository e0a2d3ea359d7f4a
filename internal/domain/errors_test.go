package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeInvalidQuery, "question cannot be empty")
	assert.Equal(t, "[INVALID_QUERY] question cannot be empty", err.Error())

	cause := errors.New("connection refused")
	wrapped := NewEmbeddingServiceError("embedding request failed", cause)
	assert.Equal(t, "[EMBEDDING_SERVICE_ERROR] embedding request failed: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestDomainError_IsMatchesCodeAndMessage(t *testing.T) {
	copyWithCause := NewDomainErrorWithCause(ErrCodeStore, ErrDimensionMismatch.Message, errors.New("expected 3, got 2"))

	assert.ErrorIs(t, copyWithCause, ErrDimensionMismatch)
	assert.NotErrorIs(t, copyWithCause, ErrUnsupportedDocument)
}

func TestConstructorsCarryCodes(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"Extraction", NewExtractionError("bad pdf", cause), ErrCodeExtraction},
		{"Embedding", NewEmbeddingServiceError("embed", cause), ErrCodeEmbeddingService},
		{"Generation", NewGenerationServiceError("chat", cause), ErrCodeGenerationService},
		{"Store", NewStoreError("insert", cause), ErrCodeStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.True(t, HasCode(fmt.Errorf("outer: %w", tt.err), tt.code))
		})
	}
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.False(t, HasCode(nil, ErrCodeStore))
}
