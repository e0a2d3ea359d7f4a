package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message.
// Sentinel errors compare equal to copies wrapped with a different cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"

	ErrCodeInvalidQuery      = "INVALID_QUERY"
	ErrCodeExtraction        = "EXTRACTION_ERROR"
	ErrCodeEmbeddingService  = "EMBEDDING_SERVICE_ERROR"
	ErrCodeGenerationService = "GENERATION_SERVICE_ERROR"
	ErrCodeStore             = "STORE_ERROR"
	ErrCodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
)

// Validation errors
var (
	ErrEmptyQuestion        = NewDomainError(ErrCodeInvalidQuery, "question cannot be empty")
	ErrInvalidTopK          = NewDomainError(ErrCodeValidation, "top_k must be at least 1")
	ErrMissingDocumentName  = NewDomainError(ErrCodeValidation, "document name is required")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Ingestion and store errors
var (
	ErrUnsupportedDocument = NewDomainError(ErrCodeExtraction, "unsupported document type")
	ErrDimensionMismatch   = NewDomainError(ErrCodeStore, "vector dimension does not match store dimension")
)

// NewPayloadTooLargeError reports a request body over limit bytes.
func NewPayloadTooLargeError(limit int64) *DomainError {
	return NewDomainError(ErrCodePayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit))
}

// NewExtractionError reports that a source document could not be read or parsed.
func NewExtractionError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, message, err)
}

// NewEmbeddingServiceError reports a failed call to the embedding backend.
func NewEmbeddingServiceError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingService, message, err)
}

// NewGenerationServiceError reports a failed call to the generation backend.
func NewGenerationServiceError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGenerationService, message, err)
}

// NewStoreError reports an unavailable persistence layer or a rolled back write.
func NewStoreError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStore, message, err)
}

// CodeOf returns the code of the outermost DomainError in err's chain,
// or an empty string when there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
