package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata keys every passage carries.
const (
	MetaDocumentName = "document_name"
	MetaChunkIndex   = "chunk_index"
)

// Metadata is the open, JSON-like mapping stored alongside a passage.
type Metadata map[string]any

// NewPassageMetadata returns the metadata required on every passage.
func NewPassageMetadata(documentName string, chunkIndex int) Metadata {
	return Metadata{
		MetaDocumentName: documentName,
		MetaChunkIndex:   chunkIndex,
	}
}

// DocumentName returns the source document name, or "" if absent.
func (m Metadata) DocumentName() string {
	name, _ := m[MetaDocumentName].(string)
	return name
}

// ChunkIndex returns the zero-based position of the passage in its document.
// Values decoded from JSON arrive as float64 or json.Number; both are accepted.
func (m Metadata) ChunkIndex() (int, bool) {
	switch v := m[MetaChunkIndex].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// Clone returns a deep copy normalized through JSON, matching what a
// JSON-backed store returns on read.
func (m Metadata) Clone() (Metadata, error) {
	if m == nil {
		return Metadata{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	var out Metadata
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return out, nil
}

// Passage is a unit of retrievable text with its embedding.
// Passages are immutable once stored.
type Passage struct {
	ID        int64
	Text      string
	Vector    []float32
	Metadata  Metadata
	CreatedAt time.Time
}

// NewPassage is a passage that has not been assigned an ID yet.
type NewPassage struct {
	Text     string
	Vector   []float32
	Metadata Metadata
}

// ScoredPassage is one element of a retrieval result.
type ScoredPassage struct {
	ID       int64
	Text     string
	Metadata Metadata
	Score    float64
}

// DocumentSummary reports how many passages a document contributed.
type DocumentSummary struct {
	DocumentName string
	Passages     int
}

// ValidateNewPassage checks a passage against the store's vector dimension.
func ValidateNewPassage(p NewPassage, dimensions int) error {
	if p.Text == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "passage text is required", ErrMissingRequiredField)
	}
	if p.Metadata.DocumentName() == "" {
		return ErrMissingDocumentName
	}
	if _, ok := p.Metadata.ChunkIndex(); !ok {
		return NewDomainErrorWithCause(ErrCodeValidation, "passage chunk_index is required", ErrMissingRequiredField)
	}
	if dimensions > 0 && len(p.Vector) != dimensions {
		return NewDomainErrorWithCause(ErrCodeStore, ErrDimensionMismatch.Message,
			fmt.Errorf("expected %d, got %d", dimensions, len(p.Vector)))
	}
	return nil
}
