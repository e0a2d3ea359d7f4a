package service

import (
	"context"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

// PassageStore persists passages and answers similarity queries.
//
// Add is all-or-nothing: either every passage of the batch becomes visible or
// none does. Nearest returns at most topK passages ordered by descending
// cosine similarity, ties broken by ascending ID; an empty store yields an
// empty result.
type PassageStore interface {
	Add(ctx context.Context, passages []domain.NewPassage) error
	Nearest(ctx context.Context, query []float32, topK int) ([]domain.ScoredPassage, error)
}

// PassageCatalog exposes what has been ingested.
type PassageCatalog interface {
	Count(ctx context.Context) (int, error)
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// DocumentArchive keeps a copy of uploaded source documents.
type DocumentArchive interface {
	Archive(ctx context.Context, doc *domain.Document) (string, error)
}
