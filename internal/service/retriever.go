package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 3

// Retriever finds the stored passages most similar to a question.
type Retriever struct {
	embedder Embedder
	store    PassageStore
}

// NewRetriever creates a new Retriever instance
func NewRetriever(embedder Embedder, store PassageStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds question and returns up to topK passages ordered by
// descending similarity. A blank question fails before any network call.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]domain.ScoredPassage, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
		TopK:      topK,
	})
	defer span.End()

	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if topK < 1 {
		return nil, domain.ErrInvalidTopK
	}

	vec, err := r.embedder.EmbedOne(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	results, err := r.store.Nearest(ctx, vec, topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return results, nil
}
