package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/logging"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

// AskOutput is the answer to a question together with its grounding passages.
type AskOutput struct {
	Question string
	Answer   string
	Sources  []domain.ScoredPassage
}

// AskService answers questions from the indexed documents.
type AskService struct {
	retriever *Retriever
	composer  *AnswerComposer
	topK      int
}

// NewAskService creates a new AskService. topK < 1 uses DefaultTopK.
func NewAskService(retriever *Retriever, composer *AnswerComposer, topK int) *AskService {
	if topK < 1 {
		topK = DefaultTopK
	}
	return &AskService{retriever: retriever, composer: composer, topK: topK}
}

// TopK returns the number of passages retrieved per question.
func (s *AskService) TopK() int {
	return s.topK
}

// Ask retrieves the passages most similar to question and composes an answer
// grounded on them.
func (s *AskService) Ask(ctx context.Context, question string) (*AskOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "AskService.Ask", telemetry.SpanAttributes{
		Operation: "ask",
		TopK:      s.topK,
	})
	defer span.End()

	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}

	passages, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answer, err := s.composer.Answer(ctx, question, passages)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	logging.FromContext(ctx).Debug("question answered",
		slog.Int("sources", len(passages)),
	)

	if passages == nil {
		passages = []domain.ScoredPassage{}
	}
	return &AskOutput{Question: question, Answer: answer, Sources: passages}, nil
}
