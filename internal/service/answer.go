package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

// ContextSeparator divides passages inside the grounding context.
const ContextSeparator = "\n\n---\n\n"

const contextTerminator = "\n\n---"

// SystemPrompt fixes the assistant's role for every question.
const SystemPrompt = `You are an AI assistant that answers questions about the documents in your knowledge base.
Answer in the same language as the user's question.`

// The model must surface related facts from the context rather than admit
// that the answer is missing.
const userPromptTemplate = `Use the following context fragments to answer the user's question.
You must use only the facts from the context to answer.
If the answer cannot be found in the context, provide any relevant facts found in the context.
Never say that the context does not contain information about the question.
If the user greets you, greet them back. If the user thanks you, acknowledge it.
Context:
{context}

User question:
{question}
`

// GenerationClient produces a reply from an ordered list of chat messages.
type GenerationClient interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// AnswerComposer turns a question and its retrieved passages into an answer.
type AnswerComposer struct {
	client   GenerationClient
	timeout  time.Duration
	observer CallObserver
}

// NewAnswerComposer creates an AnswerComposer. A zero timeout disables the
// per-call bound.
func NewAnswerComposer(client GenerationClient, timeout time.Duration) *AnswerComposer {
	return &AnswerComposer{client: client, timeout: timeout}
}

// WithObserver attaches a CallObserver and returns the composer.
func (c *AnswerComposer) WithObserver(o CallObserver) *AnswerComposer {
	c.observer = o
	return c
}

// BuildContext joins passage texts with ContextSeparator and terminates the
// block with a trailing separator, also when there are no passages.
func BuildContext(passages []domain.ScoredPassage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return strings.Join(texts, ContextSeparator) + contextTerminator
}

// BuildMessages returns the system and user messages sent to the model.
func BuildMessages(question string, passages []domain.ScoredPassage) []domain.ChatMessage {
	user := strings.NewReplacer(
		"{context}", BuildContext(passages),
		"{question}", question,
	).Replace(userPromptTemplate)

	return []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: SystemPrompt},
		{Role: domain.ChatRoleUser, Content: user},
	}
}

// Answer asks the generation backend to answer question grounded on passages.
func (c *AnswerComposer) Answer(ctx context.Context, question string, passages []domain.ScoredPassage) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerComposer.Answer", telemetry.SpanAttributes{
		Operation: "answer",
	})
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := c.client.Chat(ctx, BuildMessages(question, passages))
	if c.observer != nil {
		c.observer.ObserveCall("generation", time.Since(start), err)
	}
	if err != nil {
		span.SetError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.NewGenerationServiceError("generation request timed out", err)
		}
		return "", domain.NewGenerationServiceError("failed to generate answer", err)
	}
	return answer, nil
}
