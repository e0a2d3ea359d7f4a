package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPipeline(generator GenerationClient, topK int) (*Indexer, *AskService, *fakeStore) {
	store := &fakeStore{}
	gateway := NewEmbeddingGateway(newHashEmbedder(32), gatewayConfig(32))
	indexer := NewIndexer(gateway, store, nil)
	ask := NewAskService(NewRetriever(gateway, store), NewAnswerComposer(generator, time.Second), topK)
	return indexer, ask, store
}

func TestAskService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	indexer, ask, _ := newPipeline(echoGenerator{}, 3)

	_, err := indexer.Ingest(ctx, "geo", "Paris is the capital of France.")
	require.NoError(t, err)

	out, err := ask.Ask(ctx, "What is the capital of France?")

	require.NoError(t, err)
	assert.Equal(t, "What is the capital of France?", out.Question)
	assert.Contains(t, out.Answer, "Paris")
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "geo", out.Sources[0].Metadata.DocumentName())
}

func TestAskService_EmptyQuestion(t *testing.T) {
	generator := new(MockGenerationClient)
	_, ask, _ := newPipeline(generator, 3)

	_, err := ask.Ask(context.Background(), "   ")

	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	generator.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestAskService_EmptyStoreStillAsksModel(t *testing.T) {
	generator := new(MockGenerationClient)
	_, ask, _ := newPipeline(generator, 3)
	generator.On("Chat", mock.Anything, BuildMessages("Hola", nil)).Return("¡Hola!", nil)

	out, err := ask.Ask(context.Background(), "Hola")

	require.NoError(t, err)
	assert.Equal(t, "¡Hola!", out.Answer)
	assert.NotNil(t, out.Sources)
	assert.Empty(t, out.Sources)
	generator.AssertExpectations(t)
}

func TestAskService_LimitsSourcesToTopK(t *testing.T) {
	ctx := context.Background()
	indexer, ask, _ := newPipeline(echoGenerator{}, 2)
	for _, text := range []string{"one fact", "two fact", "three fact", "four fact"} {
		_, err := indexer.Ingest(ctx, "many", text)
		require.NoError(t, err)
	}

	out, err := ask.Ask(ctx, "fact")

	require.NoError(t, err)
	assert.Len(t, out.Sources, 2)
}

func TestNewAskService_DefaultTopK(t *testing.T) {
	_, ask, _ := newPipeline(echoGenerator{}, 0)

	assert.Equal(t, DefaultTopK, ask.TopK())
}
