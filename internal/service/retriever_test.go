package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRetriever_BlankQuestionSkipsEmbedding(t *testing.T) {
	client := new(MockEmbeddingClient)
	retriever := NewRetriever(NewEmbeddingGateway(client, gatewayConfig(3)), &fakeStore{})

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := retriever.Retrieve(context.Background(), q, 3)
		assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
		assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidQuery))
	}
	client.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestRetriever_InvalidTopK(t *testing.T) {
	client := new(MockEmbeddingClient)
	retriever := NewRetriever(NewEmbeddingGateway(client, gatewayConfig(3)), &fakeStore{})

	_, err := retriever.Retrieve(context.Background(), "question", 0)

	assert.ErrorIs(t, err, domain.ErrInvalidTopK)
	client.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestRetriever_EmptyStore(t *testing.T) {
	retriever := NewRetriever(NewEmbeddingGateway(newHashEmbedder(8), gatewayConfig(8)), &fakeStore{})

	results, err := retriever.Retrieve(context.Background(), "anything", 3)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetriever_ReturnsOrderedTopK(t *testing.T) {
	ctx := context.Background()
	embedder := newHashEmbedder(32)
	gateway := NewEmbeddingGateway(embedder, gatewayConfig(32))
	store := &fakeStore{}
	indexer := NewIndexerWithConfig(gateway, store, nil, ChunkConfig{ChunkSize: 40})
	_, err := indexer.Ingest(ctx, "facts",
		"Cats purr when content.\n\nDogs bark at strangers.\n\nBirds sing at dawn.\n\nFish swim in schools.")
	require.NoError(t, err)

	results, err := NewRetriever(gateway, store).Retrieve(ctx, "Why do dogs bark at strangers?", 3)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Dogs bark at strangers.", results[0].Text)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestRetriever_FewerPassagesThanTopK(t *testing.T) {
	ctx := context.Background()
	gateway := NewEmbeddingGateway(newHashEmbedder(8), gatewayConfig(8))
	store := &fakeStore{}
	_, err := NewIndexerWithConfig(gateway, store, nil, ChunkConfig{ChunkSize: 10}).
		Ingest(ctx, "two", "first one\n\nsecond one")
	require.NoError(t, err)

	results, err := NewRetriever(gateway, store).Retrieve(ctx, "one", 3)

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	failing := embedderFunc(func(context.Context, string) ([]float32, error) {
		return nil, errors.New("HTTP 503")
	})
	retriever := NewRetriever(NewEmbeddingGateway(failing, EmbeddingGatewayConfig{Dimensions: 3, Timeout: time.Second}), &fakeStore{})

	_, err := retriever.Retrieve(context.Background(), "question", 3)

	assert.True(t, domain.HasCode(err, domain.ErrCodeEmbeddingService))
}
