//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClientWithConfig(Config{APIKey: apiKey, EmbeddingDimensions: 384})

	embedding, err := client.GenerateEmbedding(context.Background(), "This is a test document for generating embeddings.")

	require.NoError(t, err)
	assert.Len(t, embedding, 384)
}

func TestIntegration_Chat_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	answer, err := NewClient(apiKey).Chat(context.Background(), []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "Reply with the single word: pong"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}
