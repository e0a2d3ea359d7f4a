package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockOpenAIAPI) CreateChatCompletion(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	text := "This is a test document about Go programming."
	expectedEmbedding := make([]float32, 384)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "")

	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	apiErr := errors.New("API rate limit exceeded")
	mockAPI.On("CreateEmbeddings", ctx, "Test text").Return(nil, apiErr)

	embedding, err := client.GenerateEmbedding(ctx, "Test text")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "failed to create embedding")
	mockAPI.AssertExpectations(t)
}

func TestClient_Chat(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}
	ctx := context.Background()
	messages := []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "hi"}}

	mockAPI.On("CreateChatCompletion", ctx, messages).Return("hello", nil)

	answer, err := client.Chat(ctx, messages)

	require.NoError(t, err)
	assert.Equal(t, "hello", answer)
}

func TestClient_Chat_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

	_, err := client.Chat(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create chat completion: quota exceeded")
}

func TestOpenAIAdapter_AgainstCompatibleServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/embeddings":
			assert.Equal(t, float64(3), body["dimensions"])
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,0.125]}],"model":"text-embedding-3-small"}`))
		case "/v1/chat/completions":
			assert.Equal(t, "test-chat", body["model"])
			_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Paris"},"finish_reason":"stop"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClientWithConfig(Config{
		APIKey:              "test-key",
		BaseURL:             srv.URL + "/v1",
		EmbeddingDimensions: 3,
		ChatModel:           "test-chat",
	})

	vec, err := client.GenerateEmbedding(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, vec)

	answer, err := client.Chat(context.Background(), []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "capital?"}})
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
}

func TestNewClientFromEnv_NoAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClientFromEnv()

	assert.Nil(t, client)
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestNewClientFromEnv_WithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-api-key")

	client, err := NewClientFromEnv()

	assert.NotNil(t, client)
	assert.NoError(t, err)
}
