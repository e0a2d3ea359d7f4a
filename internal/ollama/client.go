// Package ollama talks to an Ollama server for embeddings and chat replies.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/ollama/ollama/api"
)

const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultEmbeddingModel = "all-minilm"
	DefaultChatModel      = "llama3.2"
)

// Config holds the settings for constructing a Client.
type Config struct {
	// BaseURL is the Ollama server URL (e.g. "http://localhost:11434").
	BaseURL string
	// EmbeddingModel is the model used by /api/embeddings.
	EmbeddingModel string
	// ChatModel is the model used by /api/chat.
	ChatModel string
	// HTTPClient overrides the default client. Timeouts are expected to come
	// from the request context.
	HTTPClient *http.Client
}

// Client implements service.EmbeddingClient and service.GenerationClient.
// It is safe for concurrent use.
type Client struct {
	api            *api.Client
	baseURL        string
	embeddingModel string
	chatModel      string
}

// NewClient builds a client for cfg. It fails only when BaseURL cannot be
// parsed.
func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}
	if c.chatModel == "" {
		c.chatModel = DefaultChatModel
	}

	base, err := url.Parse(c.baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama: invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c.api = api.NewClient(base, httpClient)
	return c, nil
}

// GenerateEmbedding embeds a single text through /api/embeddings.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  c.embeddingModel,
		Prompt: text,
	})
	if err != nil {
		return nil, wrapError("embeddings", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("ollama: response contained no embedding")
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Chat sends the conversation to /api/chat without streaming and returns the
// assistant's reply.
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.chatModel,
		Messages: make([]api.Message, len(messages)),
		Stream:   &stream,
	}
	for i, m := range messages {
		req.Messages[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}

	var reply strings.Builder
	err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", wrapError("chat", err)
	}
	if reply.Len() == 0 {
		return "", errors.New("ollama: response contained no message")
	}
	return reply.String(), nil
}

// wrapError keeps the HTTP status of server-side failures visible in the
// message while preserving the cause for errors.Is / errors.As.
func wrapError(call string, err error) error {
	var status api.StatusError
	if errors.As(err, &status) {
		msg := status.ErrorMessage
		if msg == "" {
			msg = http.StatusText(status.StatusCode)
		}
		return fmt.Errorf("ollama: %s: HTTP %d: %s: %w", call, status.StatusCode, msg, err)
	}
	return fmt.Errorf("ollama: %s: %w", call, err)
}
