package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"golang.org/x/sync/errgroup"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Embedder converts text into fixed-dimension vectors. Results are parallel
// to the input slice.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// CallObserver records the latency and outcome of calls to external services.
type CallObserver interface {
	ObserveCall(service string, duration time.Duration, err error)
}

// EmbeddingGatewayConfig controls timeouts and fan-out of embedding calls.
type EmbeddingGatewayConfig struct {
	Dimensions  int
	Timeout     time.Duration
	Concurrency int
}

// DefaultEmbeddingGatewayConfig matches the all-minilm model served by Ollama.
func DefaultEmbeddingGatewayConfig() EmbeddingGatewayConfig {
	return EmbeddingGatewayConfig{
		Dimensions:  384,
		Timeout:     30 * time.Second,
		Concurrency: 4,
	}
}

// EmbeddingGateway embeds texts through an EmbeddingClient, one call per text.
// Every call is individually time-bounded and every failure surfaces as an
// EMBEDDING_SERVICE_ERROR.
type EmbeddingGateway struct {
	client   EmbeddingClient
	cfg      EmbeddingGatewayConfig
	observer CallObserver
}

// NewEmbeddingGateway creates a new EmbeddingGateway instance
func NewEmbeddingGateway(client EmbeddingClient, cfg EmbeddingGatewayConfig) *EmbeddingGateway {
	defaults := DefaultEmbeddingGatewayConfig()
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaults.Dimensions
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &EmbeddingGateway{client: client, cfg: cfg}
}

// WithObserver attaches a CallObserver and returns the gateway.
func (g *EmbeddingGateway) WithObserver(o CallObserver) *EmbeddingGateway {
	g.observer = o
	return g
}

// Dimensions returns the vector size every embedding must have.
func (g *EmbeddingGateway) Dimensions() int {
	return g.cfg.Dimensions
}

// Embed embeds every text and returns the vectors in input order. The first
// failure cancels the remaining calls and fails the whole batch.
func (g *EmbeddingGateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.cfg.Concurrency)

	for i, text := range texts {
		group.Go(func() error {
			vec, err := g.embed(groupCtx, text)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedOne embeds a single text, typically a query.
func (g *EmbeddingGateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text)
}

func (g *EmbeddingGateway) embed(ctx context.Context, text string) ([]float32, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	vec, err := g.client.GenerateEmbedding(ctx, text)
	if err == nil && len(vec) != g.cfg.Dimensions {
		err = fmt.Errorf("expected %d dimensions, got %d", g.cfg.Dimensions, len(vec))
	}
	if g.observer != nil {
		g.observer.ObserveCall("embedding", time.Since(start), err)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewEmbeddingServiceError("embedding request timed out", err)
		}
		return nil, domain.NewEmbeddingServiceError("failed to generate embedding", err)
	}
	return vec, nil
}
