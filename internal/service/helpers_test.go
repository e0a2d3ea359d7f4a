package service

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/mock"
)

type embedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedderFunc) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// hashEmbedder maps each lowercase word of a text into one of dims buckets.
// Texts sharing words get similar vectors; identical texts get identical ones.
type hashEmbedder struct {
	dims int
}

func newHashEmbedder(dims int) *hashEmbedder {
	return &hashEmbedder{dims: dims}
}

func (h *hashEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?¿¡\"'()")
		if word == "" {
			continue
		}
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(word))
		vec[int(hasher.Sum32())%h.dims]++
	}
	return vec, nil
}

// fakeStore is a minimal in-process PassageStore for service tests.
type fakeStore struct {
	mu       sync.Mutex
	passages []domain.Passage
	nextID   int64
	addCalls int
	addErr   error
}

func (s *fakeStore) Add(_ context.Context, passages []domain.NewPassage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCalls++
	if s.addErr != nil {
		return s.addErr
	}
	for _, p := range passages {
		s.nextID++
		s.passages = append(s.passages, domain.Passage{
			ID:       s.nextID,
			Text:     p.Text,
			Vector:   p.Vector,
			Metadata: p.Metadata,
		})
	}
	return nil
}

func (s *fakeStore) Nearest(_ context.Context, query []float32, topK int) ([]domain.ScoredPassage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if topK < 1 {
		return nil, domain.ErrInvalidTopK
	}
	results := make([]domain.ScoredPassage, 0, len(s.passages))
	for _, p := range s.passages {
		results = append(results, domain.ScoredPassage{
			ID:       p.ID,
			Text:     p.Text,
			Metadata: p.Metadata,
			Score:    cosine(query, p.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *fakeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.passages)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MockGenerationClient mocks a chat backend
type MockGenerationClient struct {
	mock.Mock
}

func (m *MockGenerationClient) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// MockExtractor mocks text extraction
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

// MockArchive mocks the source document archive
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Archive(ctx context.Context, doc *domain.Document) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

// echoGenerator answers with the first context passage, or a fixed reply
// when the context is empty.
type echoGenerator struct{}

func (echoGenerator) Chat(_ context.Context, messages []domain.ChatMessage) (string, error) {
	if len(messages) < 2 {
		return "", errors.New("missing user message")
	}
	user := messages[1].Content
	start := strings.Index(user, "Context:\n")
	if start < 0 {
		return "", errors.New("missing context")
	}
	rest := user[start+len("Context:\n"):]
	first, _, _ := strings.Cut(rest, ContextSeparator)
	first, _, _ = strings.Cut(first, contextTerminator)
	return strings.TrimSpace(first), nil
}
