package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

// MemoryPassageRepository keeps passages in process memory and answers
// queries with a linear scan.
type MemoryPassageRepository struct {
	mu         sync.RWMutex
	passages   []domain.Passage
	nextID     int64
	dimensions int
}

func NewMemoryPassageRepository(dimensions int) *MemoryPassageRepository {
	return &MemoryPassageRepository{dimensions: dimensions}
}

// Add appends all passages or none.
func (r *MemoryPassageRepository) Add(ctx context.Context, passages []domain.NewPassage) error {
	staged := make([]domain.Passage, 0, len(passages))
	for _, p := range passages {
		if err := domain.ValidateNewPassage(p, r.dimensions); err != nil {
			return err
		}
		metadata, err := p.Metadata.Clone()
		if err != nil {
			return domain.NewStoreError("failed to encode passage metadata", err)
		}
		staged = append(staged, domain.Passage{
			Text:     p.Text,
			Vector:   slices.Clone(p.Vector),
			Metadata: metadata,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for i := range staged {
		r.nextID++
		staged[i].ID = r.nextID
		staged[i].CreatedAt = now
	}
	r.passages = append(r.passages, staged...)
	return nil
}

// Nearest scores every stored passage against query.
func (r *MemoryPassageRepository) Nearest(ctx context.Context, query []float32, topK int) ([]domain.ScoredPassage, error) {
	if err := checkQuery(query, topK, r.dimensions); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	results := rankPassages(r.passages, query, topK)
	for i := range results {
		metadata, err := results[i].Metadata.Clone()
		if err != nil {
			return nil, domain.NewStoreError("failed to copy passage metadata", err)
		}
		results[i].Metadata = metadata
	}
	return results, nil
}

func (r *MemoryPassageRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.passages), nil
}

func (r *MemoryPassageRepository) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return summarize(r.passages), nil
}

// Ping always succeeds.
func (r *MemoryPassageRepository) Ping(ctx context.Context) error {
	return nil
}
