package repository

import (
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

// CosineSimilarity returns a·b / (|a||b|), or 0 when either vector has zero
// norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankPassages scores every passage against query and keeps the topK best,
// ordered by descending score then ascending ID.
func rankPassages(passages []domain.Passage, query []float32, topK int) []domain.ScoredPassage {
	scored := make([]domain.ScoredPassage, 0, len(passages))
	for _, p := range passages {
		scored = append(scored, domain.ScoredPassage{
			ID:       p.ID,
			Text:     p.Text,
			Metadata: p.Metadata,
			Score:    CosineSimilarity(query, p.Vector),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func checkQuery(query []float32, topK, dimensions int) error {
	if topK < 1 {
		return domain.ErrInvalidTopK
	}
	if dimensions > 0 && len(query) != dimensions {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStore, domain.ErrDimensionMismatch.Message,
			fmt.Errorf("expected %d, got %d", dimensions, len(query)))
	}
	return nil
}

func summarize(passages []domain.Passage) []domain.DocumentSummary {
	counts := make(map[string]int)
	for _, p := range passages {
		counts[p.Metadata.DocumentName()]++
	}
	docs := make([]domain.DocumentSummary, 0, len(counts))
	for name, n := range counts {
		docs = append(docs, domain.DocumentSummary{DocumentName: name, Passages: n})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocumentName < docs[j].DocumentName })
	return docs
}
