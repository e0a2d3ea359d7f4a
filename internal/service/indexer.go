package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/logging"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

// Indexer segments, embeds and stores documents.
type Indexer struct {
	embedder  Embedder
	store     PassageStore
	extractor TextExtractor
	archive   DocumentArchive
	chunkCfg  ChunkConfig
}

// NewIndexer creates an Indexer with the default chunk configuration.
func NewIndexer(embedder Embedder, store PassageStore, extractor TextExtractor) *Indexer {
	return NewIndexerWithConfig(embedder, store, extractor, DefaultChunkConfig())
}

// NewIndexerWithConfig creates an Indexer with explicit chunking.
func NewIndexerWithConfig(embedder Embedder, store PassageStore, extractor TextExtractor, cfg ChunkConfig) *Indexer {
	return &Indexer{
		embedder:  embedder,
		store:     store,
		extractor: extractor,
		chunkCfg:  cfg.normalized(),
	}
}

// WithArchive configures where raw uploads are copied after indexing.
func (s *Indexer) WithArchive(archive DocumentArchive) *Indexer {
	s.archive = archive
	return s
}

// Ingest indexes raw text under documentName and returns the number of
// passages created. Embedding happens before anything is written, so an
// embedding failure leaves the store untouched.
func (s *Indexer) Ingest(ctx context.Context, documentName, rawText string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "Indexer.Ingest", telemetry.SpanAttributes{
		DocumentName: documentName,
		Operation:    "ingest",
	})
	defer span.End()

	if strings.TrimSpace(documentName) == "" {
		return 0, domain.ErrMissingDocumentName
	}

	chunks := SplitText(rawText, s.chunkCfg.ChunkSize, s.chunkCfg.Overlap)
	if len(chunks) == 0 {
		logging.FromContext(ctx).Info("document produced no passages", slog.String("document", documentName))
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	if len(vectors) != len(chunks) {
		err := domain.NewEmbeddingServiceError("embedding count mismatch",
			fmt.Errorf("expected %d vectors, got %d", len(chunks), len(vectors)))
		span.SetError(err)
		return 0, err
	}

	passages := make([]domain.NewPassage, len(chunks))
	for i, chunk := range chunks {
		passages[i] = domain.NewPassage{
			Text:     chunk,
			Vector:   vectors[i],
			Metadata: domain.NewPassageMetadata(documentName, i),
		}
	}

	if err := s.store.Add(ctx, passages); err != nil {
		span.SetError(err)
		return 0, err
	}
	span.SetData("passages", len(passages))

	logging.FromContext(ctx).Info("document indexed",
		slog.String("document", documentName),
		slog.Int("passages", len(passages)),
	)
	return len(passages), nil
}

// IngestDocument extracts text from an uploaded document and indexes it.
// Extraction failures are reported before any embedding or write happens.
func (s *Indexer) IngestDocument(ctx context.Context, doc *domain.Document) (int, error) {
	if doc == nil || strings.TrimSpace(doc.Name) == "" {
		return 0, domain.ErrMissingDocumentName
	}
	if s.extractor == nil {
		return 0, domain.NewExtractionError("no text extractor configured", nil)
	}

	text, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		if domain.CodeOf(err) == domain.ErrCodeExtraction {
			return 0, err
		}
		return 0, domain.NewExtractionError("failed to extract document text", err)
	}

	count, err := s.Ingest(ctx, doc.Name, text)
	if err != nil {
		return 0, err
	}

	if s.archive != nil {
		key, err := s.archive.Archive(ctx, doc)
		if err != nil {
			logging.FromContext(ctx).Warn("failed to archive source document",
				slog.String("document", doc.Name),
				slog.String("error", err.Error()),
			)
		} else {
			telemetry.AddBreadcrumb(ctx, "archive", "archived "+key)
			logging.FromContext(ctx).Debug("source document archived",
				slog.String("document", doc.Name),
				slog.String("key", key),
			)
		}
	}

	return count, nil
}
