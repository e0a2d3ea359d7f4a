package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/extract"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

const (
	// MaxRetries is the number of failed attempts before a file is moved to
	// the failed directory.
	MaxRetries = 3

	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// DocumentIngester indexes one document and reports the passage count.
type DocumentIngester interface {
	IngestDocument(ctx context.Context, doc *domain.Document) (int, error)
}

// IngestionObserver records ingestion outcomes.
type IngestionObserver interface {
	ObserveIngestion(passages int, err error)
}

// InboxProcessor ingests every file dropped into a directory. Indexed files
// move to processed/; files that keep failing move to failed/ next to a
// .error file holding the last error. An indexed file that could not be
// moved is never ingested again; the move is retried on later rounds.
type InboxProcessor struct {
	dir      string
	ingester DocumentIngester
	observer IngestionObserver
	logger   *slog.Logger
	rename   func(oldpath, newpath string) error

	mu       sync.Mutex
	attempts map[string]int
	indexed  map[string]struct{}
}

// NewInboxProcessor creates the processed and failed directories under dir.
func NewInboxProcessor(dir string, ingester DocumentIngester, logger *slog.Logger) (*InboxProcessor, error) {
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare inbox: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InboxProcessor{
		dir:      dir,
		ingester: ingester,
		logger:   logger.With(slog.String("inbox", dir)),
		rename:   os.Rename,
		attempts: make(map[string]int),
		indexed:  make(map[string]struct{}),
	}, nil
}

func (p *InboxProcessor) WithObserver(o IngestionObserver) *InboxProcessor {
	p.observer = o
	return p
}

// ProcessJobs implements the JobProcessor interface
func (p *InboxProcessor) ProcessJobs(ctx context.Context) error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("failed to list inbox: %w", err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		p.processFile(ctx, entry.Name())
	}

	return nil
}

func (p *InboxProcessor) processFile(ctx context.Context, name string) {
	p.mu.Lock()
	_, pending := p.indexed[name]
	p.mu.Unlock()
	if pending {
		p.moveIndexed(name)
		return
	}

	path := filepath.Join(p.dir, name)

	doc, err := extract.ReadFile(path)
	if err != nil {
		p.handleFailure(ctx, name, err)
		return
	}

	passages, err := p.ingester.IngestDocument(ctx, doc)
	if p.observer != nil {
		p.observer.ObserveIngestion(passages, err)
	}
	if err != nil {
		p.handleFailure(ctx, name, err)
		return
	}

	p.logger.Info("inbox file indexed", slog.String("file", name), slog.Int("passages", passages))
	p.mu.Lock()
	delete(p.attempts, name)
	p.indexed[name] = struct{}{}
	p.mu.Unlock()
	p.moveIndexed(name)
}

// moveIndexed moves an indexed file to processed/. On failure the file stays
// marked as indexed so the next round only retries the move.
func (p *InboxProcessor) moveIndexed(name string) {
	if err := p.rename(filepath.Join(p.dir, name), filepath.Join(p.dir, ProcessedDir, name)); err != nil {
		p.logger.Error("failed to move indexed file", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	p.mu.Lock()
	delete(p.indexed, name)
	p.mu.Unlock()
}

// handleFailure keeps the file for another round unless it failed for a
// reason retrying cannot fix or ran out of attempts.
func (p *InboxProcessor) handleFailure(ctx context.Context, name string, jobErr error) {
	p.mu.Lock()
	p.attempts[name]++
	attempt := p.attempts[name]
	p.mu.Unlock()

	if retriable(jobErr) && attempt < MaxRetries {
		p.logger.Warn("inbox file will be retried",
			slog.String("file", name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", MaxRetries),
			slog.String("error", jobErr.Error()),
		)
		return
	}

	p.forget(name)
	p.logger.Error("inbox file failed", slog.String("file", name), slog.String("error", jobErr.Error()))
	telemetry.CaptureError(ctx, fmt.Errorf("inbox file %s failed: %w", name, jobErr))

	failed := filepath.Join(p.dir, FailedDir, name)
	if err := p.rename(filepath.Join(p.dir, name), failed); err != nil {
		p.logger.Error("failed to move file to failed directory", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	msg := fmt.Sprintf("attempts: %d\nerror: %v\n", attempt, jobErr)
	if err := os.WriteFile(failed+".error", []byte(msg), 0o644); err != nil {
		p.logger.Error("failed to write error file", slog.String("file", name), slog.String("error", err.Error()))
	}
}

func (p *InboxProcessor) forget(name string) {
	p.mu.Lock()
	delete(p.attempts, name)
	p.mu.Unlock()
}

func retriable(err error) bool {
	switch domain.CodeOf(err) {
	case domain.ErrCodeExtraction, domain.ErrCodeValidation:
		return false
	}
	return true
}
