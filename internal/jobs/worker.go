package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobProcessor runs one polling round.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker calls a JobProcessor on a fixed interval until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	logger       *slog.Logger
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new Worker instance
func NewWorker(processor JobProcessor, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		logger:       logger.With(slog.String("component", "worker")),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop and blocks until ctx is cancelled or Stop is
// called. The first round runs immediately.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	w.logger.Info("worker started", slog.Duration("poll_interval", w.pollInterval))

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", slog.String("reason", "context cancelled"))
			return
		case <-w.stopChan:
			w.logger.Info("worker stopped", slog.String("reason", "stop signal"))
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.logger.Error("error processing jobs", slog.String("error", err.Error()))
	}
}

// Stop signals the loop and waits for it to exit. Safe to call more than
// once; it must only be called after Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}
