// Package telemetry reports pipeline spans and server-side failures to
// Sentry. Every helper is safe to call when Sentry is not initialized.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/getsentry/sentry-go"
)

const (
	serviceName  = "askdocs"
	flushTimeout = 5 * time.Second
)

// unsampledTransactions are polled by health checks and scrapers.
var unsampledTransactions = map[string]bool{
	"GET /health":  true,
	"GET /metrics": true,
}

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init initializes Sentry with tracing enabled and returns a function that
// flushes pending events. An empty DSN disables Sentry; an invalid one is
// logged and also disables it.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:           cfg.DSN,
		Environment:   cfg.Environment,
		EnableTracing: true,
		Debug:         cfg.Debug,
		ServerName:    serviceName,
		TracesSampler: func(ctx sentry.SamplingContext) float64 {
			return sampleRate(ctx.Span, cfg.TracesSampleRate)
		},
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if hint != nil && !Reportable(hint.OriginalException) {
				return nil
			}
			return event
		},
	})
	if err != nil {
		slog.Warn("sentry: failed to initialize, continuing without tracing", slog.String("error", err.Error()))
		return func() {}, nil
	}

	slog.Info("sentry: tracing initialized",
		slog.String("environment", cfg.Environment),
		slog.Float64("sample_rate", cfg.TracesSampleRate),
	)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampleRate keeps child spans with their parent's decision and drops
// health check and scrape traffic.
func sampleRate(span *sentry.Span, rate float64) float64 {
	if span == nil {
		return rate
	}
	if unsampledTransactions[span.Name] {
		return 0
	}
	if span.ParentSpanID != (sentry.SpanID{}) {
		if span.Sampled.Bool() {
			return 1
		}
		return 0
	}
	return rate
}

// Reportable reports whether err is a server-side failure worth an event.
// Rejected input and cancelled requests are not.
func Reportable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch domain.CodeOf(err) {
	case domain.ErrCodeInvalidQuery, domain.ErrCodeValidation, domain.ErrCodePayloadTooLarge:
		return false
	}
	return true
}

// spanStatus maps a pipeline error onto a span status.
func spanStatus(err error) sentry.SpanStatus {
	switch {
	case err == nil:
		return sentry.SpanStatusOK
	case errors.Is(err, context.Canceled):
		return sentry.SpanStatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return sentry.SpanStatusDeadlineExceeded
	case !Reportable(err):
		return sentry.SpanStatusInvalidArgument
	case domain.HasCode(err, domain.ErrCodeEmbeddingService), domain.HasCode(err, domain.ErrCodeGenerationService):
		return sentry.SpanStatusUnavailable
	default:
		return sentry.SpanStatusInternalError
	}
}

// SpanAttributes are the tags and data attached when a span starts.
type SpanAttributes struct {
	DocumentName string
	Operation    string
	TopK         int
}

// Span wraps sentry.Span. A zero Span ignores every call.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetData attaches a value known only after the span started, such as a
// passage count.
func (s *Span) SetData(key string, value any) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// SetError sets the span status from err and captures reportable errors.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = spanStatus(err)
	if !Reportable(err) {
		return
	}
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// StartSpan starts a child of the span in ctx, or a new transaction when ctx
// carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.DocumentName != "" {
		span.SetTag("document_name", attrs.DocumentName)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
	if attrs.TopK > 0 {
		span.SetData("top_k", attrs.TopK)
	}

	return span.Context(), &Span{inner: span}
}

// CaptureError sends a reportable err to the hub in ctx, falling back to the
// global hub.
func CaptureError(ctx context.Context, err error) {
	if !Reportable(err) {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// AddBreadcrumb records an info breadcrumb on the hub in ctx, falling back to
// the global hub.
func AddBreadcrumb(ctx context.Context, category, message string) {
	breadcrumb := &sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
		return
	}
	sentry.AddBreadcrumb(breadcrumb)
}
