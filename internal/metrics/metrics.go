// Package metrics registers the Prometheus metrics of the askdocs server.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "askdocs"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics holds every collector owned by the server. Build one per registry
// so tests can use a fresh prometheus.Registry.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec

	// external embedding and generation calls, by service and outcome
	externalCallSeconds *prometheus.HistogramVec

	ingestionsTotal  *prometheus.CounterVec
	passagesIngested prometheus.Counter
	questionsTotal   *prometheus.CounterVec
}

// New registers all metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests, partitioned by method, route, and status code.",
		}, []string{"method", "route", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		externalCallSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Duration of calls to the embedding and generation backends.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"service", "outcome"}),

		ingestionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Documents ingested, partitioned by outcome.",
		}, []string{"outcome"}),

		passagesIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "passages_total",
			Help:      "Passages written to the store.",
		}),

		questionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ask",
			Name:      "questions_total",
			Help:      "Questions answered, partitioned by outcome.",
		}, []string{"outcome"}),
	}
}

// Outcome classifies err as ok, timeout or error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// ObserveCall records one backend call.
func (m *Metrics) ObserveCall(service string, duration time.Duration, err error) {
	m.externalCallSeconds.WithLabelValues(service, Outcome(err)).Observe(duration.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveIngestion records the outcome of one document ingestion.
func (m *Metrics) ObserveIngestion(passages int, err error) {
	m.ingestionsTotal.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		m.passagesIngested.Add(float64(passages))
	}
}

// ObserveQuestion records the outcome of one question.
func (m *Metrics) ObserveQuestion(err error) {
	m.questionsTotal.WithLabelValues(Outcome(err)).Inc()
}
