package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// SentryMiddleware runs each request inside a Sentry transaction named after
// its route, continuing an incoming sentry-trace when present. Panics are
// reported and re-raised; 5xx responses are reported as messages. Without an
// initialized client the transaction is never sent.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get("sentry-trace"); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get("baggage")))
		}
		transaction := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
		defer transaction.Finish()

		r = r.WithContext(sentry.SetHubOnContext(transaction.Context(), hub))
		tagRequest(hub.Scope(), transaction, r)

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if route := routePattern(r); route != "unmatched" {
			transaction.Name = r.Method + " " + route
			transaction.Source = sentry.SourceRoute
		}

		status := rec.statusCode()
		transaction.Status = httpStatusToSpanStatus(status)
		transaction.SetData("http.response.status_code", status)
		if status >= http.StatusInternalServerError {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s", status, transaction.Name))
		}
	})
}

func tagRequest(scope *sentry.Scope, transaction *sentry.Span, r *http.Request) {
	scope.SetContext("request", map[string]interface{}{
		"method":    r.Method,
		"path":      r.URL.Path,
		"client_ip": clientIP(r),
	})
	if requestID := GetRequestID(r.Context()); requestID != "" {
		scope.SetTag("request_id", requestID)
		transaction.SetTag("request_id", requestID)
	}
	if userAgent := r.UserAgent(); userAgent != "" {
		scope.SetTag("user_agent", userAgent)
	}
}

// httpStatusToSpanStatus converts an HTTP status code to a span status.
func httpStatusToSpanStatus(status int) sentry.SpanStatus {
	switch status {
	case http.StatusBadRequest:
		return sentry.SpanStatusInvalidArgument
	case http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case http.StatusRequestEntityTooLarge:
		return sentry.SpanStatusFailedPrecondition
	case http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	case http.StatusGatewayTimeout:
		return sentry.SpanStatusDeadlineExceeded
	}

	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}
