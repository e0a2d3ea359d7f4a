package middleware

import (
	"net/http"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/domain"
)

// MaxBodyBytes caps request bodies at limit bytes; limit <= 0 disables the
// cap. A declared Content-Length over the limit is answered with 413 before
// the handler runs, and a chunked body fails with *http.MaxBytesError once
// the handler reads past the limit.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				api.HandleError(w, domain.NewPayloadTooLargeError(limit))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
