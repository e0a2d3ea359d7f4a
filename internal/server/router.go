package server

import (
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/api/handlers"
	"github.com/cloo-solutions/askdocs/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	defaultMaxBodyBytes int64 = 32 << 20
	// questions are small JSON documents
	maxAskBodyBytes int64 = 64 << 10
)

type RouterConfig struct {
	Logger          *slog.Logger
	DocumentHandler *handlers.DocumentHandler
	AskHandler      *handlers.AskHandler
	HealthHandler   *handlers.HealthHandler

	// Optional
	HTTPObserver   middleware.HTTPObserver
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	if cfg.HTTPObserver != nil {
		r.Use(middleware.Metrics(cfg.HTTPObserver))
	}
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Health)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Get("/documents", cfg.DocumentHandler.List)

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}

		r.With(middleware.MaxBodyBytes(maxBodyBytes)).Group(func(r chi.Router) {
			r.Post("/upload-document", cfg.DocumentHandler.Upload)
			r.Post("/upload-document/", cfg.DocumentHandler.Upload)
		})
		r.With(middleware.MaxBodyBytes(min(maxBodyBytes, maxAskBodyBytes))).Group(func(r chi.Router) {
			r.Post("/ask", cfg.AskHandler.Ask)
			r.Post("/ask/", cfg.AskHandler.Ask)
		})
	})

	return r
}
