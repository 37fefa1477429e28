package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterOption customizes the router
type RouterOption func(chi.Router)

// WithMount mounts an extra handler, such as the MCP endpoint, at pattern
func WithMount(pattern string, handler http.Handler) RouterOption {
	return func(r chi.Router) {
		r.Mount(pattern, handler)
	}
}

// NewRouter builds the HTTP routes
func NewRouter(logger *zap.Logger, h *Handler, opts ...RouterOption) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger.Named("http")))

	r.Get("/healthz", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/execute", h.Execute)
		r.Get("/status/{id}", h.Status)
		r.Get("/languages", h.Languages)
	})

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
