package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBody bounds /transcribe payloads; they only carry a URL and a few flags.
const maxRequestBody = 1 << 20

// NewRouter wires the routes and middleware.
func NewRouter(h *Handler, corsOrigins []string, requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(corsOrigins)))

	// promhttp negotiates its own compression.
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(gzipMiddleware)
		r.Get("/health", h.HandleHealth)
		r.Get("/history", h.HandleHistoryList)
		r.Get("/history/{id}", h.HandleHistoryGet)

		r.With(timeoutMiddleware(requestTimeout), maxBodySize(maxRequestBody), countStatus).
			Post("/transcribe", h.HandleTranscribe)
	})

	return r
}
