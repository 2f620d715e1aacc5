// http — admin HTTP-интерфейс монитора на chi.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/go-marketplace-monitor/internal/http/handlers"
	"github.com/pribylovaa/go-marketplace-monitor/internal/http/middleware"
)

// Options — параметры роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// Metrics — обработчик /metrics; nil — маршрут не регистрируется.
	Metrics http.Handler
}

// NewRouter собирает роутер admin API.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		r.Use(middleware.Timeout(opts.Timeout))
	}

	r.Get("/livez", h.Livez)
	r.Get("/healthz", h.Healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Get("/stats", h.Stats)
	r.Get("/session", h.Session)
	r.Post("/session/refresh", h.RefreshSession)
	r.Post("/ledger/reset", h.ResetLedger)

	return r
}
