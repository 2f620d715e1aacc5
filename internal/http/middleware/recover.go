package middleware

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
)

// Recover превращает panic обработчика в 500 без подробностей для клиента.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "http_panic",
						slog.String("path", r.URL.Path),
						slog.Any("reason", rec),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"internal error"}}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
