package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
)

// Logging кладёт в контекст логгер запроса (с request_id) и пишет итог запроса.
// Ставится после RequestID.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if id := RequestIDFrom(r.Context()); id != "" {
				reqLogger = reqLogger.With(slog.String("request_id", id))
			}
			ctx := log.Into(r.Context(), reqLogger)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			started := time.Now()
			next.ServeHTTP(sw, r)

			reqLogger.LogAttrs(ctx, slog.LevelInfo, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Int("bytes", sw.count),
				slog.Duration("took", time.Since(started)),
			)
		})
	}
}
