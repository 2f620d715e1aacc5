// handlers — обработчики admin HTTP API монитора.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/pribylovaa/go-marketplace-monitor/internal/crawler"
	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
	"github.com/pribylovaa/go-marketplace-monitor/internal/session"
)

// Reports отдаёт отчёт последнего цикла.
type Reports interface {
	LastReport() *crawler.Report
}

// Sessions — диагностика и принудительное обновление сессии.
type Sessions interface {
	Status(ctx context.Context) session.Status
	Invalidate()
	Current(ctx context.Context) (models.SessionToken, error)
}

// Ledger — операции журнала, доступные оператору.
type Ledger interface {
	Len(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// Handlers агрегирует зависимости обработчиков. Ledger может быть nil.
type Handlers struct {
	Reports  Reports
	Sessions Sessions
	Ledger   Ledger
	Ready    *atomic.Bool
}

// New создаёт набор обработчиков.
func New(reports Reports, sessions Sessions, ledger Ledger, ready *atomic.Bool) *Handlers {
	if ready == nil {
		ready = &atomic.Bool{}
	}
	return &Handlers{Reports: reports, Sessions: sessions, Ledger: ledger, Ready: ready}
}

// Livez — процесс жив.
func (h *Handlers) Livez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Healthz — 200 после старта движка и до начала остановки.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	if !h.Ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Stats — отчёт последнего цикла (404 до первого цикла).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	rep := h.Reports.LastReport()
	if rep == nil {
		writeError(w, r, http.StatusNotFound, "not_found", "no cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Session — возраст и годность сессии без значений секретов.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Sessions.Status(r.Context()))
}

// RefreshSession помечает сессию отвергнутой и сразу запрашивает новую.
func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	const op = "http/handlers/RefreshSession"

	h.Sessions.Invalidate()
	if _, err := h.Sessions.Current(r.Context()); err != nil {
		log.From(r.Context()).Warn("session_refresh_requested_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		status, code := http.StatusBadGateway, "refresh_failed"
		if errors.Is(err, context.DeadlineExceeded) {
			status, code = http.StatusGatewayTimeout, "timeout"
		}
		writeError(w, r, status, code, "session refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, h.Sessions.Status(r.Context()))
}

// ResetLedger очищает журнал виденных ID.
func (h *Handlers) ResetLedger(w http.ResponseWriter, r *http.Request) {
	const op = "http/handlers/ResetLedger"

	if h.Ledger == nil {
		writeError(w, r, http.StatusNotImplemented, "unavailable", "ledger is not configured")
		return
	}

	before, _ := h.Ledger.Len(r.Context())
	if err := h.Ledger.Reset(r.Context()); err != nil {
		log.From(r.Context()).Error("ledger_reset_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		writeError(w, r, http.StatusInternalServerError, "internal", "ledger reset failed")
		return
	}

	log.From(r.Context()).Warn("ledger_reset",
		slog.String("op", op),
		slog.Int("removed", before),
	)
	writeJSON(w, http.StatusOK, map[string]int{"removed": before})
}
