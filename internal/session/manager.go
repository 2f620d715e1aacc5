package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/redact"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidSession — годного набора нет даже после попытки обновления.
	ErrInvalidSession = models.ErrInvalidSession
	// ErrRefreshUnavailable — обновление не настроено.
	ErrRefreshUnavailable = errors.New("session refresh unavailable")
)

// Refresher получает свежий набор cookie вне основного цикла (например, через браузер).
type Refresher interface {
	Refresh(ctx context.Context) (models.SessionToken, error)
}

// Status — диагностическое состояние сессии для admin API.
type Status struct {
	Present     bool          `json:"present"`
	Valid       bool          `json:"valid"`
	Age         time.Duration `json:"age"`
	Keys        []string      `json:"keys,omitempty"`
	LastRefresh time.Time     `json:"last_refresh,omitempty"`
	Refreshes   int64         `json:"refreshes"`
}

// DefaultRefreshTimeout — предел одного обновления, если он не задан явно.
const DefaultRefreshTimeout = 2 * time.Minute

// Manager выдаёт годный набор cookie и обновляет его не более чем одним запросом одновременно.
type Manager struct {
	store          *Store
	refresher      Refresher
	now            func() time.Time
	refreshTimeout time.Duration

	group singleflight.Group
	// issued — значение TokenKey последнего выданного набора.
	issued atomic.Pointer[string]
	// rejected — значение TokenKey, отвергнутое источником; nil, если отказа не было.
	rejected    atomic.Pointer[string]
	refreshes   atomic.Int64
	lastRefresh atomic.Int64
}

// NewManager создаёт менеджер; refresher может быть nil (обновление недоступно).
func NewManager(store *Store, refresher Refresher) *Manager {
	return &Manager{
		store:          store,
		refresher:      refresher,
		now:            time.Now,
		refreshTimeout: DefaultRefreshTimeout,
	}
}

// WithClock подменяет источник времени (для тестов).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// WithRefreshTimeout задаёт предел одного обновления; d <= 0 игнорируется.
func (m *Manager) WithRefreshTimeout(d time.Duration) *Manager {
	if d > 0 {
		m.refreshTimeout = d
	}
	return m
}

// Current возвращает годный набор. Набор на диске перечитывается при каждом
// вызове: если он годен и не совпадает с отвергнутым через Invalidate, он
// возвращается без обновления (так подхватывается набор, записанный извне).
// Иначе выполняется обновление; параллельные вызовы ожидают одно общее
// обновление, которое не зависит от отмены ctx отдельного вызывающего.
func (m *Manager) Current(ctx context.Context) (models.SessionToken, error) {
	const op = "session/manager/Current"

	if tok, ok := m.store.Load(ctx); ok && m.usable(tok) {
		m.issue(tok)
		return tok, nil
	}

	if m.refresher == nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSession, ErrRefreshUnavailable)
	}

	ch := m.group.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%s: %w", op, res.Err)
		}
		log.From(ctx).Debug("session_refresh_joined",
			slog.String("op", op),
			slog.Bool("shared", res.Shared),
		)
		tok := res.Val.(models.SessionToken).Clone()
		m.issue(tok)
		return tok, nil
	}
}

// Invalidate помечает последний выданный набор как отвергнутый источником:
// Current не вернёт его, пока на диске не появится другой годный набор.
func (m *Manager) Invalidate() {
	var val string
	if p := m.issued.Load(); p != nil {
		val = *p
	} else if tok, ok := m.store.Load(context.Background()); ok {
		val = tok[models.TokenKey]
	}
	m.rejected.Store(&val)
}

func (m *Manager) usable(tok models.SessionToken) bool {
	if !m.store.IsValid(tok, m.now()) {
		return false
	}
	r := m.rejected.Load()
	return r == nil || tok[models.TokenKey] != *r
}

func (m *Manager) issue(tok models.SessionToken) {
	val := tok[models.TokenKey]
	m.issued.Store(&val)
	if r := m.rejected.Load(); r != nil && *r != val {
		m.rejected.CompareAndSwap(r, nil)
	}
}

// Status возвращает диагностическую сводку без значений секретов.
func (m *Manager) Status(ctx context.Context) Status {
	st := Status{Refreshes: m.refreshes.Load()}
	if ms := m.lastRefresh.Load(); ms > 0 {
		st.LastRefresh = time.UnixMilli(ms)
	}

	tok, ok := m.store.Load(ctx)
	if !ok {
		return st
	}

	now := m.now()
	st.Present = true
	st.Valid = m.usable(tok)
	st.Age, _ = Age(tok, now)
	st.Keys = redact.Keys(tok)
	return st
}

// KeepFresh периодически проверяет набор и обновляет его заранее,
// пока годность не истекла по запасу SafetyMargin. Останавливается по ctx.
func (m *Manager) KeepFresh(ctx context.Context, every time.Duration) {
	const op = "session/manager/KeepFresh"

	if m.refresher == nil || every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Current(ctx); err != nil {
				log.From(ctx).Warn("session_keepalive_failed",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
			}
		}
	}
}

func (m *Manager) refresh(ctx context.Context) (models.SessionToken, error) {
	const op = "session/manager/refresh"

	lg := log.From(ctx)
	lg.Info("session_refresh_start", slog.String("op", op))
	started := m.now()

	tok, err := m.refresher.Refresh(ctx)
	if err != nil {
		lg.Warn("session_refresh_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%w: refresh: %w", ErrInvalidSession, err)
	}

	if !m.store.IsValid(tok, m.now()) {
		lg.Warn("session_refresh_invalid", slog.String("op", op))
		return nil, fmt.Errorf("%w: refreshed token rejected", ErrInvalidSession)
	}

	if err := m.store.Save(tok); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.rejected.Store(nil)
	m.refreshes.Add(1)
	m.lastRefresh.Store(m.now().UnixMilli())

	lg.Info("session_refresh_done",
		slog.String("op", op),
		slog.Int("keys", len(tok)),
		slog.Duration("took", m.now().Sub(started)),
	)
	return tok, nil
}
