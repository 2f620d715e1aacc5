// crawler — движок обхода: подписывает и отправляет поисковые запросы,
// извлекает объявления, отсекает уже виденные и отдаёт новые уведомителю.
//
// Особенности:
//   - одна попытка страницы = Current -> Sign -> Search -> классификация;
//   - ошибки элемента и страницы не прерывают запрос, ошибка запроса не прерывает цикл;
//   - фатальна для цикла только ErrInvalidSession без возможности обновления;
//   - время и паузы подменяемы (WithClock, WithSleep), тесты не спят.
package crawler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/metrics"
	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/signer"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage"
	"github.com/pribylovaa/go-marketplace-monitor/internal/upstream"
)

//go:generate mockgen -source=./crawler.go -destination=../../mocks/crawler.go -package=mocks

// Sessions выдаёт годный набор cookie и принимает сигнал об отказе источника.
type Sessions interface {
	Current(ctx context.Context) (models.SessionToken, error)
	Invalidate()
}

// RequestSigner подписывает поисковый запрос.
type RequestSigner interface {
	Sign(query string, page, rows int, token models.SessionToken, nowMillis int64) (signer.SignedRequest, error)
}

// Searcher выполняет подписанный запрос.
type Searcher interface {
	Search(ctx context.Context, req signer.SignedRequest, tok models.SessionToken) (upstream.Page, error)
}

// QuerySource отдаёт список поисковых запросов на цикл.
type QuerySource interface {
	Queries(ctx context.Context) ([]string, error)
}

// Notifier доставляет пачку новых объявлений по запросу.
type Notifier interface {
	Notify(ctx context.Context, query string, items []models.Listing) error
}

// Enricher дополняет объявление данными страницы товара.
type Enricher interface {
	Enrich(ctx context.Context, l models.Listing) (models.Listing, error)
}

// Deps — зависимости движка. Archive, Enricher и Metrics необязательны.
type Deps struct {
	Sessions Sessions
	Signer   RequestSigner
	Searcher Searcher
	Ledger   storage.SeenLedger
	Queries  QuerySource
	Notifier Notifier
	Enricher Enricher
	Archive  storage.RawArchive
	Metrics  *metrics.Metrics
}

// QueryOptions — параметры обхода одного запроса.
type QueryOptions struct {
	MaxPages      int
	RowsPerPage   int
	MaxAgeMinutes float64
	OnlyNew       bool
}

// Options — параметры движка.
type Options struct {
	Policy        Policy
	Query         QueryOptions
	FilterByQuery bool
	Concurrency   int
	Interval      time.Duration
	CycleCooldown time.Duration
}

// Engine — движок обхода.
type Engine struct {
	deps  Deps
	opts  Options
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	last atomic.Pointer[Report]
}

// New создаёт движок.
func New(deps Deps, opts Options) *Engine {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Query.MaxPages < 1 {
		opts.Query.MaxPages = 1
	}
	return &Engine{
		deps:  deps,
		opts:  opts,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// WithClock подменяет источник времени.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithSleep подменяет ожидание (паузы вежливости и повторов).
func (e *Engine) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Engine {
	e.sleep = sleep
	return e
}

// LastReport — отчёт последнего завершённого цикла (nil до первого цикла).
func (e *Engine) LastReport() *Report {
	return e.last.Load()
}

// sleepCtx ждёт d или отмены ctx.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
