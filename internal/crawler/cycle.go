package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
	"golang.org/x/sync/errgroup"
)

// QueryReport — итог обхода одного запроса в цикле.
type QueryReport struct {
	Query    string            `json:"query"`
	Stats    models.CrawlStats `json:"stats"`
	Notified bool              `json:"notified"`
	Err      string            `json:"error,omitempty"`
}

// Report — итог цикла для /stats.
type Report struct {
	CycleID     string            `json:"cycle_id"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
	Queries     []QueryReport     `json:"queries"`
	Totals      models.CrawlStats `json:"totals"`
	SuccessRate float64           `json:"success_rate"`
	LedgerSize  int               `json:"ledger_size"`
	Err         string            `json:"error,omitempty"`
}

// RunCycle выполняет один цикл: проверка сессии, список запросов, обход
// (последовательно или не более Concurrency одновременно), уведомления.
// Возвращает ошибку с ErrInvalidSession, если годной сессии нет.
func (e *Engine) RunCycle(ctx context.Context) (Report, error) {
	const op = "crawler/RunCycle"

	started := e.now()
	rep := Report{CycleID: uuid.NewString(), StartedAt: started}
	ctx = log.With(ctx, slog.String("cycle_id", rep.CycleID))
	lg := log.From(ctx)

	lg.Info("cycle_start", slog.String("op", op))

	err := e.runCycle(ctx, &rep)

	rep.Duration = e.now().Sub(started)
	for _, q := range rep.Queries {
		rep.Totals.Add(q.Stats)
	}
	rep.SuccessRate = rep.Totals.SuccessRate()
	if e.deps.Ledger != nil {
		if n, lerr := e.deps.Ledger.Len(ctx); lerr == nil {
			rep.LedgerSize = n
			e.deps.Metrics.LedgerSize(n)
		}
	}

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidSession):
		result = "session_invalid"
	case ctx.Err() != nil:
		result = "canceled"
	default:
		result = "error"
	}
	if err != nil {
		rep.Err = err.Error()
	}
	e.deps.Metrics.Cycle(result, rep.Duration)
	e.last.Store(&rep)

	lg.Info("cycle_done",
		slog.String("op", op),
		slog.String("result", result),
		slog.Int("queries", len(rep.Queries)),
		slog.Int("final", rep.Totals.Final),
		slog.Float64("success_rate", rep.SuccessRate),
		slog.Duration("took", rep.Duration),
	)

	if err != nil {
		return rep, fmt.Errorf("%s: %w", op, err)
	}
	return rep, nil
}

func (e *Engine) runCycle(ctx context.Context, rep *Report) error {
	const op = "crawler/runCycle"

	if _, err := e.deps.Sessions.Current(ctx); err != nil {
		e.deps.Metrics.SessionValid(false)
		return fmt.Errorf("session check: %w", err)
	}
	e.deps.Metrics.SessionValid(true)

	queries, err := e.deps.Queries.Queries(ctx)
	if err != nil {
		return fmt.Errorf("load queries: %w", err)
	}
	if len(queries) == 0 {
		log.From(ctx).Warn("cycle_no_queries", slog.String("op", op))
		return nil
	}

	rep.Queries = make([]QueryReport, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, q := range queries {
		g.Go(func() error {
			r, err := e.processQuery(gctx, q)
			rep.Queries[i] = r
			if err != nil && errors.Is(err, ErrInvalidSession) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// processQuery обходит запрос, дополняет и отправляет новые объявления.
// Ошибка возвращается наружу только вместе с отчётом; решение о фатальности принимает вызывающий.
func (e *Engine) processQuery(ctx context.Context, query string) (QueryReport, error) {
	const op = "crawler/processQuery"

	r := QueryReport{Query: query}
	items, stats, err := e.CrawlQuery(ctx, query, e.opts.Query)
	r.Stats = stats
	if err != nil {
		r.Err = err.Error()
		if ctx.Err() == nil {
			log.From(ctx).Warn("crawl_query_failed",
				slog.String("op", op),
				slog.String("query", query),
				slog.String("err", err.Error()),
			)
		}
		return r, err
	}
	if len(items) == 0 {
		return r, nil
	}

	items = e.enrich(ctx, items)

	if err := e.deps.Notifier.Notify(ctx, query, items); err != nil {
		r.Err = err.Error()
		log.From(ctx).Warn("notify_failed",
			slog.String("op", op),
			slog.String("query", query),
			slog.String("err", err.Error()),
		)
		return r, nil
	}
	r.Notified = true
	return r, nil
}

func (e *Engine) enrich(ctx context.Context, items []models.Listing) []models.Listing {
	const op = "crawler/enrich"

	if e.deps.Enricher == nil {
		return items
	}
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		l, err := e.deps.Enricher.Enrich(ctx, items[i])
		if err != nil {
			log.From(ctx).Debug("enrich_failed",
				slog.String("op", op),
				slog.String("id", items[i].ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		items[i] = l
	}
	return items
}

// Start крутит циклы до отмены ctx: после цикла ждёт Interval,
// после отказа сессии — CycleCooldown. Возвращает nil при отмене.
func (e *Engine) Start(ctx context.Context) error {
	const op = "crawler/Start"

	lg := log.From(ctx)
	lg.Info("crawler_started",
		slog.String("op", op),
		slog.Duration("interval", e.opts.Interval),
		slog.Int("concurrency", e.opts.Concurrency),
	)

	for {
		wait := e.opts.Interval
		if _, err := e.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, ErrInvalidSession) {
				wait = e.opts.CycleCooldown
			}
			lg.Error("cycle_failed",
				slog.String("op", op),
				slog.Duration("next_in", wait),
				slog.String("err", err.Error()),
			)
		}
		if err := e.sleep(ctx, wait); err != nil {
			break
		}
	}

	lg.Info("crawler_stopped", slog.String("op", op))
	return nil
}
