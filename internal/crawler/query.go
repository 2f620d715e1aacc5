package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-marketplace-monitor/internal/extractor"
	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
	"github.com/pribylovaa/go-marketplace-monitor/internal/upstream"
)

// CrawlQuery обходит страницы выдачи по запросу query и возвращает объявления
// без дублей (и без уже виденных, если qo.OnlyNew).
//
// Страницы запрашиваются строго по возрастанию; обход останавливается на
// странице без объявлений, после исчерпания попыток или на qo.MaxPages.
// При OnlyNew выжившие ID один раз объединяются с журналом.
// При отмене ctx собранное отбрасывается и журнал не меняется.
func (e *Engine) CrawlQuery(ctx context.Context, query string, qo QueryOptions) ([]models.Listing, models.CrawlStats, error) {
	const op = "crawler/CrawlQuery"

	ctx = log.With(ctx, slog.String("query", query))
	lg := log.From(ctx)
	stats := models.NewCrawlStats()

	var collected []models.Listing
	for page := 1; page <= qo.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("%s: %w", op, err)
		}
		if page > 1 {
			if err := e.sleep(ctx, e.opts.Policy.Politeness); err != nil {
				return nil, stats, fmt.Errorf("%s: %w", op, err)
			}
		}

		items, more, err := e.fetchPage(ctx, query, page, qo, &stats)
		if err != nil {
			if errors.Is(err, ErrInvalidSession) || ctx.Err() != nil {
				return nil, stats, fmt.Errorf("%s: page %d: %w", op, page, err)
			}
			lg.Warn("crawl_page_exhausted",
				slog.String("op", op),
				slog.Int("page", page),
				slog.String("err", err.Error()),
			)
			break
		}

		collected = append(collected, items...)
		if !more {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, stats, fmt.Errorf("%s: %w", op, err)
	}

	final := dedupeListings(collected)
	if qo.OnlyNew && e.deps.Ledger != nil {
		fresh := make([]models.Listing, 0, len(final))
		for _, l := range final {
			seen, err := e.deps.Ledger.Contains(ctx, l.ID)
			if err != nil {
				return nil, stats, fmt.Errorf("%s: ledger contains: %w", op, err)
			}
			if seen {
				stats.SeenFiltered++
				continue
			}
			fresh = append(fresh, l)
		}
		final = fresh

		if len(final) > 0 {
			added, err := e.deps.Ledger.Merge(ctx, models.IDs(final))
			if err != nil {
				return nil, stats, fmt.Errorf("%s: ledger merge: %w", op, err)
			}
			lg.Debug("ledger_merged",
				slog.String("op", op),
				slog.Int("added", added),
			)
		}
	}

	stats.Final = len(final)
	e.deps.Metrics.Crawl(query, stats)

	lg.Info("crawl_query_done",
		slog.String("op", op),
		slog.Int("pages", stats.Pages),
		slog.Int("raw", stats.RawItems),
		slog.Int("extracted", stats.Extracted),
		slog.Int("dropped", stats.Dropped),
		slog.Int("age_filtered", stats.AgeFiltered),
		slog.Int("seen_filtered", stats.SeenFiltered),
		slog.Int("final", stats.Final),
	)
	return final, stats, nil
}

// fetchPage получает и разбирает одну страницу с повторами.
// more=false означает, что дальше страниц нет.
func (e *Engine) fetchPage(ctx context.Context, query string, page int, qo QueryOptions, stats *models.CrawlStats) ([]models.Listing, bool, error) {
	const op = "crawler/fetchPage"

	lg := log.From(ctx)
	attempts := e.opts.Policy.Attempts()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		tok, err := e.deps.Sessions.Current(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("%s: session: %w", op, err)
		}

		req, err := e.deps.Signer.Sign(query, page, qo.RowsPerPage, tok, e.now().UnixMilli())
		if err != nil {
			return nil, false, fmt.Errorf("%s: sign: %w", op, err)
		}

		stats.Requests++
		if attempt > 0 {
			stats.Retries++
		}

		res, err := e.deps.Searcher.Search(ctx, req, tok)
		if err == nil {
			e.deps.Metrics.Request("ok")
			stats.Pages++
			items, more := e.accept(ctx, query, page, res, qo, stats)
			return items, more, nil
		}
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
		}

		var kind Kind
		switch {
		case errors.Is(err, ErrMalformedResponse):
			e.deps.Metrics.Request("malformed")
			stats.Pages++
			stats.Malformed++
			e.archive(ctx, query, page, res.Body)
			lg.Warn("crawl_page_malformed",
				slog.String("op", op),
				slog.Int("page", page),
				slog.String("err", err.Error()),
			)
			return nil, true, nil
		case errors.Is(err, upstream.ErrSessionRejected):
			kind = KindSession
			e.deps.Sessions.Invalidate()
		case errors.Is(err, ErrRateLimited):
			kind = KindRateLimited
			stats.RateLimited++
		default:
			kind = KindTransient
		}
		e.deps.Metrics.Request(kind.String())
		lastErr = err

		if attempt+1 >= attempts {
			break
		}

		delay := e.opts.Policy.Delay(kind, attempt)
		lg.Warn("crawl_page_retry",
			slog.String("op", op),
			slog.Int("page", page),
			slog.Int("attempt", attempt+1),
			slog.String("kind", kind.String()),
			slog.Duration("delay", delay),
			slog.String("err", err.Error()),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil, false, fmt.Errorf("%s: %w: %w", op, ErrRetriesExhausted, lastErr)
}

// accept извлекает объявления из успешного ответа и применяет фильтр возраста.
// Второй результат false (конец обхода) только при нуле извлечённых объявлений:
// страница, целиком отсеянная фильтром возраста, обход не останавливает.
func (e *Engine) accept(ctx context.Context, query string, page int, res upstream.Page, qo QueryOptions, stats *models.CrawlStats) ([]models.Listing, bool) {
	const op = "crawler/accept"

	listings, ps := extractor.Extract(res.Response, query, extractor.Options{
		FilterByQuery: e.opts.FilterByQuery,
		Now:           e.now(),
	})
	stats.Add(ps)

	if ps.Dropped > 0 {
		e.archive(ctx, query, page, res.Body)
	}

	log.From(ctx).Debug("crawl_page_ok",
		slog.String("op", op),
		slog.Int("page", page),
		slog.Int("raw", ps.RawItems),
		slog.Int("extracted", ps.Extracted),
		slog.Int("dropped", ps.Dropped),
	)

	if len(listings) == 0 {
		return nil, false
	}

	if qo.MaxAgeMinutes <= 0 {
		return listings, true
	}
	kept := listings[:0]
	for _, l := range listings {
		if l.AgeMinutes <= qo.MaxAgeMinutes {
			kept = append(kept, l)
			continue
		}
		stats.AgeFiltered++
	}
	return kept, true
}

// archive сохраняет сырой ответ, если архив настроен. Ошибки только логируются.
func (e *Engine) archive(ctx context.Context, query string, page int, body []byte) {
	const op = "crawler/archive"

	if e.deps.Archive == nil || len(body) == 0 {
		return
	}
	key, err := e.deps.Archive.Put(ctx, query, page, body)
	if err != nil {
		log.From(ctx).Warn("raw_archive_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return
	}
	log.From(ctx).Debug("raw_archived", slog.String("op", op), slog.String("key", key))
}

// dedupeListings оставляет первое вхождение каждого ID.
func dedupeListings(items []models.Listing) []models.Listing {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.Listing, 0, len(items))
	for _, l := range items {
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}
