// extractor превращает неоднородную выдачу поискового API в нормализованные объявления.
//
// Извлечение чистое: время и флаги приходят через Options, потери по каждой
// причине подсчитываются в models.CrawlStats, один плохой элемент не прерывает пачку.
package extractor

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
)

// MaxListImages — сколько картинок брать из списка pics.
const MaxListImages = 3

// Options — параметры извлечения.
type Options struct {
	// FilterByQuery требует вхождения запроса в заголовок (без учёта регистра).
	FilterByQuery bool
	// Now — момент извлечения для расчёта возраста.
	Now time.Time
}

var nonPriceChars = regexp.MustCompile(`[^\d.]`)

// Extract извлекает объявления из ответа resp, найденного по запросу query.
// Порядок результатов совпадает с порядком элементов выдачи.
func Extract(resp models.SearchResponse, query string, opts Options) ([]models.Listing, models.CrawlStats) {
	stats := models.NewCrawlStats()
	items := resp.Items()
	stats.RawItems = len(items)

	out := make([]models.Listing, 0, len(items))
	for _, raw := range items {
		l, reason, ok := extractOne(raw, items, query, opts, &stats)
		if !ok {
			stats.Drop(reason)
			continue
		}
		out = append(out, l)
		stats.Extracted++
	}

	return out, stats
}

func extractOne(raw any, batch []any, query string, opts Options, stats *models.CrawlStats) (l models.Listing, reason models.DropReason, ok bool) {
	defer func() {
		// Неожиданная форма данных не должна ронять всю пачку.
		if r := recover(); r != nil {
			l, reason, ok = models.Listing{}, models.ReasonOther, false
		}
	}()

	entry, isObj := raw.(map[string]any)
	if !isObj {
		return models.Listing{}, models.ReasonOther, false
	}

	rec, found := findRecord(entry, batch)
	if !found {
		return models.Listing{}, models.ReasonNoData, false
	}

	id := text(rec.fields, "id")
	if id == "" || id == "None" {
		return models.Listing{}, models.ReasonNoID, false
	}

	title := firstOf(rec, titleStrategies)
	if title == "" {
		return models.Listing{}, models.ReasonNoTitle, false
	}

	if opts.FilterByQuery && !MatchesQuery(title, query) {
		return models.Listing{}, models.ReasonQueryFilter, false
	}

	price, priceOK := ParsePrice(rec.fields["price"])
	if !priceOK {
		stats.Reason(models.ReasonPriceError)
	}

	return models.Listing{
		ID:         id,
		Title:      models.TruncateTitle(title),
		Price:      price,
		URL:        models.ItemURL(id),
		Location:   firstOf(rec, locationStrategies),
		AgeMinutes: AgeMinutes(rec.fields["publishTime"], opts.Now),
		Query:      query,
		Images:     images(rec),
	}, "", true
}

// MatchesQuery — регистронезависимое вхождение query в title. Пустой запрос совпадает со всем.
func MatchesQuery(title, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(q))
}

// ParsePrice убирает всё, кроме цифр и точек, и разбирает остаток.
// Пустой остаток — цена 0 без ошибки; неразбираемый остаток или
// неподдерживаемый тип — 0 и ok == false.
func ParsePrice(v any) (float64, bool) {
	var s string
	switch p := v.(type) {
	case nil:
		return 0, true
	case string:
		s = p
	case json.Number:
		s = p.String()
	case float64:
		return clampPrice(p)
	default:
		return 0, false
	}

	clean := nonPriceChars.ReplaceAllString(s, "")
	if clean == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return clampPrice(f)
}

func clampPrice(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

// AgeMinutes считает возраст по publishTime (мс с эпохи), округляя до десятых.
// Отсутствующее, нулевое или нечисловое значение даёт models.UnknownAge;
// метка из будущего даёт 0.
func AgeMinutes(publish any, now time.Time) float64 {
	raw := text(map[string]any{"v": publish}, "v")
	if raw == "" || raw == "0" {
		return models.UnknownAge
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return models.UnknownAge
	}

	age := float64(now.UnixMilli()-ms) / 60000
	age = math.Round(age*10) / 10
	if age < 0 {
		return 0
	}
	if age >= models.UnknownAge {
		return models.UnknownAge
	}
	return age
}

// images собирает картинки: picUrl, первые MaxListImages из pics,
// затем exContent.picUrl, если ничего не нашлось. Только http(s), без дублей.
func images(r record) []string {
	var out []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if !strings.HasPrefix(u, "http") {
			return
		}
		for _, have := range out {
			if have == u {
				return
			}
		}
		out = append(out, u)
	}

	add(text(r.fields, "picUrl"))

	if pics, ok := r.fields["pics"].([]any); ok {
		for i, p := range pics {
			if i >= MaxListImages {
				break
			}
			switch pic := p.(type) {
			case map[string]any:
				add(text(pic, "picUrl"))
			case string:
				add(pic)
			}
		}
	}

	if len(out) == 0 {
		add(text(r.ex, "picUrl"))
	}
	return out
}
