// notifier — доставка новых объявлений. В репозитории есть только
// журналирующая реализация; чат-доставка подключается снаружи через
// интерфейс crawler.Notifier и может переиспользовать Render.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
)

// ChunkSize — объявлений в одном сообщении.
const ChunkSize = 3

// maxTitleRunes — длина заголовка в сообщении.
const maxTitleRunes = 80

// Audience возвращает подписчиков запроса.
type Audience interface {
	Recipients(ctx context.Context, query string) []string
}

// LogNotifier пишет каждую пачку в журнал: сводку и отрисованные сообщения.
type LogNotifier struct {
	rubRate  float64
	audience Audience
}

// NewLog создаёт уведомитель; audience может быть nil.
func NewLog(rubRate float64, audience Audience) *LogNotifier {
	return &LogNotifier{rubRate: rubRate, audience: audience}
}

// Notify журналирует пачку items, найденную по query.
func (n *LogNotifier) Notify(ctx context.Context, query string, items []models.Listing) error {
	const op = "notifier/Notify"

	if len(items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var recipients []string
	if n.audience != nil {
		recipients = n.audience.Recipients(ctx, query)
	}

	lg := log.From(ctx)
	lg.Info("new_listings",
		slog.String("op", op),
		slog.String("query", query),
		slog.Int("count", len(items)),
		slog.Any("recipients", recipients),
	)
	for _, l := range items {
		lg.Debug("new_listing",
			slog.String("op", op),
			slog.String("id", l.ID),
			slog.String("title", l.Title),
			slog.String("price", l.PriceDisplay()),
			slog.String("price_rub", RubDisplay(l, n.rubRate)),
			slog.String("location", l.Location),
			slog.String("age", l.AgeDisplay()),
			slog.String("url", l.URL),
			slog.String("image", l.PrimaryImage()),
		)
	}
	for i, msg := range Render(query, items, n.rubRate) {
		lg.Debug("notification_message",
			slog.String("op", op),
			slog.Int("part", i+1),
			slog.String("text", msg),
		)
	}
	return nil
}

// RubDisplay — цена в рублях по курсу rate, например "15625 ₽".
func RubDisplay(l models.Listing, rate float64) string {
	return fmt.Sprintf("%.0f ₽", l.PriceIn(rate))
}

// Render разбивает пачку на текстовые сообщения по ChunkSize объявлений;
// первое сообщение начинается с заголовка, после длинной пачки добавляется итог.
func Render(query string, items []models.Listing, rubRate float64) []string {
	if len(items) == 0 {
		return nil
	}

	header := "Новые товары\n\n"
	if query != "" {
		header = fmt.Sprintf("Новые товары по запросу: %s\n\n", query)
	}

	var out []string
	for i := 0; i < len(items); i += ChunkSize {
		end := min(i+ChunkSize, len(items))

		var b strings.Builder
		if i == 0 {
			b.WriteString(header)
		}
		for j, l := range items[i:end] {
			fmt.Fprintf(&b, "%d. %s\n", i+j+1, shorten(l.Title))
			fmt.Fprintf(&b, "%s (~%s)\n", l.PriceDisplay(), RubDisplay(l, rubRate))
			if l.Location != "" {
				fmt.Fprintf(&b, "%s\n", l.Location)
			}
			fmt.Fprintf(&b, "%s ago\n%s\n\n", l.AgeDisplay(), l.URL)
		}
		out = append(out, strings.TrimRight(b.String(), "\n"))
	}

	if len(items) > ChunkSize {
		out = append(out, fmt.Sprintf("Всего новых товаров: %d", len(items)))
	}
	return out
}

func shorten(title string) string {
	r := []rune(title)
	if len(r) <= maxTitleRunes {
		return title
	}
	return string(r[:maxTitleRunes]) + "..."
}
