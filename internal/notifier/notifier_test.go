package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
	"github.com/stretchr/testify/require"
)

// Покрытие:
//  - Render: заголовок только в первом сообщении, разбиение по ChunkSize, итоговое сообщение;
//  - цена в юанях и рублях, укорачивание длинного заголовка;
//  - Notify: пустая пачка — no-op, получатели попадают в журнал, отменённый контекст — ошибка.

func listing(id string, price float64) models.Listing {
	return models.Listing{
		ID:         id,
		Title:      "item " + id,
		Price:      price,
		URL:        models.ItemURL(id),
		Location:   "上海",
		AgeMinutes: 12,
	}
}

type audience map[string][]string

func (a audience) Recipients(_ context.Context, q string) []string { return a[q] }

func TestRender_Chunks(t *testing.T) {
	t.Parallel()

	items := []models.Listing{listing("1", 100), listing("2", 10), listing("3", 1), listing("4", 2)}
	msgs := Render("cav", items, 12.5)

	require.Len(t, msgs, 3, "две части и итог")
	require.True(t, strings.HasPrefix(msgs[0], "Новые товары по запросу: cav"))
	require.Contains(t, msgs[0], "1. item 1")
	require.Contains(t, msgs[0], "¥100.00 (~1250 ₽)")
	require.NotContains(t, msgs[1], "Новые товары", "заголовок только в первом сообщении")
	require.Contains(t, msgs[1], "4. item 4")
	require.Equal(t, "Всего новых товаров: 4", msgs[2])
}

func TestRender_ShortBatch(t *testing.T) {
	t.Parallel()

	msgs := Render("", []models.Listing{listing("1", 1)}, 12.5)
	require.Len(t, msgs, 1)
	require.True(t, strings.HasPrefix(msgs[0], "Новые товары\n"))
	require.Nil(t, Render("q", nil, 1))
}

func TestRender_LongTitleShortened(t *testing.T) {
	t.Parallel()

	l := listing("1", 1)
	l.Title = strings.Repeat("相", 120)
	msg := Render("q", []models.Listing{l}, 1)[0]
	require.Contains(t, msg, strings.Repeat("相", 80)+"...")
	require.NotContains(t, msg, strings.Repeat("相", 81))
}

func TestNotify_LogsRecipients(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := log.Into(context.Background(), lg)

	n := NewLog(12.5, audience{"cav": {"100", "200"}})
	require.NoError(t, n.Notify(ctx, "cav", []models.Listing{listing("1", 2)}))

	out := buf.String()
	require.Contains(t, out, `"msg":"new_listings"`)
	require.Contains(t, out, `"recipients":["100","200"]`)
	require.Contains(t, out, `"price_rub":"25 ₽"`)
}

func TestNotify_EmptyAndCanceled(t *testing.T) {
	t.Parallel()

	n := NewLog(12.5, nil)
	require.NoError(t, n.Notify(context.Background(), "q", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, n.Notify(ctx, "q", []models.Listing{listing("1", 1)}), context.Canceled)
}
