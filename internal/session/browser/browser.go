// browser обновляет cookie маркетплейса через headless Chrome (chromedp).
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
	"github.com/pribylovaa/go-marketplace-monitor/internal/session"
)

// HomeURL — страница, на которой браузер получает cookie сессии.
const HomeURL = "https://www.goofish.com"

// ImportantKeys — cookie, которые сохраняются в набор сессии.
var ImportantKeys = []string{
	"_m_h5_tk", "_m_h5_tk_enc", "_tb_token_", "cna", "t", "cookie2", "isg", "l", "uc1", "x5sec",
}

// Options — параметры запуска браузера.
type Options struct {
	ExecPath  string
	Headless  bool
	UserAgent string
	Timeout   time.Duration
	// Settle — пауза после загрузки страницы, за которую скрипты выставляют cookie.
	Settle time.Duration
}

// Refresher реализует session.Refresher поверх chromedp.
type Refresher struct {
	opts Options
}

var _ session.Refresher = (*Refresher)(nil)

// New создаёт Refresher.
func New(opts Options) *Refresher {
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.Settle <= 0 {
		opts.Settle = 5 * time.Second
	}
	return &Refresher{opts: opts}
}

// Refresh открывает главную страницу, перезагружает её и забирает cookie через CDP.
func (r *Refresher) Refresh(ctx context.Context) (models.SessionToken, error) {
	const op = "session/browser/Refresh"

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if r.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(r.opts.UserAgent))
	}
	if r.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.opts.ExecPath))
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	lg := log.From(ctx)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		lg.Debug("chromedp", slog.String("msg", fmt.Sprintf(format, args...)))
	}))
	defer cancelBrowser()

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(HomeURL),
		chromedp.Sleep(r.opts.Settle),
		chromedp.Reload(),
		chromedp.Sleep(r.opts.Settle/2),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: run browser: %w", op, err)
	}

	tok := PickCookies(cookies)
	if !tok.HasRequired() {
		return nil, fmt.Errorf("%s: required cookies missing (got %d of %d important)", op, len(tok), len(ImportantKeys))
	}

	lg.Info("browser_cookies_collected",
		slog.String("op", op),
		slog.Int("total", len(cookies)),
		slog.Int("kept", len(tok)),
	)
	return tok, nil
}

// PickCookies оставляет только ImportantKeys из cookie домена goofish/taobao.
// При дубликатах побеждает последний по порядку.
func PickCookies(cookies []*network.Cookie) models.SessionToken {
	want := make(map[string]struct{}, len(ImportantKeys))
	for _, k := range ImportantKeys {
		want[k] = struct{}{}
	}

	tok := make(models.SessionToken)
	for _, c := range cookies {
		if c == nil || c.Value == "" {
			continue
		}
		if _, ok := want[c.Name]; !ok {
			continue
		}
		if c.Domain != "" && !relevantDomain(c.Domain) {
			continue
		}
		tok[c.Name] = c.Value
	}
	return tok
}

func relevantDomain(domain string) bool {
	d := strings.TrimPrefix(strings.ToLower(domain), ".")
	return strings.HasSuffix(d, "goofish.com") || strings.HasSuffix(d, "taobao.com")
}
