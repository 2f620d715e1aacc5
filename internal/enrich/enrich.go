// enrich дополняет объявление картинками со страницы товара.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
)

// DefaultMaxImages — предел картинок на объявление.
const DefaultMaxImages = 10

const maxPageSize = 4 << 20

var (
	// ErrStatus — страница товара ответила не 2xx.
	ErrStatus = errors.New("unexpected status")

	imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)`)
)

// Options — параметры загрузки страниц.
type Options struct {
	MaxImages int
	Timeout   time.Duration
	UserAgent string
}

// Enricher загружает страницу товара и собирает картинки.
type Enricher struct {
	http *http.Client
	opts Options
}

// New создаёт Enricher. Если httpClient == nil, используется клиент с opts.Timeout.
func New(httpClient *http.Client, opts Options) *Enricher {
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Enricher{http: httpClient, opts: opts}
}

// Enrich возвращает копию l, у которой к имеющимся картинкам добавлены
// картинки страницы товара (без повторов, не больше MaxImages).
func (e *Enricher) Enrich(ctx context.Context, l models.Listing) (models.Listing, error) {
	const op = "enrich/Enrich"

	if l.URL == "" {
		return l, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return l, fmt.Errorf("%s: new_request: %w", op, err)
	}
	if e.opts.UserAgent != "" {
		req.Header.Set("User-Agent", e.opts.UserAgent)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return l, fmt.Errorf("%s: do: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return l, fmt.Errorf("%s: %w: %d", op, ErrStatus, resp.StatusCode)
	}

	found, err := PageImages(io.LimitReader(resp.Body, maxPageSize), e.opts.MaxImages)
	if err != nil {
		return l, fmt.Errorf("%s: %w", op, err)
	}

	out := l
	out.Images = merge(l.Images, found, e.opts.MaxImages)
	return out, nil
}

// PageImages разбирает HTML и возвращает до limit картинок товара:
// og:image, затем img[src] с расширением jpg/jpeg/png/webp.
// Ссылки без схемы ("//host/...") дополняются https.
func PageImages(r io.Reader, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []string
	add := func(u string) {
		if len(out) >= limit {
			return
		}
		u = normalize(u)
		if u == "" || !imageExt.MatchString(u) {
			return
		}
		for _, have := range out {
			if have == u {
				return
			}
		}
		out = append(out, u)
	}

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", ""))
	})
	return out, nil
}

func normalize(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if !strings.HasPrefix(u, "http") {
		return ""
	}
	return u
}

func merge(have, found []string, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(have)+len(found))
	for _, list := range [][]string{have, found} {
		for _, u := range list {
			if len(out) >= limit {
				return out
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
