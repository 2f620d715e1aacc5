// upstream — HTTP-клиент поискового API маркетплейса.
//
// Клиент отправляет подписанный запрос, ограничивает частоту общим
// rate.Limiter и классифицирует ответ в одну из ошибок-сентинелов.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
	"github.com/pribylovaa/go-marketplace-monitor/internal/signer"
	"golang.org/x/time/rate"
)

// Маркеры статусов в поле ret.
const (
	MarkerSuccess   = "SUCCESS"
	MarkerRateLimit = "RGV587_ERROR"
)

// SessionMarkers — статусы, означающие, что источник отверг cookie.
var SessionMarkers = []string{
	"FAIL_SYS_TOKEN_EXOIRED",
	"FAIL_SYS_TOKEN_EXPIRED",
	"FAIL_SYS_TOKEN_EMPTY",
	"FAIL_SYS_SESSION_EXPIRED",
}

// maxBodySize — предел чтения тела ответа.
const maxBodySize = 32 << 20

var (
	// ErrTransient — сетевой сбой, таймаут или не-2xx ответ; имеет смысл повторить.
	ErrTransient = errors.New("transient upstream error")
	// ErrRateLimited — источник явно ограничил частоту (HTTP 429 или RGV587_ERROR).
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformed — ответ без ожидаемой формы {ret, data.resultList}.
	ErrMalformed = errors.New("malformed response")
	// ErrSessionRejected — источник отверг cookie; оборачивает models.ErrInvalidSession.
	ErrSessionRejected = fmt.Errorf("session rejected: %w", models.ErrInvalidSession)
)

// Page — результат одного запроса.
type Page struct {
	// Response — разобранный ответ (пустой при сетевых ошибках).
	Response models.SearchResponse
	// Body — сырое тело ответа для архива.
	Body []byte
	// StatusCode — HTTP-статус (0, если ответа не было).
	StatusCode int
}

// Options — параметры клиента.
type Options struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerHour — общий потолок частоты; 0 — без ограничения.
	RequestsPerHour int
	Burst           int
}

// Client выполняет поисковые запросы.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	opts    Options
}

// New создаёт клиента. Если httpClient == nil, создаётся клиент с opts.Timeout.
func New(httpClient *http.Client, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	limit := rate.Inf
	if opts.RequestsPerHour > 0 {
		limit = rate.Limit(float64(opts.RequestsPerHour) / 3600)
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, opts.Burst),
		opts:    opts,
	}
}

// Search отправляет подписанный запрос с cookie tok.
// Ошибка (если есть) оборачивает один из сентинелов пакета; Page.Body
// заполняется всегда, когда тело было получено.
func (c *Client) Search(ctx context.Context, req signer.SignedRequest, tok models.SessionToken) (Page, error) {
	const op = "upstream/Search"

	if err := c.limiter.Wait(ctx); err != nil {
		return Page{}, fmt.Errorf("%s: limiter: %w", op, err)
	}

	endpoint, err := url.Parse(c.opts.URL)
	if err != nil {
		return Page{}, fmt.Errorf("%s: parse url: %w", op, err)
	}
	endpoint.RawQuery = req.Params.Encode()

	form := url.Values{"data": {req.Data}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return Page{}, fmt.Errorf("%s: new_request: %w", op, err)
	}
	c.setHeaders(httpReq, tok)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		log.From(ctx).Warn("http_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return Page{}, fmt.Errorf("%s: do: %w: %v", op, ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	page := Page{Body: body, StatusCode: resp.StatusCode}
	if err != nil {
		return page, fmt.Errorf("%s: read body: %w: %v", op, ErrTransient, err)
	}

	if err := Classify(resp.StatusCode, body, &page.Response); err != nil {
		return page, fmt.Errorf("%s: %w", op, err)
	}
	return page, nil
}

func (c *Client) setHeaders(r *http.Request, tok models.SessionToken) {
	r.Header.Set("User-Agent", c.opts.UserAgent)
	r.Header.Set("Referer", "https://www.goofish.com/")
	r.Header.Set("Origin", "https://www.goofish.com")
	r.Header.Set("Accept", "application/json")
	r.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if len(tok) > 0 {
		r.Header.Set("Cookie", tok.Header())
	}
}

// Classify разбирает тело ответа в out и возвращает сентинел по правилам:
//   - HTTP 429 или ret с RGV587_ERROR — ErrRateLimited;
//   - прочие не-2xx — ErrTransient;
//   - ret с маркером сессии — ErrSessionRejected;
//   - не JSON, нет ret, нет data или data.resultList при SUCCESS — ErrMalformed;
//   - другой неуспешный ret — ErrTransient.
func Classify(status int, body []byte, out *models.SearchResponse) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: http 429", ErrRateLimited)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: http %d", ErrTransient, status)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var resp models.SearchResponse
	if err := dec.Decode(&resp); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	*out = resp

	if len(resp.Ret) == 0 {
		return fmt.Errorf("%w: no ret", ErrMalformed)
	}
	if resp.RetContains(MarkerRateLimit) {
		return fmt.Errorf("%w: %s", ErrRateLimited, resp.Status())
	}
	for _, m := range SessionMarkers {
		if resp.RetContains(m) {
			return fmt.Errorf("%w: %s", ErrSessionRejected, resp.Status())
		}
	}
	if !resp.RetContains(MarkerSuccess) {
		return fmt.Errorf("%w: ret %s", ErrTransient, resp.Status())
	}
	if resp.Data == nil {
		return fmt.Errorf("%w: no data", ErrMalformed)
	}
	if resp.Data.ResultList == nil {
		return fmt.Errorf("%w: no data.resultList", ErrMalformed)
	}
	return nil
}
