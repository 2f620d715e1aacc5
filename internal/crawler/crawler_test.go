package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/signer"
	"github.com/pribylovaa/go-marketplace-monitor/internal/upstream"
)

// Общие заготовки тестов движка: фиксированное время, сессия, сценарный
// поиск по ключевому слову и запись пауз вместо реального ожидания.

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func validToken() models.SessionToken {
	return models.SessionToken{
		models.TokenKey:   "abc_" + strconv.FormatInt(now.UnixMilli(), 10),
		models.TrackKey:   "t1",
		models.Cookie2Key: "c2",
	}
}

// fakeSessions — Sessions с подсчётом Invalidate.
type fakeSessions struct {
	mu          sync.Mutex
	err         error
	invalidated int
	calls       int
}

func (f *fakeSessions) Current(ctx context.Context) (models.SessionToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return validToken(), nil
}

func (f *fakeSessions) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeSessions) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated
}

// step — один ответ сценария.
type step struct {
	page upstream.Page
	err  error
}

// scriptSearcher отдаёт ответы по порядку для каждого keyword;
// когда сценарий исчерпан — пустую успешную страницу.
type scriptSearcher struct {
	mu       sync.Mutex
	script   map[string][]step
	pages    map[string][]int
	inFlight int
	maxIn    int
	hold     time.Duration
}

func newSearcher(script map[string][]step) *scriptSearcher {
	return &scriptSearcher{script: script, pages: map[string][]int{}}
}

func (s *scriptSearcher) Search(ctx context.Context, req signer.SignedRequest, _ models.SessionToken) (upstream.Page, error) {
	var body struct {
		PageNumber int    `json:"pageNumber"`
		Keyword    string `json:"keyword"`
	}
	if err := json.Unmarshal([]byte(req.Data), &body); err != nil {
		return upstream.Page{}, err
	}

	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxIn {
		s.maxIn = s.inFlight
	}
	s.pages[body.Keyword] = append(s.pages[body.Keyword], body.PageNumber)
	var st step
	if q := s.script[body.Keyword]; len(q) > 0 {
		st, s.script[body.Keyword] = q[0], q[1:]
	} else {
		st = step{page: okPage()}
	}
	s.mu.Unlock()

	if s.hold > 0 {
		time.Sleep(s.hold)
	}

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return st.page, st.err
}

func (s *scriptSearcher) requested(query string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.pages[query]...)
}

// sleeper записывает запрошенные паузы; hook может, например, отменить контекст.
type sleeper struct {
	mu   sync.Mutex
	got  []time.Duration
	hook func(d time.Duration)
}

func (s *sleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.got = append(s.got, d)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

func (s *sleeper) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.got...)
}

// item — элемент выдачи с основным путём; age < 0 — без publishTime.
func item(id string, age time.Duration) any {
	args := map[string]any{
		"id":    id,
		"title": "item " + id,
		"price": "10",
	}
	if age >= 0 {
		args["publishTime"] = strconv.FormatInt(now.Add(-age).UnixMilli(), 10)
	}
	return map[string]any{"data": map[string]any{"item": map[string]any{"main": map[string]any{
		"clickParam": map[string]any{"args": args},
	}}}}
}

func okPage(items ...any) upstream.Page {
	return upstream.Page{
		Response: models.SearchResponse{
			Ret:  []string{"SUCCESS::ok"},
			Data: &models.SearchData{ResultList: items},
		},
		Body:       []byte(`{"ret":["SUCCESS::ok"]}`),
		StatusCode: 200,
	}
}

func failure(sentinel error) step {
	return step{err: fmt.Errorf("upstream/Search: %w: test", sentinel)}
}

var testPolicy = Policy{
	MaxRetries:        3,
	TransientStep:     5 * time.Second,
	RateLimitCooldown: 30 * time.Second,
	Politeness:        2 * time.Second,
}

func baseOptions() Options {
	return Options{
		Policy:        testPolicy,
		Query:         QueryOptions{MaxPages: 5, RowsPerPage: 30},
		Concurrency:   1,
		Interval:      time.Minute,
		CycleCooldown: 5 * time.Minute,
	}
}

func newEngine(deps Deps, opts Options) (*Engine, *sleeper) {
	if deps.Sessions == nil {
		deps.Sessions = &fakeSessions{}
	}
	if deps.Signer == nil {
		deps.Signer = signer.New(signer.DefaultAppKey)
	}
	sl := &sleeper{}
	e := New(deps, opts).
		WithClock(func() time.Time { return now }).
		WithSleep(sl.sleep)
	return e, sl
}

func ids(items []models.Listing) []string { return models.IDs(items) }

var errBoom = errors.New("boom")
