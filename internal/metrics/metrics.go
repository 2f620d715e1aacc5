// metrics — prometheus-метрики обхода. Все методы безопасны для nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace_monitor"

// Metrics — набор коллекторов в собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	items         *prometheus.CounterVec
	drops         *prometheus.CounterVec
	newListings   *prometheus.CounterVec
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	ledgerSize    prometheus.Gauge
	sessionValid  prometheus.Gauge
}

// New регистрирует коллекторы в новом реестре (вместе с go/process коллекторами).
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Search API requests by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Raw result entries by extraction stage.",
		}, []string{"stage"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_drops_total",
			Help:      "Extraction losses by reason.",
		}, []string{"reason"}),
		newListings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_listings_total",
			Help:      "Listings handed to the notifier.",
		}, []string{"query"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Crawl cycles by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a crawl cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		ledgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_size",
			Help:      "Number of ids in the seen ledger.",
		}),
		sessionValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_valid",
			Help:      "1 if the stored session token is valid.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.items, m.drops, m.newListings, m.cycles,
		m.cycleDuration, m.ledgerSize, m.sessionValid,
	)
	return m
}

// Handler отдаёт метрики реестра в формате prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry — реестр (для тестов и дополнительных коллекторов).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Request учитывает запрос к API с исходом outcome (ok, rate_limited, transient, malformed, session).
func (m *Metrics) Request(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// Crawl переносит счётчики обхода одного запроса.
func (m *Metrics) Crawl(query string, st models.CrawlStats) {
	if m == nil {
		return
	}
	m.items.WithLabelValues("raw").Add(float64(st.RawItems))
	m.items.WithLabelValues("extracted").Add(float64(st.Extracted))
	m.items.WithLabelValues("age_filtered").Add(float64(st.AgeFiltered))
	m.items.WithLabelValues("seen_filtered").Add(float64(st.SeenFiltered))
	for reason, n := range st.Reasons {
		m.drops.WithLabelValues(string(reason)).Add(float64(n))
	}
	m.newListings.WithLabelValues(query).Add(float64(st.Final))
}

// Cycle фиксирует завершение цикла.
func (m *Metrics) Cycle(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(took.Seconds())
}

// LedgerSize выставляет размер журнала.
func (m *Metrics) LedgerSize(n int) {
	if m == nil {
		return
	}
	m.ledgerSize.Set(float64(n))
}

// SessionValid выставляет признак годности сессии.
func (m *Metrics) SessionValid(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.sessionValid.Set(1)
		return
	}
	m.sessionValid.Set(0)
}
