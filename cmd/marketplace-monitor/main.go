package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pribylovaa/go-marketplace-monitor/internal/config"
	"github.com/pribylovaa/go-marketplace-monitor/internal/crawler"
	"github.com/pribylovaa/go-marketplace-monitor/internal/enrich"
	apphttp "github.com/pribylovaa/go-marketplace-monitor/internal/http"
	"github.com/pribylovaa/go-marketplace-monitor/internal/http/handlers"
	"github.com/pribylovaa/go-marketplace-monitor/internal/metrics"
	"github.com/pribylovaa/go-marketplace-monitor/internal/notifier"
	logctx "github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
	"github.com/pribylovaa/go-marketplace-monitor/internal/queries"
	"github.com/pribylovaa/go-marketplace-monitor/internal/session"
	"github.com/pribylovaa/go-marketplace-monitor/internal/session/browser"
	"github.com/pribylovaa/go-marketplace-monitor/internal/signer"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage/file"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage/minio"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage/mongo"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage/postgres"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage/redis"
	"github.com/pribylovaa/go-marketplace-monitor/internal/upstream"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	// .env необязателен: переменные могут прийти из окружения.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting marketplace-monitor", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()
	ctx := logctx.Into(rootCtx, log)

	connCtx, connCancel := context.WithTimeout(ctx, cfg.Timeouts.Connect)
	ledger, err := openLedger(connCtx, cfg.Ledger)
	if err != nil {
		connCancel()
		log.Error("ledger_open_failed",
			slog.String("backend", cfg.Ledger.Backend),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}
	log.Info("ledger_opened", slog.String("backend", cfg.Ledger.Backend))

	var archive storage.RawArchive
	if cfg.Archive.Enabled {
		a, err := minio.New(connCtx, cfg.Archive)
		if err != nil {
			connCancel()
			ledger.Close()
			log.Error("archive_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		archive = a
		log.Info("archive_connected", slog.String("bucket", cfg.Archive.Bucket))
	}
	connCancel()

	store := session.NewStore(cfg.Session.File, session.Policy{
		Expiry:          cfg.Session.Expiry,
		SafetyMargin:    cfg.Session.SafetyMargin,
		FutureTolerance: cfg.Session.FutureTolerance,
	})
	var refresher session.Refresher
	if cfg.Session.RefreshEnabled {
		refresher = browser.New(browser.Options{
			ExecPath:  cfg.Session.ChromePath,
			Headless:  !cfg.Session.ShowBrowser,
			UserAgent: cfg.Upstream.UserAgent,
			Timeout:   cfg.Session.RefreshTimeout,
		})
	}
	sessions := session.NewManager(store, refresher).WithRefreshTimeout(cfg.Session.RefreshTimeout)

	client := upstream.New(nil, upstream.Options{
		URL:             cfg.Upstream.URL,
		UserAgent:       cfg.Upstream.UserAgent,
		Timeout:         cfg.Upstream.Timeout,
		RequestsPerHour: cfg.Upstream.RequestsPerHour,
		Burst:           cfg.Upstream.Burst,
	})

	source := queries.NewFileSource(cfg.Queries.File, cfg.Queries.SubscriptionsFile, cfg.Queries.Defaults)

	var enricher crawler.Enricher
	if cfg.Enrich.Enabled {
		enricher = enrich.New(nil, enrich.Options{
			MaxImages: cfg.Enrich.MaxImages,
			Timeout:   cfg.Enrich.Timeout,
			UserAgent: cfg.Upstream.UserAgent,
		})
	}

	m := metrics.New()

	engine := crawler.New(crawler.Deps{
		Sessions: sessions,
		Signer:   signer.New(cfg.Upstream.AppKey),
		Searcher: client,
		Ledger:   ledger,
		Queries:  source,
		Notifier: notifier.NewLog(cfg.Notifier.RubRate, source),
		Enricher: enricher,
		Archive:  archive,
		Metrics:  m,
	}, crawler.Options{
		Policy: crawler.Policy{
			MaxRetries:        cfg.Crawler.MaxRetries,
			TransientStep:     cfg.Crawler.RetryStep,
			RateLimitCooldown: cfg.Crawler.RateLimitCooldown,
			Politeness:        cfg.Crawler.PolitenessDelay,
		},
		Query: crawler.QueryOptions{
			MaxPages:      cfg.Crawler.MaxPages,
			RowsPerPage:   cfg.Crawler.RowsPerPage,
			MaxAgeMinutes: cfg.Crawler.MaxAgeMinutes,
			OnlyNew:       cfg.Crawler.OnlyNew(),
		},
		FilterByQuery: cfg.Crawler.FilterByQuery(),
		Concurrency:   cfg.Crawler.Concurrency,
		Interval:      cfg.Crawler.Interval,
		CycleCooldown: cfg.Crawler.CycleCooldown,
	})
	log.Info("engine_initialized",
		slog.Bool("only_new", cfg.Crawler.OnlyNew()),
		slog.Bool("refresh_enabled", refresher != nil),
		slog.Bool("archive_enabled", archive != nil),
		slog.Bool("enrich_enabled", enricher != nil),
	)

	// Admin HTTP: livez/healthz/metrics/stats/session/ledger.
	var ready atomic.Bool
	h := handlers.New(engine, sessions, ledger, &ready)
	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: apphttp.NewRouter(h, apphttp.Options{
			Logger:  log,
			Timeout: cfg.HTTP.Timeout,
			Metrics: m.Handler(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}()

	go sessions.KeepFresh(ctx, cfg.Session.CheckInterval)

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := engine.Start(ctx); err != nil {
			log.Error("engine_failed", slog.String("err", err.Error()))
		}
	}()
	ready.Store(true)

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case <-engineDone:
		log.Warn("engine_exited")
	}
	ready.Store(false)
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	select {
	case <-engineDone:
		log.Info("engine_stopped")
	case <-shutdownCtx.Done():
		log.Warn("engine_stop_timeout")
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}
	ledger.Close()

	log.Info("service_stopped")
}

// openLedger открывает журнал выбранного бэкенда.
func openLedger(ctx context.Context, cfg config.LedgerConfig) (storage.SeenLedger, error) {
	switch cfg.Backend {
	case config.LedgerPostgres:
		return postgres.New(ctx, cfg.PostgresURL)
	case config.LedgerRedis:
		return redis.New(ctx, cfg.RedisURL, cfg.RedisKey)
	case config.LedgerMongo:
		return mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
	case config.LedgerFile:
		return file.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
