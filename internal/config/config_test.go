package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFile — утилита записи временного файла конфигурации.
func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

// chdir — смена текущего рабочего каталога с автоматическим откатом.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// Полный корректный YAML (не зависит от дефолтов).
const sampleYAML = `
env: "prod"
http:
  host: "127.0.0.1"
  port: "9100"
session:
  file: "/var/lib/monitor/cookies.json"
  expiry: "24h"
  safety_margin: "1h"
  refresh_enabled: true
upstream:
  requests_per_hour: 600
crawler:
  interval: "2m"
  max_pages: 5
  rows_per_page: 100
  max_age_minutes: 60
  include_seen: true
  concurrency: 1
ledger:
  backend: "redis"
  redis_url: "redis://localhost:6379/0"
queries:
  defaults: ["iphone", "ps5"]
`

// Минимально валидный YAML: всё остальное берётся из дефолтов.
const minimalYAML = `
env: "dev"
`

// Некорректный YAML — для проверки ошибок парсинга.
const brokenYAML = `
crawler:
  max_pages: [1, 2
`

func TestHTTPConfig_Addr(t *testing.T) {
	t.Parallel()
	cfg := HTTPConfig{Host: "127.0.0.1", Port: "8090"}
	require.Equal(t, "127.0.0.1:8090", cfg.Addr())
}

// TestLoad_WithExplicitPath_OK — явный путь имеет высший приоритет.
func TestLoad_WithExplicitPath_OK(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "127.0.0.1:9100", cfg.HTTP.Addr())
	require.Equal(t, "/var/lib/monitor/cookies.json", cfg.Session.File)
	require.Equal(t, time.Hour, cfg.Session.SafetyMargin)
	require.True(t, cfg.Session.RefreshEnabled)
	require.Equal(t, 600, cfg.Upstream.RequestsPerHour)
	require.Equal(t, 2*time.Minute, cfg.Crawler.Interval)
	require.Equal(t, 5, cfg.Crawler.MaxPages)
	require.Equal(t, 100, cfg.Crawler.RowsPerPage)
	require.InDelta(t, 60.0, cfg.Crawler.MaxAgeMinutes, 1e-9)
	require.False(t, cfg.Crawler.OnlyNew())
	require.Equal(t, 1, cfg.Crawler.Concurrency)
	require.Equal(t, LedgerRedis, cfg.Ledger.Backend)
	require.Equal(t, []string{"iphone", "ps5"}, cfg.Queries.Defaults)
}

// TestLoad_Defaults — значения по умолчанию без файла и ENV.
func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "min.yaml", minimalYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 300*time.Second, cfg.Crawler.Interval)
	require.Equal(t, 10, cfg.Crawler.MaxPages)
	require.Equal(t, 500, cfg.Crawler.RowsPerPage)
	require.InDelta(t, 1440.0, cfg.Crawler.MaxAgeMinutes, 1e-9)
	require.True(t, cfg.Crawler.OnlyNew())
	require.True(t, cfg.Crawler.FilterByQuery())
	require.Equal(t, 3, cfg.Crawler.Concurrency)
	require.Equal(t, 3, cfg.Crawler.MaxRetries)
	require.Equal(t, 5*time.Second, cfg.Crawler.RetryStep)
	require.Equal(t, 30*time.Second, cfg.Crawler.RateLimitCooldown)
	require.Equal(t, 24*time.Hour, cfg.Session.Expiry)
	require.Equal(t, 2*time.Hour, cfg.Session.SafetyMargin)
	require.Equal(t, 5*time.Minute, cfg.Session.FutureTolerance)
	require.Equal(t, "34839810", cfg.Upstream.AppKey)
	require.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	require.Equal(t, LedgerFile, cfg.Ledger.Backend)
	require.Equal(t, "data/seen_ids.json", cfg.Ledger.Path)
	require.Equal(t, []string{"cav"}, cfg.Queries.Defaults)
	require.InDelta(t, 12.5, cfg.Notifier.RubRate, 1e-9)
}

// TestLoad_WithExplicitPath_FileDoesNotExist — явный путь на несуществующий файл.
func TestLoad_WithExplicitPath_FileDoesNotExist(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "config file does not exist")
}

// TestLoad_WithExplicitPath_BrokenYAML — битый YAML по явному пути.
func TestLoad_WithExplicitPath_BrokenYAML(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "broken.yaml", brokenYAML)

	_, err := Load(cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config")
}

// TestLoad_WithCONFIG_PATH_OK — путь берётся из CONFIG_PATH.
func TestLoad_WithCONFIG_PATH_OK(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "from_env_path.yaml", sampleYAML)
	t.Setenv("CONFIG_PATH", cfgPath)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
}

// TestLoad_LocalYAML — ./local.yaml подхватывается при отсутствии пути и CONFIG_PATH.
func TestLoad_LocalYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	dir := t.TempDir()
	writeFile(t, dir, "local.yaml", sampleYAML)
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, LedgerRedis, cfg.Ledger.Backend)
}

// TestLoad_EnvOnly — без файлов конфигурация собирается из ENV и дефолтов.
func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdir(t, t.TempDir())

	t.Setenv("CRAWL_MAX_PAGES", "7")
	t.Setenv("QUERIES_DEFAULTS", "a,b")
	t.Setenv("LEDGER_BACKEND", "postgres")
	t.Setenv("LEDGER_POSTGRES_URL", "postgres://localhost/seen")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Crawler.MaxPages)
	require.Equal(t, []string{"a", "b"}, cfg.Queries.Defaults)
	require.Equal(t, LedgerPostgres, cfg.Ledger.Backend)
}

// TestLoad_Validation — некорректные значения отклоняются validate().
func TestLoad_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad_backend", "ledger:\n  backend: \"sqlite\"\n", "ledger.backend"},
		{"postgres_without_url", "ledger:\n  backend: \"postgres\"\n", "ledger.postgres_url"},
		{"mongo_without_uri", "ledger:\n  backend: \"mongo\"\n", "ledger.mongo_uri"},
		{"zero_pages", "crawler:\n  max_pages: -1\n", "crawler.max_pages"},
		{"zero_concurrency", "crawler:\n  concurrency: -2\n", "crawler.concurrency"},
		{"margin_over_expiry", "session:\n  expiry: \"1h\"\n  safety_margin: \"2h\"\n", "session.safety_margin"},
		{"negative_age", "crawler:\n  max_age_minutes: -5\n", "crawler.max_age_minutes"},
		{"tiny_interval", "crawler:\n  interval: \"1s\"\n", "crawler.interval"},
		{"archive_without_endpoint", "archive:\n  enabled: true\n", "archive.endpoint"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfgPath := writeFile(t, t.TempDir(), "cfg.yaml", tt.yaml)
			_, err := Load(cfgPath)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestMustLoad_Panics — MustLoad паникует при ошибке загрузки.
func TestMustLoad_Panics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
