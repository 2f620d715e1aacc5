// config предоставляет структуру конфигурации монитора
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Допустимые бэкенды журнала просмотренных объявлений.
const (
	LedgerFile     = "file"
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
	LedgerMongo    = "mongo"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Session  SessionConfig  `yaml:"session"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Queries  QueriesConfig  `yaml:"queries"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Notifier NotifierConfig `yaml:"notifier"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// HTTPConfig — admin HTTP-сервер (health, метрики, статистика).
type HTTPConfig struct {
	Host    string        `yaml:"host"    env:"HTTP_HOST"    env-default:"0.0.0.0"`
	Port    string        `yaml:"port"    env:"HTTP_PORT"    env-default:"8090"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"5s"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// SessionConfig — хранение и обновление сессионных cookie.
type SessionConfig struct {
	File string `yaml:"file" env:"SESSION_FILE" env-default:"data/goofish_cookies.json"`
	// Expiry — срок жизни токена у источника.
	Expiry time.Duration `yaml:"expiry" env:"SESSION_EXPIRY" env-default:"24h"`
	// SafetyMargin — запас до истечения, после которого токен считается недействительным.
	SafetyMargin time.Duration `yaml:"safety_margin" env:"SESSION_SAFETY_MARGIN" env-default:"2h"`
	// FutureTolerance — допустимое расхождение часов для меток «из будущего».
	FutureTolerance time.Duration `yaml:"future_tolerance" env:"SESSION_FUTURE_TOLERANCE" env-default:"5m"`
	// RefreshEnabled включает обновление cookie через headless Chrome.
	RefreshEnabled bool `yaml:"refresh_enabled" env:"SESSION_REFRESH_ENABLED" env-default:"false"`
	// CheckInterval — период фоновой проверки и упреждающего обновления.
	CheckInterval  time.Duration `yaml:"check_interval" env:"SESSION_CHECK_INTERVAL" env-default:"30m"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"SESSION_REFRESH_TIMEOUT" env-default:"90s"`
	ChromePath     string        `yaml:"chrome_path"     env:"SESSION_CHROME_PATH"`
	// ShowBrowser запускает Chrome с окном (для ручного входа в аккаунт).
	ShowBrowser bool `yaml:"show_browser" env:"SESSION_SHOW_BROWSER"`
}

// UpstreamConfig — параметры HTTP API маркетплейса.
type UpstreamConfig struct {
	URL       string        `yaml:"url"        env:"UPSTREAM_URL"        env-default:"https://h5api.m.goofish.com/h5/mtop.taobao.idlemtopsearch.pc.search/1.0/"`
	AppKey    string        `yaml:"app_key"    env:"UPSTREAM_APP_KEY"    env-default:"34839810"`
	Timeout   time.Duration `yaml:"timeout"    env:"UPSTREAM_TIMEOUT"    env-default:"30s"`
	UserAgent string        `yaml:"user_agent" env:"UPSTREAM_USER_AGENT" env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	// RequestsPerHour — общий потолок запросов всех воркеров (0 — без ограничения).
	RequestsPerHour int `yaml:"requests_per_hour" env:"UPSTREAM_REQUESTS_PER_HOUR" env-default:"1200"`
	Burst           int `yaml:"burst"             env:"UPSTREAM_BURST"             env-default:"3"`
}

// CrawlerConfig — параметры обхода.
type CrawlerConfig struct {
	Interval      time.Duration `yaml:"interval"            env:"CRAWL_INTERVAL"            env-default:"300s"`
	CycleCooldown time.Duration `yaml:"cycle_cooldown"      env:"CRAWL_CYCLE_COOLDOWN"      env-default:"5m"`
	MaxPages      int           `yaml:"max_pages"           env:"CRAWL_MAX_PAGES"           env-default:"10"`
	RowsPerPage   int           `yaml:"rows_per_page"       env:"CRAWL_ROWS_PER_PAGE"       env-default:"500"`
	MaxAgeMinutes float64       `yaml:"max_age_minutes"     env:"CRAWL_MAX_AGE_MINUTES"     env-default:"1440"`
	// IncludeSeen отключает фильтр «только новые» (по умолчанию уже виденные ID отбрасываются).
	IncludeSeen bool `yaml:"include_seen" env:"CRAWL_INCLUDE_SEEN"`
	// SkipQueryFilter отключает проверку вхождения запроса в заголовок.
	SkipQueryFilter   bool          `yaml:"skip_query_filter" env:"CRAWL_SKIP_QUERY_FILTER"`
	Concurrency       int           `yaml:"concurrency"         env:"CRAWL_CONCURRENCY"         env-default:"3"`
	MaxRetries        int           `yaml:"max_retries"         env:"CRAWL_MAX_RETRIES"         env-default:"3"`
	RetryStep         time.Duration `yaml:"retry_step"          env:"CRAWL_RETRY_STEP"          env-default:"5s"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown" env:"CRAWL_RATE_LIMIT_COOLDOWN" env-default:"30s"`
	PolitenessDelay   time.Duration `yaml:"politeness_delay"    env:"CRAWL_POLITENESS_DELAY"    env-default:"2s"`
}

// OnlyNew сообщает, нужно ли отбрасывать уже виденные объявления.
func (c CrawlerConfig) OnlyNew() bool { return !c.IncludeSeen }

// FilterByQuery сообщает, нужно ли требовать запрос в заголовке.
func (c CrawlerConfig) FilterByQuery() bool { return !c.SkipQueryFilter }

// LedgerConfig — журнал просмотренных ID.
type LedgerConfig struct {
	Backend     string `yaml:"backend"      env:"LEDGER_BACKEND"      env-default:"file"`
	Path        string `yaml:"path"         env:"LEDGER_PATH"         env-default:"data/seen_ids.json"`
	PostgresURL string `yaml:"postgres_url" env:"LEDGER_POSTGRES_URL"`
	RedisURL    string `yaml:"redis_url"    env:"LEDGER_REDIS_URL"`
	RedisKey    string `yaml:"redis_key"    env:"LEDGER_REDIS_KEY"    env-default:"goofish:seen_ids"`
	MongoURI    string `yaml:"mongo_uri"    env:"LEDGER_MONGO_URI"`
	MongoDB     string `yaml:"mongo_db"     env:"LEDGER_MONGO_DB"     env-default:"marketplace"`
}

// QueriesConfig — источники поисковых запросов.
type QueriesConfig struct {
	File              string   `yaml:"file"               env:"QUERIES_FILE"               env-default:"data/search_queries.txt"`
	SubscriptionsFile string   `yaml:"subscriptions_file" env:"QUERIES_SUBSCRIPTIONS_FILE" env-default:"data/subscriptions.json"`
	Defaults          []string `yaml:"defaults"           env:"QUERIES_DEFAULTS"           env-separator:"," env-default:"cav"`
}

// ArchiveConfig — архив сырых ответов в MinIO/S3 (страницы с потерями при извлечении).
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"    env:"ARCHIVE_ENABLED"    env-default:"false"`
	Endpoint  string `yaml:"endpoint"   env:"ARCHIVE_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"ARCHIVE_SECRET_KEY"`
	Bucket    string `yaml:"bucket"     env:"ARCHIVE_BUCKET"     env-default:"goofish-raw"`
	UseSSL    bool   `yaml:"use_ssl"    env:"ARCHIVE_USE_SSL"    env-default:"false"`
}

// EnrichConfig — догрузка картинок со страницы объявления.
type EnrichConfig struct {
	Enabled   bool          `yaml:"enabled"    env:"ENRICH_ENABLED"    env-default:"false"`
	MaxImages int           `yaml:"max_images" env:"ENRICH_MAX_IMAGES" env-default:"10"`
	Timeout   time.Duration `yaml:"timeout"    env:"ENRICH_TIMEOUT"    env-default:"15s"`
}

// NotifierConfig — параметры вывода уведомлений.
type NotifierConfig struct {
	// RubRate — курс пересчёта CNY -> RUB для отображения.
	RubRate float64 `yaml:"rub_rate" env:"NOTIFIER_RUB_RATE" env-default:"12.5"`
}

// TimeoutConfig — таймауты инфраструктуры.
type TimeoutConfig struct {
	Connect  time.Duration `yaml:"connect"  env:"TIMEOUT_CONNECT"  env-default:"10s"`
	Shutdown time.Duration `yaml:"shutdown" env:"TIMEOUT_SHUTDOWN" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", p)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return readFile(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	if c.Session.File == "" {
		return fmt.Errorf("session.file is required")
	}
	if c.Session.Expiry <= 0 || c.Session.SafetyMargin < 0 {
		return fmt.Errorf("session.expiry must be > 0 and session.safety_margin >= 0")
	}
	if c.Session.SafetyMargin >= c.Session.Expiry {
		return fmt.Errorf("session.safety_margin must be < session.expiry")
	}
	if c.Upstream.URL == "" || c.Upstream.AppKey == "" {
		return fmt.Errorf("upstream.url and upstream.app_key are required")
	}
	if c.Upstream.RequestsPerHour < 0 {
		return fmt.Errorf("upstream.requests_per_hour must be >= 0")
	}
	if c.Crawler.Interval < 10*time.Second {
		return fmt.Errorf("crawler.interval must be at least 10s")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.RowsPerPage <= 0 {
		return fmt.Errorf("crawler.rows_per_page must be > 0")
	}
	if c.Crawler.MaxAgeMinutes < 0 {
		return fmt.Errorf("crawler.max_age_minutes must be >= 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.MaxRetries <= 0 {
		return fmt.Errorf("crawler.max_retries must be > 0")
	}

	switch c.Ledger.Backend {
	case LedgerFile:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for file backend")
		}
	case LedgerPostgres:
		if c.Ledger.PostgresURL == "" {
			return fmt.Errorf("ledger.postgres_url is required for postgres backend")
		}
	case LedgerRedis:
		if c.Ledger.RedisURL == "" {
			return fmt.Errorf("ledger.redis_url is required for redis backend")
		}
	case LedgerMongo:
		if c.Ledger.MongoURI == "" {
			return fmt.Errorf("ledger.mongo_uri is required for mongo backend")
		}
	default:
		return fmt.Errorf("ledger.backend must be one of file|postgres|redis|mongo, got %q", c.Ledger.Backend)
	}

	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
		return fmt.Errorf("archive.endpoint and archive.bucket are required when archive is enabled")
	}
	if c.Enrich.Enabled && c.Enrich.MaxImages <= 0 {
		return fmt.Errorf("enrich.max_images must be > 0")
	}
	return nil
}
