// session хранит набор cookie маркетплейса, проверяет его годность
// и координирует внешнее обновление.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
)

// Policy — правила годности токена.
type Policy struct {
	// Expiry — срок жизни токена у источника (24h).
	Expiry time.Duration
	// SafetyMargin — запас до истечения (2h): токен старше Expiry-SafetyMargin недействителен.
	SafetyMargin time.Duration
	// FutureTolerance — допустимое опережение метки времени относительно now.
	FutureTolerance time.Duration
}

// DefaultPolicy — 24h срок жизни, 2h запас, 5m на расхождение часов.
var DefaultPolicy = Policy{
	Expiry:          24 * time.Hour,
	SafetyMargin:    2 * time.Hour,
	FutureTolerance: 5 * time.Minute,
}

// Store — файловое хранилище набора cookie (плоский JSON-объект).
type Store struct {
	path   string
	policy Policy
	mu     sync.Mutex
}

// NewStore создаёт Store поверх файла path.
func NewStore(path string, policy Policy) *Store {
	return &Store{path: path, policy: policy}
}

// Path — путь к файлу набора.
func (s *Store) Path() string { return s.path }

// Load читает набор из файла. Отсутствие файла или битый JSON дают ok == false
// (ошибка пишется в лог на уровне debug, вызывающему не возвращается).
func (s *Store) Load(ctx context.Context) (models.SessionToken, bool) {
	const op = "session/store/Load"

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		log.From(ctx).Debug("session_load_failed",
			slog.String("op", op),
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return nil, false
	}

	var tok models.SessionToken
	if err := json.Unmarshal(raw, &tok); err != nil || tok == nil {
		log.From(ctx).Debug("session_decode_failed",
			slog.String("op", op),
			slog.String("path", s.path),
		)
		return nil, false
	}

	return tok, true
}

// Save атомарно записывает набор (временный файл + rename, права 0600).
func (s *Store) Save(tok models.SessionToken) error {
	const op = "session/store/Save"

	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.path, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsValid — чистый предикат годности набора на момент now.
func (s *Store) IsValid(tok models.SessionToken, now time.Time) bool {
	return s.policy.Valid(tok, now)
}

// Valid проверяет: обязательные ключи на месте, _m_h5_tk разбирается,
// возраст меньше Expiry-SafetyMargin, метка не «из будущего» сверх допуска.
func (p Policy) Valid(tok models.SessionToken, now time.Time) bool {
	if !tok.HasRequired() {
		return false
	}
	issued, ok := tok.IssuedAt()
	if !ok {
		return false
	}

	age := now.Sub(issued)
	if age < -p.FutureTolerance {
		return false
	}
	return age < p.Expiry-p.SafetyMargin
}

// Age возвращает возраст токена и признак того, что метку удалось разобрать.
func Age(tok models.SessionToken, now time.Time) (time.Duration, bool) {
	issued, ok := tok.IssuedAt()
	if !ok {
		return 0, false
	}
	return now.Sub(issued), true
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
