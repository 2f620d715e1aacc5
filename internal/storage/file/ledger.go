// file — журнал просмотренных ID в JSON-файле {"seen_ids": [...]}.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pribylovaa/go-marketplace-monitor/internal/storage"
)

type document struct {
	SeenIDs []string `json:"seen_ids"`
}

// Ledger — файловая реализация storage.SeenLedger.
// Merge перечитывает файл, объединяет множества и атомарно перезаписывает его.
type Ledger struct {
	path string

	mu  sync.Mutex
	ids map[string]struct{}
}

// Open загружает журнал из path. Отсутствующий файл — пустой журнал,
// нечитаемый файл — storage.ErrCorrupted.
func Open(path string) (*Ledger, error) {
	const op = "storage.file.Open"

	ids, err := read(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Ledger{path: path, ids: ids}, nil
}

// Contains сообщает, встречался ли id.
func (l *Ledger) Contains(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.ids[id]
	return ok, nil
}

// Merge объединяет ids с сохранённым множеством и возвращает число добавленных.
func (l *Ledger) Merge(ctx context.Context, ids []string) (int, error) {
	const op = "storage.file.Merge"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := read(l.path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	for id := range l.ids {
		current[id] = struct{}{}
	}

	before := len(current)
	for _, id := range ids {
		if id == "" {
			continue
		}
		current[id] = struct{}{}
	}
	added := len(current) - before

	if added > 0 || !exists(l.path) {
		if err := write(l.path, current); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}
	l.ids = current

	return added, nil
}

// Len — размер множества.
func (l *Ledger) Len(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.ids), nil
}

// Reset очищает журнал и файл.
func (l *Ledger) Reset(_ context.Context) error {
	const op = "storage.file.Reset"

	l.mu.Lock()
	defer l.mu.Unlock()

	empty := map[string]struct{}{}
	if err := write(l.path, empty); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	l.ids = empty
	return nil
}

// Close ничего не делает: файл не держится открытым.
func (l *Ledger) Close() {}

// Проверка на соответствие интерфейсу SeenLedger.
var _ storage.SeenLedger = (*Ledger)(nil)

func read(path string) (map[string]struct{}, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorrupted, path, err)
	}

	ids := make(map[string]struct{}, len(doc.SeenIDs))
	for _, id := range doc.SeenIDs {
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

func write(path string, ids map[string]struct{}) error {
	doc := document{SeenIDs: make([]string, 0, len(ids))}
	for id := range ids {
		doc.SeenIDs = append(doc.SeenIDs, id)
	}
	sort.Strings(doc.SeenIDs)

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

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

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
