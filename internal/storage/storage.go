// storage определяет контракты хранилищ монитора:
// журнал просмотренных ID и архив сырых ответов API.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrEmptyID — попытка записать пустой идентификатор.
	ErrEmptyID = errors.New("empty id")
	// ErrCorrupted — сохранённое состояние журнала не читается.
	ErrCorrupted = errors.New("ledger state corrupted")
)

// SeenLedger — постоянное множество уже виденных ID объявлений.
//
// Множество растёт монотонно (кроме явного Reset оператором),
// Merge — объединение множеств: коммутативно и идемпотентно.
type SeenLedger interface {
	// Contains сообщает, встречался ли id раньше.
	Contains(ctx context.Context, id string) (bool, error)
	// Merge добавляет ids и возвращает |после| - |до|.
	// Пустые ID пропускаются.
	Merge(ctx context.Context, ids []string) (int, error)
	// Len — текущий размер множества.
	Len(ctx context.Context) (int, error)
	// Reset очищает множество (операторская команда).
	Reset(ctx context.Context) error
	// Close освобождает ресурсы хранилища.
	Close()
}

// RawArchive сохраняет сырые ответы API для разбора потерь при извлечении.
type RawArchive interface {
	// Put сохраняет тело ответа и возвращает ключ объекта.
	Put(ctx context.Context, query string, page int, body []byte) (string, error)
}

//go:generate mockgen -source=./storage.go -destination=../../mocks/storage.go -package=mocks

// Dedupe возвращает уникальные непустые ID в порядке первого появления.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
