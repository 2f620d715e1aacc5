// redis — журнал просмотренных ID в множестве Redis (SADD/SISMEMBER).
package redis

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-marketplace-monitor/internal/storage"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKey — ключ множества, если не задан.
const DefaultKey = "goofish:seen_ids"

// Ledger — реализация storage.SeenLedger поверх одного Redis Set.
type Ledger struct {
	rdb *goredis.Client
	key string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если key пустой — используется DefaultKey.
func New(ctx context.Context, redisURL, key string) (*Ledger, error) {
	const op = "storage.redis.New"

	if key == "" {
		key = DefaultKey
	}

	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := goredis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Ledger{rdb: rdb, key: key}, nil
}

// Contains — SISMEMBER.
func (l *Ledger) Contains(ctx context.Context, id string) (bool, error) {
	const op = "storage.redis.Contains"

	ok, err := l.rdb.SIsMember(ctx, l.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// Merge — SADD; Redis сам возвращает число новых элементов.
func (l *Ledger) Merge(ctx context.Context, ids []string) (int, error) {
	const op = "storage.redis.Merge"

	ids = storage.Dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	added, err := l.rdb.SAdd(ctx, l.key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(added), nil
}

// Len — SCARD.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	const op = "storage.redis.Len"

	n, err := l.rdb.SCard(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// Reset удаляет ключ множества.
func (l *Ledger) Reset(ctx context.Context) error {
	const op = "storage.redis.Reset"

	if err := l.rdb.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает клиент Redis.
func (l *Ledger) Close() {
	_ = l.rdb.Close()
}

// Проверка на соответствие интерфейсу SeenLedger.
var _ storage.SeenLedger = (*Ledger)(nil)
