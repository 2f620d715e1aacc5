package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage"
)

// Contains сообщает, есть ли id в таблице seen_ids.
func (s *Storage) Contains(ctx context.Context, id string) (bool, error) {
	const op = "storage.postgres.Contains"

	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM seen_ids WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// Merge вставляет ids пачкой с ON CONFLICT DO NOTHING.
// Число добавленных — сумма затронутых строк.
func (s *Storage) Merge(ctx context.Context, ids []string) (int, error) {
	const op = "storage.postgres.Merge"

	ids = storage.Dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(`INSERT INTO seen_ids (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	added := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("%s: batch item %d: %w", op, i, err)
		}
		added += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("%s: close batch: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return added, nil
}

// Len возвращает количество ID.
func (s *Storage) Len(ctx context.Context) (int, error) {
	const op = "storage.postgres.Len"

	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM seen_ids`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Reset очищает таблицу.
func (s *Storage) Reset(ctx context.Context) error {
	const op = "storage.postgres.Reset"

	if _, err := s.db.Exec(ctx, `TRUNCATE seen_ids`); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
