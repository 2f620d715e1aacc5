// queries — источник поисковых запросов: общий список и персональные подписки.
//
// Файлы читаются заново на каждый цикл, поэтому правки оператора
// подхватываются без перезапуска. Движок только читает.
package queries

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/pribylovaa/go-marketplace-monitor/internal/pkg/log"
)

// FileSource читает общий список (по строке на запрос, # — комментарий)
// и подписки {"<user id>": ["q1", ...]}.
type FileSource struct {
	globalPath string
	subsPath   string
	defaults   []string
}

// NewFileSource создаёт источник. Пустой путь означает «файла нет».
func NewFileSource(globalPath, subscriptionsPath string, defaults []string) *FileSource {
	return &FileSource{
		globalPath: globalPath,
		subsPath:   subscriptionsPath,
		defaults:   distinct(defaults),
	}
}

// Queries возвращает общий список и запросы всех подписчиков без повторов,
// в порядке первого появления (подписчики по возрастанию id).
func (s *FileSource) Queries(ctx context.Context) ([]string, error) {
	const op = "queries/Queries"

	global, err := s.Global(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	subs := s.subscriptions(ctx)
	users := make([]string, 0, len(subs))
	for u := range subs {
		users = append(users, u)
	}
	sort.Strings(users)

	all := append([]string(nil), global...)
	for _, u := range users {
		all = append(all, subs[u]...)
	}
	return distinct(all), nil
}

// Global — общий список; при отсутствии файла или пустом файле — defaults.
func (s *FileSource) Global(ctx context.Context) ([]string, error) {
	const op = "queries/Global"

	if s.globalPath == "" {
		return s.defaults, nil
	}

	raw, err := os.ReadFile(s.globalPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.From(ctx).Debug("queries_file_missing",
			slog.String("op", op),
			slog.String("path", s.globalPath),
		)
		return s.defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", op, s.globalPath, err)
	}

	out := parseLines(raw)
	if len(out) == 0 {
		return s.defaults, nil
	}
	return out, nil
}

// ForSubscriber — персональные запросы пользователя, а без подписки — общий список.
func (s *FileSource) ForSubscriber(ctx context.Context, user string) ([]string, error) {
	if q, ok := s.subscriptions(ctx)[user]; ok {
		return q, nil
	}
	return s.Global(ctx)
}

// Recipients — подписчики, в персональном списке которых есть query (по возрастанию id).
func (s *FileSource) Recipients(ctx context.Context, query string) []string {
	var out []string
	for u, qs := range s.subscriptions(ctx) {
		for _, q := range qs {
			if q == query {
				out = append(out, u)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// subscriptions читает файл подписок; отсутствие или порча файла дают пустую карту.
func (s *FileSource) subscriptions(ctx context.Context) map[string][]string {
	const op = "queries/subscriptions"

	if s.subsPath == "" {
		return nil
	}
	raw, err := os.ReadFile(s.subsPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.From(ctx).Warn("subscriptions_read_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
		return nil
	}

	var subs map[string][]string
	if err := json.Unmarshal(raw, &subs); err != nil {
		log.From(ctx).Warn("subscriptions_corrupted",
			slog.String("op", op),
			slog.String("path", s.subsPath),
			slog.String("err", err.Error()),
		)
		return nil
	}
	for u, qs := range subs {
		subs[u] = distinct(qs)
	}
	return subs
}

func parseLines(raw []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return distinct(out)
}

// distinct убирает пустые строки и повторы, сохраняя порядок.
func distinct(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
