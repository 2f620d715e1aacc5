package queries

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Тесты файлового источника запросов.
//
// Покрытие:
//  - комментарии, пустые строки и повторы в общем списке;
//  - defaults при отсутствии или пустом файле;
//  - объединение с подписками без повторов, порядок детерминирован;
//  - испорченный файл подписок игнорируется;
//  - ForSubscriber и Recipients.

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestQueries_GlobalAndSubscriptions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := write(t, dir, "q.txt", "# список\ncav\n\n  iphone 13  \ncav\n")
	subs := write(t, dir, "subs.json", `{"200": ["ps5", "cav"], "100": ["相机"]}`)

	src := NewFileSource(global, subs, []string{"default"})
	got, err := src.Queries(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"cav", "iphone 13", "相机", "ps5"}, got)
}

func TestQueries_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{"missing_file", filepath.Join(dir, "nope.txt")},
		{"only_comments", write(t, dir, "c.txt", "# a\n\n#b\n")},
		{"no_path", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := NewFileSource(tt.path, "", []string{"cav", "cav", " "})
			got, err := src.Queries(context.Background())
			require.NoError(t, err)
			require.Equal(t, []string{"cav"}, got)
		})
	}
}

func TestQueries_CorruptedSubscriptionsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := write(t, dir, "q.txt", "cav\n")
	subs := write(t, dir, "subs.json", `{broken`)

	got, err := NewFileSource(global, subs, nil).Queries(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"cav"}, got)
}

func TestQueries_GlobalIsDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewFileSource(t.TempDir(), "", nil).Queries(context.Background())
	require.Error(t, err, "нечитаемый общий список — ошибка, а не defaults")
}

func TestForSubscriberAndRecipients(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := write(t, dir, "q.txt", "cav\n")
	subs := write(t, dir, "subs.json", `{"2": ["ps5"], "1": ["ps5", "switch"]}`)
	src := NewFileSource(global, subs, nil)
	ctx := context.Background()

	q, err := src.ForSubscriber(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, []string{"ps5", "switch"}, q)

	q, err = src.ForSubscriber(ctx, "404")
	require.NoError(t, err)
	require.Equal(t, []string{"cav"}, q, "без подписки — общий список")

	require.Equal(t, []string{"1", "2"}, src.Recipients(ctx, "ps5"))
	require.Empty(t, src.Recipients(ctx, "cav"))
}
