package session

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/stretchr/testify/require"
)

// Тесты хранилища сессии.
//
// Покрытие:
//  - Load: отсутствующий файл, битый JSON, корректный набор;
//  - Save: атомарная запись и права 0600, round-trip;
//  - IsValid: обязательные ключи, разбор _m_h5_tk, граница Expiry-SafetyMargin,
//    метки «из будущего» в пределах и за пределами допуска.

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func tokenIssued(at time.Time) models.SessionToken {
	return models.SessionToken{
		models.TokenKey:   "abc_" + strconv.FormatInt(at.UnixMilli(), 10),
		models.TrackKey:   "t",
		models.Cookie2Key: "c2",
	}
}

func TestStore_LoadMissingAndBroken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "nope.json"), DefaultPolicy)
	_, ok := s.Load(context.Background())
	require.False(t, ok, "отсутствующий файл -> ok=false")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o600))
	_, ok = NewStore(broken, DefaultPolicy).Load(context.Background())
	require.False(t, ok, "битый JSON -> ok=false")

	null := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(null, []byte("null"), 0o600))
	_, ok = NewStore(null, DefaultPolicy).Load(context.Background())
	require.False(t, ok, "null -> ok=false")
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	s := NewStore(path, DefaultPolicy)

	tok := tokenIssued(now)
	require.NoError(t, s.Save(tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, ok := s.Load(context.Background())
	require.True(t, ok)
	require.Equal(t, tok, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "временные файлы не должны оставаться")
}

func TestPolicy_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tok  models.SessionToken
		want bool
	}{
		{"fresh", tokenIssued(now.Add(-time.Hour)), true},
		{"just_below_threshold", tokenIssued(now.Add(-22*time.Hour + time.Second)), true},
		{"at_threshold", tokenIssued(now.Add(-22 * time.Hour)), false},
		{"expired", tokenIssued(now.Add(-25 * time.Hour)), false},
		{"future_within_tolerance", tokenIssued(now.Add(4 * time.Minute)), true},
		{"future_beyond_tolerance", tokenIssued(now.Add(time.Hour)), false},
		{"missing_cookie2", func() models.SessionToken {
			tok := tokenIssued(now)
			delete(tok, models.Cookie2Key)
			return tok
		}(), false},
		{"bad_composite", models.SessionToken{
			models.TokenKey: "no-separator", models.TrackKey: "t", models.Cookie2Key: "c",
		}, false},
		{"non_integer_ts", models.SessionToken{
			models.TokenKey: "abc_12x", models.TrackKey: "t", models.Cookie2Key: "c",
		}, false},
		{"empty", models.SessionToken{}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, DefaultPolicy.Valid(tt.tok, now))
		})
	}
}

func TestAge(t *testing.T) {
	t.Parallel()

	age, ok := Age(tokenIssued(now.Add(-90*time.Minute)), now)
	require.True(t, ok)
	require.Equal(t, 90*time.Minute, age)

	_, ok = Age(models.SessionToken{}, now)
	require.False(t, ok)
}
