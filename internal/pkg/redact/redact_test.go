package redact

import (
	"testing"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/stretchr/testify/require"
)

func TestSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"abcdef_1700000000000", "ab***"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Secret(tt.in))
		})
	}
}

func TestSessionAndKeys(t *testing.T) {
	t.Parallel()

	tok := models.SessionToken{"t": "123456", "cookie2": "secretvalue"}

	red := Session(tok)
	require.Equal(t, "12***", red["t"])
	require.Equal(t, "se***", red["cookie2"])
	require.NotContains(t, red["cookie2"], "secretvalue", "секрет не должен утекать")

	require.Equal(t, []string{"cookie2", "t"}, Keys(tok))
	require.Equal(t, "[REDACTED_TOKEN]", Token())
}
