package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPolicy_Delay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kind    Kind
		attempt int
		want    time.Duration
	}{
		{"transient_first", KindTransient, 0, 5 * time.Second},
		{"transient_third", KindTransient, 2, 15 * time.Second},
		{"transient_negative_attempt", KindTransient, -1, 5 * time.Second},
		{"rate_limited_fixed", KindRateLimited, 0, 30 * time.Second},
		{"rate_limited_later", KindRateLimited, 5, 30 * time.Second},
		{"session_immediate", KindSession, 1, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, testPolicy.Delay(tt.kind, tt.attempt))
		})
	}
}

func TestPolicy_Attempts(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, Policy{}.Attempts(), "минимум одна попытка")
	require.Equal(t, 3, DefaultPolicy.Attempts())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "transient", KindTransient.String())
	require.Equal(t, "rate_limited", KindRateLimited.String())
	require.Equal(t, "session", KindSession.String())
}
