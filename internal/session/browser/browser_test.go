package browser

import (
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/stretchr/testify/require"
)

// Тесты отбора cookie. Запуск настоящего браузера здесь не проверяется.
func TestPickCookies(t *testing.T) {
	t.Parallel()

	cookies := []*network.Cookie{
		{Name: "_m_h5_tk", Value: "abc_1700000000000", Domain: ".goofish.com"},
		{Name: "t", Value: "track", Domain: ".goofish.com"},
		{Name: "cookie2", Value: "c2", Domain: ".taobao.com"},
		{Name: "cna", Value: "x", Domain: "evil.example"},
		{Name: "tracking_junk", Value: "y", Domain: ".goofish.com"},
		{Name: "isg", Value: "", Domain: ".goofish.com"},
		nil,
	}

	tok := PickCookies(cookies)
	require.Equal(t, models.SessionToken{
		"_m_h5_tk": "abc_1700000000000",
		"t":        "track",
		"cookie2":  "c2",
	}, tok)
	require.True(t, tok.HasRequired())
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	r := New(Options{})
	require.Positive(t, r.opts.Timeout)
	require.Positive(t, r.opts.Settle)
}
