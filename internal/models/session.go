package models

import (
	"strconv"
	"strings"
	"time"
)

// Ключи набора cookie, которые использует подпись запросов.
const (
	// TokenKey — составное поле "<значение>_<timestampMillis>".
	TokenKey   = "_m_h5_tk"
	TrackKey   = "t"
	Cookie2Key = "cookie2"
)

// RequiredSessionKeys — ключи, без которых сессия недействительна.
var RequiredSessionKeys = []string{TokenKey, TrackKey, Cookie2Key}

// SessionToken — набор именованных секретов (cookie) сессии.
// Содержимое непрозрачно, кроме составного поля TokenKey.
type SessionToken map[string]string

// Clone возвращает независимую копию набора.
func (t SessionToken) Clone() SessionToken {
	out := make(SessionToken, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// HasRequired сообщает, присутствуют ли все обязательные ключи с непустыми значениями.
func (t SessionToken) HasRequired() bool {
	for _, k := range RequiredSessionKeys {
		if strings.TrimSpace(t[k]) == "" {
			return false
		}
	}
	return true
}

// Composite разбирает TokenKey по первому "_" на значение и метку времени (мс).
// ok == false, если поле отсутствует, значение пустое или метка не целое число.
func (t SessionToken) Composite() (value string, issuedMillis int64, ok bool) {
	raw, found := t[TokenKey]
	if !found {
		return "", 0, false
	}
	value, ts, found := strings.Cut(raw, "_")
	if !found || value == "" {
		return "", 0, false
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return value, ms, true
}

// IssuedAt возвращает момент выпуска токена, если он разбирается.
func (t SessionToken) IssuedAt() (time.Time, bool) {
	_, ms, ok := t.Composite()
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Header собирает значение заголовка Cookie в детерминированном порядке ключей.
func (t SessionToken) Header() string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sortStrings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(t[k])
	}
	return b.String()
}
