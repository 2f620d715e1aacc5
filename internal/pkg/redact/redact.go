// redact маскирует секреты перед записью в логи и ответы admin API.
package redact

import (
	"sort"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
)

// Secret оставляет первые два символа значения, остальное скрывает.
func Secret(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return s[:2] + "***"
}

func Token() string { return "[REDACTED_TOKEN]" }

// Session возвращает список ключей сессии и замаскированные значения
// в детерминированном порядке.
func Session(tok models.SessionToken) map[string]string {
	out := make(map[string]string, len(tok))
	for k, v := range tok {
		out[k] = Secret(v)
	}
	return out
}

// Keys — отсортированные имена ключей сессии без значений.
func Keys(tok models.SessionToken) []string {
	keys := make([]string, 0, len(tok))
	for k := range tok {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
