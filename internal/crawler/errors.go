package crawler

import (
	"errors"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/pribylovaa/go-marketplace-monitor/internal/upstream"
)

var (
	// ErrInvalidSession — годной сессии нет даже после обновления; фатально для цикла.
	ErrInvalidSession = models.ErrInvalidSession
	// ErrTransient — сетевой сбой, таймаут, не-2xx или неизвестный неуспешный статус.
	ErrTransient = upstream.ErrTransient
	// ErrRateLimited — источник ограничил частоту.
	ErrRateLimited = upstream.ErrRateLimited
	// ErrMalformedResponse — ответ без ожидаемой формы.
	ErrMalformedResponse = upstream.ErrMalformed
	// ErrRetriesExhausted — страница не получена за MaxRetries попыток.
	ErrRetriesExhausted = errors.New("retries exhausted")
)
