package crawler

import "time"

// Kind — вид неудачной попытки запроса страницы.
type Kind int

const (
	KindTransient Kind = iota
	KindRateLimited
	KindSession
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindSession:
		return "session"
	default:
		return "transient"
	}
}

// Policy — политика повторов и пауз обхода.
type Policy struct {
	// MaxRetries — предел попыток на одну страницу (не меньше 1).
	MaxRetries int
	// TransientStep — шаг линейной паузы после временной ошибки.
	TransientStep time.Duration
	// RateLimitCooldown — пауза после ограничения частоты.
	RateLimitCooldown time.Duration
	// Politeness — пауза перед каждой страницей, кроме первой.
	Politeness time.Duration
}

// DefaultPolicy — значения по умолчанию.
var DefaultPolicy = Policy{
	MaxRetries:        3,
	TransientStep:     5 * time.Second,
	RateLimitCooldown: 30 * time.Second,
	Politeness:        2 * time.Second,
}

// Attempts — число попыток на страницу.
func (p Policy) Attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

// Delay — пауза перед повтором после неудачной попытки номер attempt (с нуля).
// Чистая функция: временная ошибка растёт линейно, ограничение частоты
// ждёт фиксированный cooldown, отказ сессии повторяется сразу после обновления.
func (p Policy) Delay(kind Kind, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	switch kind {
	case KindRateLimited:
		return p.RateLimitCooldown
	case KindSession:
		return 0
	default:
		return p.TransientStep * time.Duration(attempt+1)
	}
}
