// models содержит доменные сущности монитора маркетплейса.
// Эти типы используются извлечением, фильтрацией, хранилищем и уведомлениями.
package models

import (
	"fmt"
	"strings"
)

// UnknownAge — возраст объявления, если время публикации неизвестно.
// Такое объявление считается «очень старым» при сортировке и фильтрации.
const UnknownAge = 99999.0

// MaxTitleLen — максимальная длина заголовка в рунах (включая суффикс "...").
const MaxTitleLen = 200

// ItemURLPrefix — префикс канонической ссылки на объявление.
const ItemURLPrefix = "https://www.goofish.com/item?id="

// Listing — нормализованное объявление маркетплейса.
//
// Особенности:
//   - два объявления — одно и то же, если совпадает ID;
//   - Price в юанях (CNY), не меньше нуля;
//   - AgeMinutes округлён до десятых, UnknownAge — возраст неизвестен.
type Listing struct {
	// ID — идентификатор объявления у источника, ключ дедупликации.
	ID string `json:"id"`
	// Title — заголовок, не длиннее MaxTitleLen рун.
	Title string `json:"title"`
	// Price — цена в валюте источника.
	Price float64 `json:"price"`
	// URL — каноническая ссылка на страницу объявления.
	URL string `json:"url"`
	// Location — регион продавца, может быть пустым.
	Location string `json:"location,omitempty"`
	// AgeMinutes — возраст объявления в минутах на момент извлечения.
	AgeMinutes float64 `json:"age_minutes"`
	// Query — поисковый запрос, которым объявление найдено.
	Query string `json:"query"`
	// Images — абсолютные http(s)-ссылки, первая — основная.
	Images []string `json:"images,omitempty"`
}

// ItemURL строит каноническую ссылку на объявление по его ID.
func ItemURL(id string) string {
	return ItemURLPrefix + id
}

// HasKnownAge сообщает, известен ли возраст объявления.
func (l Listing) HasKnownAge() bool {
	return l.AgeMinutes < UnknownAge
}

// PrimaryImage возвращает основную картинку или пустую строку.
func (l Listing) PrimaryImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// PriceIn пересчитывает цену по курсу rate (единиц целевой валюты за 1 CNY).
func (l Listing) PriceIn(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return l.Price * rate
}

// PriceDisplay — цена для вывода, например "¥1250.00".
func (l Listing) PriceDisplay() string {
	return fmt.Sprintf("¥%.2f", l.Price)
}

// AgeDisplay — человекочитаемый возраст объявления.
func (l Listing) AgeDisplay() string {
	switch {
	case !l.HasKnownAge():
		return "unknown"
	case l.AgeMinutes < 60:
		return fmt.Sprintf("%.0f min", l.AgeMinutes)
	case l.AgeMinutes < 24*60:
		return fmt.Sprintf("%.1f h", l.AgeMinutes/60)
	default:
		return fmt.Sprintf("%.1f d", l.AgeMinutes/(24*60))
	}
}

// TruncateTitle обрезает заголовок до MaxTitleLen рун,
// заменяя хвост на "..." так, чтобы итог не превышал лимит.
func TruncateTitle(title string) string {
	title = strings.TrimSpace(title)
	r := []rune(title)
	if len(r) <= MaxTitleLen {
		return title
	}
	return string(r[:MaxTitleLen-3]) + "..."
}

// IDs возвращает идентификаторы объявлений в исходном порядке.
func IDs(items []Listing) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
