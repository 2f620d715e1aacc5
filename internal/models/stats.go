package models

import "sort"

// DropReason — причина, по которой элемент ответа не стал объявлением.
type DropReason string

const (
	ReasonNoData      DropReason = "no_data"
	ReasonNoID        DropReason = "no_id"
	ReasonNoTitle     DropReason = "no_title"
	ReasonPriceError  DropReason = "price_error"
	ReasonQueryFilter DropReason = "query_filter"
	ReasonOther       DropReason = "other"
)

// AllReasons — все причины в порядке вывода.
var AllReasons = []DropReason{
	ReasonNoData, ReasonNoID, ReasonNoTitle, ReasonPriceError, ReasonQueryFilter, ReasonOther,
}

// CrawlStats — счётчики одного обхода (извлечение + фильтрация + запросы).
//
// Особенности:
//   - RawItems = Extracted + Dropped после извлечения;
//   - price_error попадает в Reasons, но не в Dropped: объявление сохраняется с ценой 0.
type CrawlStats struct {
	RawItems     int                `json:"total_api_items"`
	Extracted    int                `json:"valid_items"`
	Dropped      int                `json:"invalid_items"`
	Reasons      map[DropReason]int `json:"reasons"`
	AgeFiltered  int                `json:"filtered_by_age"`
	SeenFiltered int                `json:"filtered_by_seen"`
	Final        int                `json:"final_products"`

	Pages       int `json:"pages"`
	Requests    int `json:"requests"`
	RateLimited int `json:"rate_limited"`
	Retries     int `json:"retries"`
	Malformed   int `json:"malformed"`
}

// NewCrawlStats возвращает статистику с инициализированной картой причин.
func NewCrawlStats() CrawlStats {
	return CrawlStats{Reasons: make(map[DropReason]int, len(AllReasons))}
}

// Drop учитывает отброшенный элемент.
func (s *CrawlStats) Drop(r DropReason) {
	s.Dropped++
	s.Reason(r)
}

// Reason увеличивает счётчик причины без изменения Dropped.
func (s *CrawlStats) Reason(r DropReason) {
	if s.Reasons == nil {
		s.Reasons = make(map[DropReason]int, len(AllReasons))
	}
	s.Reasons[r]++
}

// Add складывает счётчики other в s.
func (s *CrawlStats) Add(other CrawlStats) {
	s.RawItems += other.RawItems
	s.Extracted += other.Extracted
	s.Dropped += other.Dropped
	s.AgeFiltered += other.AgeFiltered
	s.SeenFiltered += other.SeenFiltered
	s.Final += other.Final
	s.Pages += other.Pages
	s.Requests += other.Requests
	s.RateLimited += other.RateLimited
	s.Retries += other.Retries
	s.Malformed += other.Malformed
	for r, n := range other.Reasons {
		if n == 0 {
			continue
		}
		if s.Reasons == nil {
			s.Reasons = make(map[DropReason]int, len(AllReasons))
		}
		s.Reasons[r] += n
	}
}

// SuccessRate — доля извлечённых элементов в процентах (0, если элементов не было).
func (s CrawlStats) SuccessRate() float64 {
	if s.RawItems == 0 {
		return 0
	}
	return float64(s.Extracted) / float64(s.RawItems) * 100
}

func sortStrings(v []string) { sort.Strings(v) }
