package models

import "strings"

// SearchResponse — конверт ответа поискового API (mtop).
//
// Ret содержит статусы вида "SUCCESS::调用成功" или "RGV587_ERROR::SM::...".
// Элементы Data.ResultList неоднородны, поэтому остаются нетипизированными
// (объекты map[string]any, числа json.Number).
type SearchResponse struct {
	API  string      `json:"api,omitempty"`
	Ret  []string    `json:"ret"`
	Data *SearchData `json:"data"`
}

// SearchData — полезная нагрузка ответа.
type SearchData struct {
	ResultList []any `json:"resultList"`
}

// Status возвращает первый статус из Ret или пустую строку.
func (r SearchResponse) Status() string {
	if len(r.Ret) == 0 {
		return ""
	}
	return r.Ret[0]
}

// RetContains сообщает, содержит ли хоть один статус подстроку marker.
func (r SearchResponse) RetContains(marker string) bool {
	for _, s := range r.Ret {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// Items возвращает список элементов или nil, если данных нет.
func (r SearchResponse) Items() []any {
	if r.Data == nil {
		return nil
	}
	return r.Data.ResultList
}
