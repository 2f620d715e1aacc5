package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// object спускается по ключам path и возвращает вложенный объект
// или nil, если по пути нет непустого объекта.
func object(v any, path ...string) map[string]any {
	cur, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	if len(cur) == 0 {
		return nil
	}
	return cur
}

// text возвращает строковое представление поля key.
// Числа приводятся к строке, отсутствующие и null-поля дают "".
func text(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// clickArgs — основной путь data.item.main.clickParam.args.
func clickArgs(entry map[string]any) map[string]any {
	return object(entry, "data", "item", "main", "clickParam", "args")
}

// exContent — расширенный контент data.item.main.exContent.
func exContent(entry map[string]any) map[string]any {
	return object(entry, "data", "item", "main", "exContent")
}
