package extractor

// record — найденная запись объявления и её расширенный контент.
type record struct {
	fields map[string]any
	ex     map[string]any
	path   string
}

// recordStrategy — способ найти запись объявления внутри элемента выдачи.
// batch — весь список, нужен для перекрёстных ссылок.
type recordStrategy func(entry map[string]any, batch []any) (map[string]any, bool)

type namedStrategy struct {
	name string
	fn   recordStrategy
}

// recordStrategies — пути к записи в порядке приоритета.
var recordStrategies = []namedStrategy{
	{"main.clickParam.args", fromClickParams},
	{"exContent cross-reference", fromCrossReference},
	{"exContent", fromExContent},
}

func fromClickParams(entry map[string]any, _ []any) (map[string]any, bool) {
	args := clickArgs(entry)
	return args, args != nil
}

// fromCrossReference ищет в выдаче другой элемент, у которого
// clickParam.args.id совпадает с exContent.itemId текущего.
func fromCrossReference(entry map[string]any, batch []any) (map[string]any, bool) {
	id := text(exContent(entry), "itemId")
	if id == "" {
		return nil, false
	}
	for _, other := range batch {
		otherEntry, ok := other.(map[string]any)
		if !ok {
			continue
		}
		args := clickArgs(otherEntry)
		if args != nil && text(args, "id") == id {
			return args, true
		}
	}
	return nil, false
}

// fromExContent берёт сам exContent как запись; id берётся из itemId.
func fromExContent(entry map[string]any, _ []any) (map[string]any, bool) {
	ex := exContent(entry)
	if ex == nil {
		return nil, false
	}
	fields := make(map[string]any, len(ex)+1)
	for k, v := range ex {
		fields[k] = v
	}
	if _, has := fields["id"]; !has {
		fields["id"] = ex["itemId"]
	}
	return fields, true
}

func findRecord(entry map[string]any, batch []any) (record, bool) {
	for _, s := range recordStrategies {
		if fields, ok := s.fn(entry, batch); ok {
			return record{fields: fields, ex: exContent(entry), path: s.name}, true
		}
	}
	return record{}, false
}

// fieldStrategy достаёт строковое поле из записи.
type fieldStrategy func(r record) string

var titleStrategies = []fieldStrategy{
	func(r record) string { return text(object(r.fields, "detailParams"), "title") },
	func(r record) string { return text(object(r.ex, "detailParams"), "title") },
	func(r record) string { return text(r.fields, "title") },
	func(r record) string { return text(r.ex, "title") },
}

var locationStrategies = []fieldStrategy{
	func(r record) string { return text(r.fields, "area") },
	func(r record) string { return text(r.ex, "area") },
}

func firstOf(r record, strategies []fieldStrategy) string {
	for _, s := range strategies {
		if v := s(r); v != "" {
			return v
		}
	}
	return ""
}
