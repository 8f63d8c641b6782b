package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Normalize приводит сырое значение к канонической форме для типа поля.
// Чистая функция: не знает про options/ref — членство в options и формат
// идентификаторов проверяет валидатор. Возвращает ok=false вместо ошибки,
// чтобы валидатор сам выбрал сообщение для поля.
func Normalize(f Field, v interface{}) (interface{}, bool) {
	fn, ok := normalizers[f.Type]
	if !ok {
		return nil, false
	}
	return fn(f, v)
}

// KnownType — есть ли тип в таблице диспетчеризации.
func KnownType(t FieldType) bool {
	_, ok := normalizers[t]
	return ok
}

// IsEmpty — значение «не передано»: nil либо пустая строка.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

type normalizeFn func(Field, interface{}) (interface{}, bool)

// единственная таблица тип -> нормализатор
var normalizers = map[FieldType]normalizeFn{
	TypeText:        normalizeText,
	TypeNumber:      normalizeNumber,
	TypeDate:        normalizeDate,
	TypeDropdown:    normalizeText, // строка; членство в options проверит валидатор
	TypeMultiSelect: normalizeMultiSelect,
	TypeBoolean:     normalizeBoolean,
	TypeRelation:    normalizeRelation,
}

func normalizeText(_ Field, v interface{}) (interface{}, bool) {
	s, ok := toText(v)
	if !ok || s == "" {
		return nil, false
	}
	return s, true
}

func toText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		// массивы/объекты текстом не становятся
		return "", false
	}
}

func normalizeNumber(_ Field, v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, false
		}
		return n, true
	default:
		return nil, false
	}
}

// форматы дат, которые принимаем на входе; каноника на выходе — RFC3339 (UTC)
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func normalizeDate(_ Field, v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339), true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC().Format(time.RFC3339), true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

func normalizeMultiSelect(f Field, v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := toText(it)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		// скаляр заворачиваем в одноэлементный набор
		s, ok := toText(v)
		if !ok {
			return nil, false
		}
		return []string{s}, true
	}
}

// normalizeBoolean принимает только настоящий bool либо узкий набор
// литералов ("true"/"false", 0/1). JS-овский truthy-коэрсинг — где
// "false" превращался в true — сюда сознательно не перенесён.
func normalizeBoolean(_ Field, v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		if t == 1 {
			return true, true
		}
		if t == 0 {
			return false, true
		}
		return nil, false
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		default:
			return nil, false
		}
	default:
		return nil, false
	}
}

func normalizeRelation(f Field, v interface{}) (interface{}, bool) {
	if f.Multi {
		switch t := v.(type) {
		case []string:
			return append([]string(nil), t...), true
		case []interface{}:
			out := make([]string, 0, len(t))
			for _, it := range t {
				s, ok := relID(it)
				if !ok {
					return nil, false
				}
				out = append(out, s)
			}
			return out, true
		default:
			s, ok := relID(v)
			if !ok {
				return nil, false
			}
			return []string{s}, true
		}
	}
	s, ok := relID(v)
	if !ok {
		return nil, false
	}
	return s, true
}

// relID — строковый id; структурную валидность (24-hex) проверяет валидатор
func relID(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func init() {
	// защита от рассинхрона таблицы и списка типов
	for _, t := range []FieldType{TypeText, TypeNumber, TypeDate, TypeDropdown, TypeMultiSelect, TypeBoolean, TypeRelation} {
		if _, ok := normalizers[t]; !ok {
			panic(fmt.Sprintf("schema: no normalizer for field type %q", t))
		}
	}
}
