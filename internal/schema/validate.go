package schema

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError — накопленные ошибки по полям: ключ поля -> одно сообщение.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Errors[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate прогоняет сырой payload через схему модуля: нормализация,
// видимость по роли, required (только на создании), options/relation.
// Ошибки копятся по всем полям сразу — одна попытка показывает всё.
// Невидимые роли поля пропускаются молча: не-админ не может даже
// получить ошибку по полю вне своих прав.
func Validate(m *Module, raw map[string]interface{}, role string, isUpdate bool) (map[string]interface{}, map[string]string) {
	normalized := make(map[string]interface{})
	errs := make(map[string]string)

	for _, f := range m.Fields {
		// битые метаданные не должны ронять процесс
		if !KnownType(f.Type) {
			errs[f.Key] = "Unsupported field type"
			continue
		}
		if !IsVisible(f, role) {
			continue
		}

		v, supplied := raw[f.Key]
		if supplied && IsEmpty(v) {
			supplied = false
		}

		if !supplied {
			if !isUpdate && f.Required && f.Status != FieldDisabled {
				errs[f.Key] = f.Label + " is required"
				continue
			}
			if !isUpdate && f.Default != nil {
				// дефолт из доверенных метаданных; если он кривой — не подставляем
				if nv, ok := Normalize(f, f.Default); ok {
					normalized[f.Key] = nv
				} else {
					normalized[f.Key] = f.Default
				}
			}
			continue
		}

		nv, ok := Normalize(f, v)
		if !ok {
			errs[f.Key] = f.Label + " is invalid"
			continue
		}

		switch f.Type {
		case TypeDropdown:
			if !inOptions(f.Options, nv.(string)) {
				errs[f.Key] = f.Label + " must be a valid option"
				continue
			}
		case TypeMultiSelect:
			bad := false
			for _, it := range nv.([]string) {
				if !inOptions(f.Options, it) {
					bad = true
					break
				}
			}
			if bad {
				errs[f.Key] = f.Label + " has invalid options"
				continue
			}
		case TypeRelation:
			if !validRelationIDs(nv) {
				errs[f.Key] = f.Label + " has invalid relation"
				continue
			}
		}

		normalized[f.Key] = nv
	}

	return normalized, errs
}

func inOptions(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// validRelationIDs — каждый идентификатор должен быть структурно валидным
// ObjectID (24 hex-символа). Существование целевой записи здесь не проверяем.
func validRelationIDs(nv interface{}) bool {
	switch t := nv.(type) {
	case string:
		return isObjectID(t)
	case []string:
		for _, s := range t {
			if !isObjectID(s) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

// NewValidationError — обёртка для движка: nil если ошибок нет.
func NewValidationError(errs map[string]string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
