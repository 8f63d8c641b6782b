package schema

import "fmt"

type Issue struct {
	Module  string `json:"module"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Lint проверяет базовые противоречия в определении модуля до того, как
// оно попадёт в хранилище. Гоняется на seed-каталоге и на updateFields:
// битые метаданные проще отклонить, чем потом ловить на каждой записи.
func Lint(m *Module) []Issue {
	var issues []Issue

	if m.Key == "" {
		issues = append(issues, Issue{Module: m.Key, Code: "key_empty", Message: "module key is empty"})
	}

	seen := make(map[string]struct{}, len(m.Fields))
	for _, f := range m.Fields {
		if f.Key == "" {
			issues = append(issues, Issue{Module: m.Key, Code: "field_key_empty", Message: "field has empty key"})
			continue
		}
		if _, dup := seen[f.Key]; dup {
			issues = append(issues, Issue{Module: m.Key, Field: f.Key, Code: "field_key_duplicate",
				Message: fmt.Sprintf("field key %q appears more than once", f.Key)})
		}
		seen[f.Key] = struct{}{}

		if !KnownType(f.Type) {
			issues = append(issues, Issue{Module: m.Key, Field: f.Key, Code: "type_unknown",
				Message: fmt.Sprintf("unknown field type %q", f.Type)})
			continue
		}

		// dropdown/multi_select без options бессмысленны
		if (f.Type == TypeDropdown || f.Type == TypeMultiSelect) && len(f.Options) == 0 {
			issues = append(issues, Issue{Module: m.Key, Field: f.Key, Code: "options_empty",
				Message: "dropdown/multi_select field needs a non-empty options list"})
		}

		// relation без цели
		if f.Type == TypeRelation && f.Ref == "" {
			issues = append(issues, Issue{Module: m.Key, Field: f.Key, Code: "ref_empty",
				Message: "relation field has empty ref"})
		}

		// поле, которое не видно никому кроме админа — почти наверняка опечатка
		if len(f.AllowedRoles) == 0 {
			issues = append(issues, Issue{Module: m.Key, Field: f.Key, Code: "allowed_roles_empty",
				Message: "allowedRoles is empty; use [\"all\"] to open the field to every role"})
		}
	}

	return issues
}
