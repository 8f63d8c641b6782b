package schema

// IsVisible — admin видит всё; остальные роли — только активные поля,
// в allowedRoles которых есть их роль (или сентинел "all").
func IsVisible(f Field, role string) bool {
	if role == RoleAdmin {
		return true
	}
	if f.Status == FieldDisabled {
		return false
	}
	for _, r := range f.AllowedRoles {
		if r == role || r == RolesAll {
			return true
		}
	}
	return false
}

// FilterModule возвращает копию определения без полей, невидимых роли.
// Используется при отдаче схем не-админам.
func FilterModule(m *Module, role string) *Module {
	out := m.Clone()
	if role == RoleAdmin {
		return out
	}
	fields := make([]Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if IsVisible(f, role) {
			fields = append(fields, f)
		}
	}
	out.Fields = fields
	return out
}

// FilterRecordData убирает из data ключи, чьи поля сейчас не видны роли.
// Видимость считается по текущей схеме, а не по той, что была на момент
// записи: ключи давно удалённых полей тоже отфильтруются.
// Симметрично применяется на чтении и на записи; идемпотентна.
func FilterRecordData(m *Module, data map[string]interface{}, role string) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	if role == RoleAdmin {
		for k, v := range data {
			out[k] = v
		}
		return out
	}
	for k, v := range data {
		f, ok := m.FieldByKey(k)
		if !ok {
			continue
		}
		if IsVisible(f, role) {
			out[k] = v
		}
	}
	return out
}
