package schema

import (
	"sort"
	"time"
)

// FieldType — закрытый набор типов полей. Новый тип добавляется сюда
// и в таблицу нормализаторов (normalize.go), больше нигде.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeNumber      FieldType = "number"
	TypeDate        FieldType = "date"
	TypeDropdown    FieldType = "dropdown"
	TypeMultiSelect FieldType = "multi_select"
	TypeBoolean     FieldType = "boolean"
	TypeRelation    FieldType = "relation"
)

type FieldStatus string

const (
	FieldActive   FieldStatus = "active"
	FieldDisabled FieldStatus = "disabled"
)

// RoleAdmin видит все поля и проходит любую проверку прав.
// RolesAll — сентинел в allowedRoles: поле открыто любой роли.
const (
	RoleAdmin = "admin"
	RolesAll  = "all"
)

// CRUD-действия матрицы прав модуля.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Контексты показа поля (форма ввода / списочное представление).
const (
	ContextForm = "form"
	ContextList = "list"
)

// Field — описание одного поля модуля.
type Field struct {
	Key             string      `json:"key" bson:"key" yaml:"key"`
	Label           string      `json:"label" bson:"label" yaml:"label"`
	Type            FieldType   `json:"type" bson:"type" yaml:"type"`
	Required        bool        `json:"required" bson:"required" yaml:"required"`
	Unique          bool        `json:"unique,omitempty" bson:"unique,omitempty" yaml:"unique"`
	Default         interface{} `json:"default,omitempty" bson:"default,omitempty" yaml:"default"`
	Options         []string    `json:"options,omitempty" bson:"options,omitempty" yaml:"options"`
	VisibleContexts []string    `json:"visibleContexts,omitempty" bson:"visibleContexts,omitempty" yaml:"visibleContexts"`
	AllowedRoles    []string    `json:"allowedRoles" bson:"allowedRoles" yaml:"allowedRoles"`
	Status          FieldStatus `json:"status" bson:"status" yaml:"status"`
	Order           int         `json:"order" bson:"order" yaml:"order"`

	// только для type=relation
	Ref   string `json:"ref,omitempty" bson:"ref,omitempty" yaml:"ref"`
	Multi bool   `json:"multi,omitempty" bson:"multi,omitempty" yaml:"multi"`

	// устаревшие булевые флаги показа; старые клиенты шлют их вместо
	// visibleContexts, NormalizeFields переводит и обнуляет
	ShowInForm *bool `json:"showInForm,omitempty" bson:"-" yaml:"showInForm"`
	ShowInList *bool `json:"showInList,omitempty" bson:"-" yaml:"showInList"`
}

// Module — определение модуля: упорядоченный список полей плюс матрица прав.
// Key неизменяем; Version растёт на каждом изменении списка полей.
type Module struct {
	ID          string              `json:"id" bson:"_id,omitempty" yaml:"-"`
	Key         string              `json:"key" bson:"key" yaml:"key"`
	Label       string              `json:"label" bson:"label" yaml:"label"`
	Version     int64               `json:"version" bson:"version" yaml:"-"`
	Fields      []Field             `json:"fields" bson:"fields" yaml:"fields"`
	Permissions map[string][]string `json:"permissions" bson:"permissions" yaml:"permissions"` // action -> roles
	CreatedAt   time.Time           `json:"created_at" bson:"createdAt" yaml:"-"`
	UpdatedAt   time.Time           `json:"updated_at" bson:"updatedAt" yaml:"-"`
}

// FieldByKey возвращает поле по ключу (линейный поиск: полей в модуле немного).
func (m *Module) FieldByKey(key string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// HasPermission — admin проходит всегда, остальные по матрице прав.
func HasPermission(m *Module, action, role string) bool {
	if role == RoleAdmin {
		return true
	}
	if role == "" {
		return false
	}
	for _, r := range m.Permissions[action] {
		if r == role || r == RolesAll {
			return true
		}
	}
	return false
}

// NormalizeFields приводит входящий список полей к рабочему виду:
// visibleContexts из устаревших булевых флагов, последовательный order
// там, где он не задан, статус active по умолчанию. Ключи не трогает.
func NormalizeFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	for i := range out {
		f := &out[i]
		if len(f.VisibleContexts) == 0 {
			if f.ShowInForm != nil || f.ShowInList != nil {
				var ctx []string
				if f.ShowInForm == nil || *f.ShowInForm {
					ctx = append(ctx, ContextForm)
				}
				if f.ShowInList == nil || *f.ShowInList {
					ctx = append(ctx, ContextList)
				}
				f.VisibleContexts = ctx
			} else {
				f.VisibleContexts = []string{ContextForm, ContextList}
			}
		}
		f.ShowInForm = nil
		f.ShowInList = nil
		if f.Status == "" {
			f.Status = FieldActive
		}
		if len(f.AllowedRoles) == 0 {
			f.AllowedRoles = []string{RolesAll}
		}
		if f.Order == 0 {
			f.Order = i + 1
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Clone — глубокая копия определения (поля и матрица прав),
// чтобы вызывающий не мог мутировать то, что лежит в хранилище.
func (m *Module) Clone() *Module {
	out := *m
	out.Fields = append([]Field(nil), m.Fields...)
	out.Permissions = make(map[string][]string, len(m.Permissions))
	for k, v := range m.Permissions {
		out.Permissions[k] = append([]string(nil), v...)
	}
	return &out
}
