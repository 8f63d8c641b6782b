// Package legacy держит зеркала обратной совместимости: узкие,
// статически очерченные проекции generic-записей в старые коллекции
// (retailers, products, bills), которыми продолжают пользоваться
// старые клиенты. Жизненным циклом зеркала владеет запись; зеркало
// пишется best-effort и источником истины не является.
package legacy

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mirror — адаптер одного модуля: allow-list ключей generic-записи и их
// имена в legacy-документе.
type Mirror struct {
	Module     string
	Collection string
	Fields     map[string]string // generic key -> legacy поле
}

// реестр зеркал; модуль без записи здесь зеркала не имеет
var mirrors = map[string]*Mirror{
	"retailer": {
		Module:     "retailer",
		Collection: "retailers",
		Fields: map[string]string{
			"name":          "name",
			"phone":         "phone",
			"address":       "address",
			"area":          "area",
			"collectionDay": "collectionDay",
		},
	},
	"product": {
		Module:     "product",
		Collection: "products",
		Fields: map[string]string{
			"name":  "name",
			"price": "price",
			"unit":  "unit",
		},
	},
	"bill": {
		Module:     "bill",
		Collection: "bills",
		Fields: map[string]string{
			"billNumber":    "billNumber",
			"retailer":      "retailer",
			"amount":        "amount",
			"dueAmount":     "dueAmount",
			"paidAmount":    "paidAmount",
			"billDate":      "billDate",
			"collectionDay": "collectionDay",
			"status":        "status",
		},
	},
}

// ForModule возвращает зеркало модуля, если оно есть.
func ForModule(key string) (*Mirror, bool) {
	m, ok := mirrors[key]
	return m, ok
}

// All — все зеркала (миграция обходит их по очереди).
func All() []*Mirror {
	out := make([]*Mirror, 0, len(mirrors))
	for _, k := range []string{"bill", "product", "retailer"} {
		out = append(out, mirrors[k])
	}
	return out
}

// Project собирает legacy-payload из нормализованных данных: только
// ключи из allow-list, присутствующие во входе. Частичный вход даёт
// частичный payload — это валидно для апдейтов.
func (m *Mirror) Project(data map[string]interface{}, actorID string) map[string]interface{} {
	out := make(map[string]interface{})
	for key, legacyField := range m.Fields {
		if v, ok := data[key]; ok {
			out[legacyField] = v
		}
	}
	if len(out) > 0 && actorID != "" {
		out["updatedBy"] = actorID
	}
	return out
}

// Backfill — обратная проекция legacy-документа в generic data map
// (для миграции). Родные даты приводятся к канонической ISO-форме,
// целые — к float64, как их нормализовал бы валидатор.
func (m *Mirror) Backfill(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m.Fields))
	for key, legacyField := range m.Fields {
		v, ok := doc[legacyField]
		if !ok || v == nil {
			continue
		}
		out[key] = canonical(v)
	}
	return out
}

func canonical(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, it := range t {
			out[i] = canonical(it)
		}
		return out
	default:
		return v
	}
}
