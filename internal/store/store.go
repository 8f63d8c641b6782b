// Package store описывает контракт хранилища документов движка.
// Реализации: memstore (in-memory, дефолт для dev/тестов) и mongostore.
package store

import (
	"context"
	"errors"
	"time"

	"billbook/internal/schema"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Статусы записи; физического удаления нет.
const (
	RecordActive  = "active"
	RecordDeleted = "deleted"
)

// Record — экземпляр модуля: schemaless-документ, провалидированный
// на момент записи. LegacyID — обратная ссылка на зеркальный документ
// в legacy-коллекции; источником истины не является.
type Record struct {
	ID        string                 `json:"id" bson:"_id"`
	Module    string                 `json:"module" bson:"module"`
	Data      map[string]interface{} `json:"data" bson:"data"`
	Status    string                 `json:"status" bson:"status"`
	LegacyID  string                 `json:"legacyId,omitempty" bson:"legacyId,omitempty"`
	CreatedBy string                 `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	UpdatedBy string                 `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	CreatedAt time.Time              `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time              `json:"updated_at" bson:"updatedAt"`
}

// Store — один примитив на операцию, атомарность на уровне документа
// обеспечивает бэкенд. Междокументных транзакций контракт не обещает.
type Store interface {
	// --- определения модулей ---

	// EnsureModule вставляет определение, только если модуля с таким key
	// ещё нет. Возвращает true, если вставка состоялась.
	EnsureModule(ctx context.Context, m *schema.Module) (bool, error)
	GetModuleByKey(ctx context.Context, key string) (*schema.Module, error)
	GetModuleByID(ctx context.Context, id string) (*schema.Module, error)
	ListModules(ctx context.Context) ([]*schema.Module, error)
	// ReplaceModuleFields целиком заменяет список полей и инкрементит
	// version. Key модуля не меняется никогда.
	ReplaceModuleFields(ctx context.Context, id string, fields []schema.Field) (*schema.Module, error)

	// --- записи ---

	InsertRecord(ctx context.Context, rec *Record) error
	// ListRecords отдаёт активные записи модуля, свежие первыми.
	ListRecords(ctx context.Context, module string) ([]*Record, error)
	// GetRecord — только активные; soft-deleted считается отсутствующей.
	GetRecord(ctx context.Context, module, id string) (*Record, error)
	// UpdateRecordData — shallow merge патча в data (настоящий PATCH).
	UpdateRecordData(ctx context.Context, module, id string, patch map[string]interface{}, actor string, now time.Time) (*Record, error)
	SoftDeleteRecord(ctx context.Context, module, id, actor string, now time.Time) (*Record, error)
	RestoreRecord(ctx context.Context, module, id, actor string, now time.Time) (*Record, error)
	SetRecordLegacyID(ctx context.Context, module, id, legacyID string) error
	// CountRecords — активные записи модуля (миграция решает по нулю).
	CountRecords(ctx context.Context, module string) (int64, error)

	// --- legacy-коллекции (зеркала и миграция) ---

	InsertLegacy(ctx context.Context, collection string, doc map[string]interface{}) (string, error)
	UpdateLegacy(ctx context.Context, collection, id string, patch map[string]interface{}) error
	DeleteLegacy(ctx context.Context, collection, id string) error
	ListLegacy(ctx context.Context, collection string) ([]map[string]interface{}, error)
}
