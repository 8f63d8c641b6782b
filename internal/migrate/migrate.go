// Package migrate — разовый offline-бэкфилл generic-записей из
// существующих legacy-коллекций. Идемпотентен по модулю: если у модуля
// уже есть хоть одна generic-запись, он пропускается, так что повторный
// запуск безопасен. Любая ошибка валит весь прогон (fail-fast): частичный
// результат безопасно догнать перезапуском.
package migrate

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"billbook/internal/legacy"
	"billbook/internal/store"
)

func Run(ctx context.Context, st store.Store, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	for _, mirror := range legacy.All() {
		if _, err := st.GetModuleByKey(ctx, mirror.Module); err != nil {
			return fmt.Errorf("migrate %s: module definition missing: %w", mirror.Module, err)
		}

		n, err := st.CountRecords(ctx, mirror.Module)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", mirror.Module, err)
		}
		if n > 0 {
			log.Info("module already migrated, skipping",
				zap.String("module", mirror.Module), zap.Int64("records", n))
			continue
		}

		docs, err := st.ListLegacy(ctx, mirror.Collection)
		if err != nil {
			return fmt.Errorf("migrate %s: read %s: %w", mirror.Module, mirror.Collection, err)
		}

		inserted := 0
		for _, doc := range docs {
			rec := recordFromLegacy(mirror, doc)
			if err := st.InsertRecord(ctx, rec); err != nil {
				return fmt.Errorf("migrate %s: insert: %w", mirror.Module, err)
			}
			inserted++
		}
		log.Info("module migrated",
			zap.String("module", mirror.Module),
			zap.String("collection", mirror.Collection),
			zap.Int("records", inserted))
	}
	return nil
}

// recordFromLegacy собирает generic-запись из legacy-документа,
// сохраняя исходные createdAt/updatedAt/createdBy и ссылку на оригинал.
func recordFromLegacy(mirror *legacy.Mirror, doc map[string]interface{}) *store.Record {
	now := time.Now().UTC()
	rec := &store.Record{
		Module:    mirror.Module,
		Data:      mirror.Backfill(doc),
		Status:    store.RecordActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if id, ok := doc["_id"].(string); ok {
		rec.LegacyID = id
	}
	if by, ok := doc["createdBy"].(string); ok {
		rec.CreatedBy = by
		rec.UpdatedBy = by
	}
	if ts, ok := legacyTime(doc["createdAt"]); ok {
		rec.CreatedAt = ts
		rec.UpdatedAt = ts
	}
	if ts, ok := legacyTime(doc["updatedAt"]); ok {
		rec.UpdatedAt = ts
	}
	return rec
}

func legacyTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case primitive.DateTime:
		return t.Time().UTC(), true
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
