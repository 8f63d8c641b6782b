// Package engine — операционная поверхность движка модулей/записей.
// Запросно-скоупленный и безсостоянийный: определение модуля берётся
// из хранилища на каждый вызов, никакого амбиентного глобального
// состояния схем.
package engine

import (
	"context"
	"errors"
	"reflect"
	"time"

	"go.uber.org/zap"

	"billbook/internal/legacy"
	"billbook/internal/schema"
	"billbook/internal/store"
)

// ErrForbidden — у роли нет права на действие или на мутацию модуля.
var ErrForbidden = errors.New("forbidden")

// Actor — кто выполняет операцию (идентичность проставляет внешний
// слой аутентификации, здесь она принимается на веру).
type Actor struct {
	ID   string
	Role string
}

// OpResult — результат мутации записи. MirrorErr не фатальна: первичная
// запись уже состоялась, а светить ли расхождение зеркала — решает
// вызывающий, движок лишь логирует.
type OpResult struct {
	Record    *store.Record
	MirrorErr error
}

type Service struct {
	st  store.Store
	log *zap.Logger
}

func New(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{st: st, log: log}
}

// EnsureDefaults — идемпотентный bootstrap встроенного каталога модулей.
// Существующие определения не перетирает.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	catalog, err := schema.LoadSeedCatalog()
	if err != nil {
		return err
	}
	for _, m := range catalog {
		inserted, err := s.st.EnsureModule(ctx, m)
		if err != nil {
			return err
		}
		if inserted {
			s.log.Info("module seeded", zap.String("module", m.Key))
		}
	}
	return nil
}

// --- определения модулей ---

// ListModules — только для админа, без фильтрации полей.
func (s *Service) ListModules(ctx context.Context, role string) ([]*schema.Module, error) {
	if role != schema.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.st.ListModules(ctx)
}

// ListModuleDefinitions — схемы для любой аутентифицированной роли,
// невидимые поля вырезаны.
func (s *Service) ListModuleDefinitions(ctx context.Context, role string) ([]*schema.Module, error) {
	if role == "" {
		return nil, ErrForbidden
	}
	mods, err := s.st.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Module, 0, len(mods))
	for _, m := range mods {
		out = append(out, schema.FilterModule(m, role))
	}
	return out, nil
}

func (s *Service) GetModuleDefinition(ctx context.Context, key, role string) (*schema.Module, error) {
	if role == "" {
		return nil, ErrForbidden
	}
	m, err := s.st.GetModuleByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return schema.FilterModule(m, role), nil
}

// UpdateModuleFields заменяет список полей целиком (admin-only).
// Входящие поля нормализуются (устаревшие флаги показа, order, status)
// и линтуются; кривые метаданные в хранилище не попадают.
func (s *Service) UpdateModuleFields(ctx context.Context, id string, fields []schema.Field, role string) (*schema.Module, error) {
	if role != schema.RoleAdmin {
		return nil, ErrForbidden
	}
	if _, err := s.st.GetModuleByID(ctx, id); err != nil {
		return nil, err
	}
	norm := schema.NormalizeFields(fields)
	if issues := schema.Lint(&schema.Module{Key: "pending", Fields: norm}); len(issues) > 0 {
		errs := make(map[string]string, len(issues))
		for _, it := range issues {
			if _, taken := errs[it.Field]; !taken {
				errs[it.Field] = it.Message
			}
		}
		return nil, schema.NewValidationError(errs)
	}
	return s.st.ReplaceModuleFields(ctx, id, norm)
}

// --- записи ---

func (s *Service) ListRecords(ctx context.Context, moduleKey, role string) ([]*store.Record, error) {
	m, err := s.st.GetModuleByKey(ctx, moduleKey)
	if err != nil {
		return nil, err
	}
	if !schema.HasPermission(m, schema.ActionRead, role) {
		return nil, ErrForbidden
	}
	recs, err := s.st.ListRecords(ctx, moduleKey)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		r.Data = schema.FilterRecordData(m, r.Data, role)
	}
	return recs, nil
}

func (s *Service) GetRecord(ctx context.Context, moduleKey, id, role string) (*store.Record, error) {
	m, err := s.st.GetModuleByKey(ctx, moduleKey)
	if err != nil {
		return nil, err
	}
	if !schema.HasPermission(m, schema.ActionRead, role) {
		return nil, ErrForbidden
	}
	rec, err := s.st.GetRecord(ctx, moduleKey, id)
	if err != nil {
		return nil, err
	}
	rec.Data = schema.FilterRecordData(m, rec.Data, role)
	return rec, nil
}

func (s *Service) CountRecords(ctx context.Context, moduleKey, role string) (int64, error) {
	m, err := s.st.GetModuleByKey(ctx, moduleKey)
	if err != nil {
		return 0, err
	}
	if !schema.HasPermission(m, schema.ActionRead, role) {
		return 0, ErrForbidden
	}
	return s.st.CountRecords(ctx, moduleKey)
}

// CreateRecord: валидация -> первичная вставка -> best-effort зеркало.
// Ошибка зеркала первичную запись не откатывает.
func (s *Service) CreateRecord(ctx context.Context, moduleKey string, payload map[string]interface{}, actor Actor) (*OpResult, error) {
	m, err := s.st.GetModuleByKey(ctx, moduleKey)
	if err != nil {
		return nil, err
	}
	if !schema.HasPermission(m, schema.ActionCreate, actor.Role) {
		return nil, ErrForbidden
	}

	normalized, errs := schema.Validate(m, payload, actor.Role, false)
	if err := schema.NewValidationError(errs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &store.Record{
		Module:    moduleKey,
		Data:      normalized,
		Status:    store.RecordActive,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.InsertRecord(ctx, rec); err != nil {
		return nil, err
	}

	res := &OpResult{Record: rec}
	if mirror, ok := legacy.ForModule(moduleKey); ok {
		if lp := mirror.Project(normalized, actor.ID); len(lp) > 0 {
			legacyID, merr := s.st.InsertLegacy(ctx, mirror.Collection, lp)
			if merr != nil {
				s.log.Warn("legacy mirror create failed",
					zap.String("module", moduleKey), zap.String("record", rec.ID), zap.Error(merr))
				res.MirrorErr = merr
			} else {
				rec.LegacyID = legacyID
				if err := s.st.SetRecordLegacyID(ctx, moduleKey, rec.ID, legacyID); err != nil {
					s.log.Warn("legacyId backref write failed",
						zap.String("module", moduleKey), zap.String("record", rec.ID), zap.Error(err))
					res.MirrorErr = err
				}
			}
		}
	}
	return res, nil
}

// UpdateRecord — настоящий PATCH: ключи вне payload сохраняют прежние
// значения; required на апдейте не проверяется. Зеркало получает только
// реально изменившиеся проецируемые поля.
func (s *Service) UpdateRecord(ctx context.Context, moduleKey, id string, payload map[string]interface{}, actor Actor) (*OpResult, error) {
	m, err := s.st.GetModuleByKey(ctx, moduleKey)
	if err != nil {
		return nil, err
	}
	if !schema.HasPermission(m, schema.ActionUpdate, actor.Role) {
		return nil, ErrForbidden
	}
	prior, err := s.st.GetRecord(ctx, moduleKey, id)
	if err != nil {
		return nil, err
	}

	normalized, errs := schema.Validate(m, payload, actor.Role, true)
	if err := schema.NewValidationError(errs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec, err := s.st.UpdateRecordData(ctx, moduleKey, id, normalized, actor.ID, now)
	if err != nil {
		return nil, err
	}

	// зеркалу — только реально изменившиеся поля
	changed := make(map[string]interface{}, len(normalized))
	for k, v := range normalized {
		if old, ok := prior.Data[k]; !ok || !reflect.DeepEqual(old, v) {
			changed[k] = v
		}
	}

	res := &OpResult{Record: rec}
	if mirror, ok := legacy.ForModule(moduleKey); ok && rec.LegacyID != "" {
		if patch := mirror.Project(changed, actor.ID); len(patch) > 0 {
			if merr := s.st.UpdateLegacy(ctx, mirror.Collection, rec.LegacyID, patch); merr != nil {
				s.log.Warn("legacy mirror update failed",
					zap.String("module", moduleKey), zap.String("record", rec.ID), zap.Error(merr))
				res.MirrorErr = merr
			}
		}
	}
	return res, nil
}

// DeleteRecord — soft delete записи, зеркальный документ удаляется
// физически.
func (s *Service) DeleteRecord(ctx context.Context, moduleKey, id string, actor Actor) (*OpResult, error) {
	m, err := s.st.GetModuleByKey(ctx, moduleKey)
	if err != nil {
		return nil, err
	}
	if !schema.HasPermission(m, schema.ActionDelete, actor.Role) {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	rec, err := s.st.SoftDeleteRecord(ctx, moduleKey, id, actor.ID, now)
	if err != nil {
		return nil, err
	}

	res := &OpResult{Record: rec}
	if mirror, ok := legacy.ForModule(moduleKey); ok && rec.LegacyID != "" {
		if merr := s.st.DeleteLegacy(ctx, mirror.Collection, rec.LegacyID); merr != nil && !errors.Is(merr, store.ErrNotFound) {
			s.log.Warn("legacy mirror delete failed",
				zap.String("module", moduleKey), zap.String("record", rec.ID), zap.Error(merr))
			res.MirrorErr = merr
		}
	}
	return res, nil
}

// RestoreRecord возвращает soft-deleted запись (admin-only) и заново
// создаёт зеркальный документ, удалённый при soft delete.
func (s *Service) RestoreRecord(ctx context.Context, moduleKey, id string, actor Actor) (*OpResult, error) {
	if actor.Role != schema.RoleAdmin {
		return nil, ErrForbidden
	}
	if _, err := s.st.GetModuleByKey(ctx, moduleKey); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec, err := s.st.RestoreRecord(ctx, moduleKey, id, actor.ID, now)
	if err != nil {
		return nil, err
	}

	res := &OpResult{Record: rec}
	if mirror, ok := legacy.ForModule(moduleKey); ok {
		if lp := mirror.Project(rec.Data, actor.ID); len(lp) > 0 {
			legacyID, merr := s.st.InsertLegacy(ctx, mirror.Collection, lp)
			if merr != nil {
				s.log.Warn("legacy mirror restore failed",
					zap.String("module", moduleKey), zap.String("record", rec.ID), zap.Error(merr))
				res.MirrorErr = merr
			} else {
				rec.LegacyID = legacyID
				if err := s.st.SetRecordLegacyID(ctx, moduleKey, rec.ID, legacyID); err != nil {
					res.MirrorErr = err
				}
			}
		}
	}
	return res, nil
}
