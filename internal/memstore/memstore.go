// Package memstore — in-memory реализация store.Store поверх карт под
// RWMutex. Дефолтный бэкенд для dev-режима без Mongo и для тестов;
// семантика операций совпадает с mongostore.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"billbook/internal/schema"
	"billbook/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	modules map[string]*schema.Module        // key -> определение
	records map[string]map[string]*store.Record // module key -> id -> запись
	legacy  map[string]map[string]map[string]interface{} // collection -> id -> документ
	seq     map[string]int64 // порядок вставки legacy для стабильного ListLegacy
}

func New() *Store {
	return &Store{
		modules: make(map[string]*schema.Module),
		records: make(map[string]map[string]*store.Record),
		legacy:  make(map[string]map[string]map[string]interface{}),
		seq:     make(map[string]int64),
	}
}

func newID() string { return primitive.NewObjectID().Hex() }

// --- модули ---

func (s *Store) EnsureModule(_ context.Context, m *schema.Module) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[m.Key]; ok {
		return false, nil
	}
	cp := m.Clone()
	if cp.ID == "" {
		cp.ID = newID()
	}
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
		cp.UpdatedAt = now
	}
	s.modules[cp.Key] = cp
	return true, nil
}

func (s *Store) GetModuleByKey(_ context.Context, key string) (*schema.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.Clone(), nil
}

func (s *Store) GetModuleByID(_ context.Context, id string) (*schema.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.modules {
		if m.ID == id {
			return m.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListModules(_ context.Context) ([]*schema.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*schema.Module, 0, len(s.modules))
	for _, m := range s.modules {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) ReplaceModuleFields(_ context.Context, id string, fields []schema.Field) (*schema.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.modules {
		if m.ID != id {
			continue
		}
		m.Fields = append([]schema.Field(nil), fields...)
		m.Version++
		m.UpdatedAt = time.Now().UTC()
		return m.Clone(), nil
	}
	return nil, store.ErrNotFound
}

// --- записи ---

func (s *Store) InsertRecord(_ context.Context, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = newID()
	}
	if s.records[rec.Module] == nil {
		s.records[rec.Module] = make(map[string]*store.Record)
	}
	cp := cloneRecord(rec)
	s.records[rec.Module][rec.ID] = cp
	return nil
}

func (s *Store) ListRecords(_ context.Context, module string) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.records[module]
	out := make([]*store.Record, 0, len(byID))
	for _, r := range byID {
		if r.Status != store.RecordDeleted {
			out = append(out, cloneRecord(r))
		}
	}
	// свежие первыми; при равном времени — по id, чтобы порядок был стабильным
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetRecord(_ context.Context, module, id string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.records[module][id]
	if r == nil || r.Status == store.RecordDeleted {
		return nil, store.ErrNotFound
	}
	return cloneRecord(r), nil
}

func (s *Store) UpdateRecordData(_ context.Context, module, id string, patch map[string]interface{}, actor string, now time.Time) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[module][id]
	if r == nil || r.Status == store.RecordDeleted {
		return nil, store.ErrNotFound
	}
	for k, v := range patch {
		r.Data[k] = v
	}
	r.UpdatedBy = actor
	r.UpdatedAt = now
	return cloneRecord(r), nil
}

func (s *Store) SoftDeleteRecord(_ context.Context, module, id, actor string, now time.Time) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[module][id]
	if r == nil || r.Status == store.RecordDeleted {
		return nil, store.ErrNotFound
	}
	r.Status = store.RecordDeleted
	r.UpdatedBy = actor
	r.UpdatedAt = now
	return cloneRecord(r), nil
}

func (s *Store) RestoreRecord(_ context.Context, module, id, actor string, now time.Time) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[module][id]
	if r == nil || r.Status != store.RecordDeleted {
		return nil, store.ErrNotFound
	}
	r.Status = store.RecordActive
	r.UpdatedBy = actor
	r.UpdatedAt = now
	return cloneRecord(r), nil
}

func (s *Store) SetRecordLegacyID(_ context.Context, module, id, legacyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[module][id]
	if r == nil {
		return store.ErrNotFound
	}
	r.LegacyID = legacyID
	return nil
}

func (s *Store) CountRecords(_ context.Context, module string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.records[module] {
		if r.Status != store.RecordDeleted {
			n++
		}
	}
	return n, nil
}

// --- legacy-коллекции ---

func (s *Store) InsertLegacy(_ context.Context, collection string, doc map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.legacy[collection] == nil {
		s.legacy[collection] = make(map[string]map[string]interface{})
	}
	id := newID()
	cp := cloneMap(doc)
	cp["_id"] = id
	s.seq[collection]++
	cp["_seq"] = s.seq[collection]
	s.legacy[collection][id] = cp
	return id, nil
}

func (s *Store) UpdateLegacy(_ context.Context, collection, id string, patch map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.legacy[collection][id]
	if doc == nil {
		return store.ErrNotFound
	}
	for k, v := range patch {
		doc[k] = v
	}
	return nil
}

func (s *Store) DeleteLegacy(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.legacy[collection][id] == nil {
		return store.ErrNotFound
	}
	delete(s.legacy[collection], id)
	return nil
}

func (s *Store) ListLegacy(_ context.Context, collection string) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.legacy[collection]
	out := make([]map[string]interface{}, 0, len(byID))
	for _, doc := range byID {
		cp := cloneMap(doc)
		delete(cp, "_seq")
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return seqOf(byID, out[i]) < seqOf(byID, out[j])
	})
	return out, nil
}

func seqOf(byID map[string]map[string]interface{}, doc map[string]interface{}) int64 {
	id, _ := doc["_id"].(string)
	if src := byID[id]; src != nil {
		if n, ok := src["_seq"].(int64); ok {
			return n
		}
	}
	return 0
}

// SeedLegacy кладёт документ в legacy-коллекцию как есть (для тестов
// миграции и dev-наполнения). Требует присутствия "_id".
func (s *Store) SeedLegacy(collection string, doc map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.legacy[collection] == nil {
		s.legacy[collection] = make(map[string]map[string]interface{})
	}
	id, _ := doc["_id"].(string)
	if id == "" {
		id = newID()
	}
	cp := cloneMap(doc)
	cp["_id"] = id
	s.seq[collection]++
	cp["_seq"] = s.seq[collection]
	s.legacy[collection][id] = cp
}

func cloneRecord(r *store.Record) *store.Record {
	cp := *r
	cp.Data = cloneMap(r.Data)
	return &cp
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
