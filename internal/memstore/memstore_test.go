package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/internal/schema"
	"billbook/internal/store"
)

func retailerModule() *schema.Module {
	return &schema.Module{
		Key:   "retailer",
		Label: "Retailer",
		Fields: schema.NormalizeFields([]schema.Field{
			{Key: "name", Label: "Name", Type: schema.TypeText, Required: true},
		}),
		Permissions: map[string][]string{"read": {"all"}},
		Version:     1,
	}
}

func TestEnsureModuleIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	inserted, err := s.EnsureModule(ctx, retailerModule())
	require.NoError(t, err)
	assert.True(t, inserted)

	// повторный bootstrap существующее определение не трогает
	m2 := retailerModule()
	m2.Label = "Overwritten"
	inserted, err = s.EnsureModule(ctx, m2)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetModuleByKey(ctx, "retailer")
	require.NoError(t, err)
	assert.Equal(t, "Retailer", got.Label)
	assert.NotEmpty(t, got.ID)
}

func TestReplaceModuleFieldsBumpsVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.EnsureModule(ctx, retailerModule())
	require.NoError(t, err)
	m, err := s.GetModuleByKey(ctx, "retailer")
	require.NoError(t, err)

	fields := schema.NormalizeFields([]schema.Field{
		{Key: "name", Label: "Name", Type: schema.TypeText, Required: true},
		{Key: "phone", Label: "Phone", Type: schema.TypeText},
	})
	updated, err := s.ReplaceModuleFields(ctx, m.ID, fields)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Len(t, updated.Fields, 2)

	_, err = s.ReplaceModuleFields(ctx, "missing-id", fields)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordsListNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := &store.Record{
			Module:    "retailer",
			Data:      map[string]interface{}{"name": string(rune('A' + i))},
			Status:    store.RecordActive,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.InsertRecord(ctx, rec))
	}

	recs, err := s.ListRecords(ctx, "retailer")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "C", recs[0].Data["name"])
	assert.Equal(t, "A", recs[2].Data["name"])
}

func TestSoftDeleteAndRestore(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	rec := &store.Record{Module: "retailer", Data: map[string]interface{}{"name": "ACME"},
		Status: store.RecordActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.InsertRecord(ctx, rec))
	require.NotEmpty(t, rec.ID)

	_, err := s.SoftDeleteRecord(ctx, "retailer", rec.ID, "u1", now)
	require.NoError(t, err)

	// удалённая запись не видна ни чтению, ни списку, ни счётчику
	_, err = s.GetRecord(ctx, "retailer", rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	recs, err := s.ListRecords(ctx, "retailer")
	require.NoError(t, err)
	assert.Empty(t, recs)
	n, err := s.CountRecords(ctx, "retailer")
	require.NoError(t, err)
	assert.Zero(t, n)

	// повторное удаление — not found
	_, err = s.SoftDeleteRecord(ctx, "retailer", rec.ID, "u1", now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	restored, err := s.RestoreRecord(ctx, "retailer", rec.ID, "admin1", now)
	require.NoError(t, err)
	assert.Equal(t, store.RecordActive, restored.Status)
	got, err := s.GetRecord(ctx, "retailer", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.Data["name"])

	// restore активной записи невозможен
	_, err = s.RestoreRecord(ctx, "retailer", rec.ID, "admin1", now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateRecordDataMerges(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	rec := &store.Record{Module: "retailer",
		Data:   map[string]interface{}{"name": "ACME", "phone": "111"},
		Status: store.RecordActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.InsertRecord(ctx, rec))

	got, err := s.UpdateRecordData(ctx, "retailer", rec.ID,
		map[string]interface{}{"phone": "222"}, "u2", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.Data["name"])
	assert.Equal(t, "222", got.Data["phone"])
	assert.Equal(t, "u2", got.UpdatedBy)
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	rec := &store.Record{Module: "retailer", Data: map[string]interface{}{"name": "ACME"},
		Status: store.RecordActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.InsertRecord(ctx, rec))

	got, err := s.GetRecord(ctx, "retailer", rec.ID)
	require.NoError(t, err)
	got.Data["name"] = "mutated"

	again, err := s.GetRecord(ctx, "retailer", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", again.Data["name"])
}

func TestLegacyCollections(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.InsertLegacy(ctx, "retailers", map[string]interface{}{"name": "First"})
	require.NoError(t, err)
	id2, err := s.InsertLegacy(ctx, "retailers", map[string]interface{}{"name": "Second"})
	require.NoError(t, err)

	// порядок вставки сохраняется
	docs, err := s.ListLegacy(ctx, "retailers")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "First", docs[0]["name"])
	assert.Equal(t, id1, docs[0]["_id"])
	assert.NotContains(t, docs[0], "_seq")

	require.NoError(t, s.UpdateLegacy(ctx, "retailers", id2, map[string]interface{}{"name": "Renamed"}))
	docs, err = s.ListLegacy(ctx, "retailers")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", docs[1]["name"])

	require.NoError(t, s.DeleteLegacy(ctx, "retailers", id1))
	assert.ErrorIs(t, s.DeleteLegacy(ctx, "retailers", id1), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateLegacy(ctx, "retailers", "missing", nil), store.ErrNotFound)
}
