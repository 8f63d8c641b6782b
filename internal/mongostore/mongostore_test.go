package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"billbook/internal/schema"
	"billbook/internal/store"
)

// Интеграционный тест: поднимает настоящую Mongo в контейнере.
// Гоняется только при BILLBOOK_MONGO_TEST=1 (нужен docker).
func connectTest(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("BILLBOOK_MONGO_TEST") != "1" {
		t.Skip("set BILLBOOK_MONGO_TEST=1 to run mongo integration tests")
	}

	ctx := context.Background()
	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	s, err := Connect(ctx, uri, "billbook_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestMongoStoreRoundTrip(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	m := &schema.Module{
		Key:   "retailer",
		Label: "Retailer",
		Fields: schema.NormalizeFields([]schema.Field{
			{Key: "name", Label: "Name", Type: schema.TypeText, Required: true},
			{Key: "openingBalance", Label: "Opening Balance", Type: schema.TypeNumber},
		}),
		Permissions: map[string][]string{"read": {"all"}},
		Version:     1,
	}

	inserted, err := s.EnsureModule(ctx, m)
	require.NoError(t, err)
	assert.True(t, inserted)

	// уникальный индекс по key: повторная вставка не дублирует
	inserted, err = s.EnsureModule(ctx, m)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetModuleByKey(ctx, "retailer")
	require.NoError(t, err)
	require.Len(t, got.Fields, 2)

	updated, err := s.ReplaceModuleFields(ctx, got.ID, got.Fields[:1])
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := &store.Record{
		Module:    "retailer",
		Data:      map[string]interface{}{"name": "ACME", "openingBalance": float64(100)},
		Status:    store.RecordActive,
		CreatedBy: "u1", UpdatedBy: "u1",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.InsertRecord(ctx, rec))

	// после bson-декодирования типы в data остаются JSON-подобными
	back, err := s.GetRecord(ctx, "retailer", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", back.Data["name"])
	assert.Equal(t, float64(100), back.Data["openingBalance"])

	patched, err := s.UpdateRecordData(ctx, "retailer", rec.ID,
		map[string]interface{}{"openingBalance": float64(50)}, "u2", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, float64(50), patched.Data["openingBalance"])
	assert.Equal(t, "ACME", patched.Data["name"])

	_, err = s.SoftDeleteRecord(ctx, "retailer", rec.ID, "u2", time.Now().UTC())
	require.NoError(t, err)
	_, err = s.GetRecord(ctx, "retailer", rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	n, err := s.CountRecords(ctx, "retailer")
	require.NoError(t, err)
	assert.Zero(t, n)

	restored, err := s.RestoreRecord(ctx, "retailer", rec.ID, "admin", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, store.RecordActive, restored.Status)
}

func TestMongoStoreLegacyCollections(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	id, err := s.InsertLegacy(ctx, "retailers", map[string]interface{}{"name": "ACME"})
	require.NoError(t, err)
	require.Len(t, id, 24)

	require.NoError(t, s.UpdateLegacy(ctx, "retailers", id, map[string]interface{}{"name": "Renamed"}))

	docs, err := s.ListLegacy(ctx, "retailers")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	// _id наружу отдаётся hex-строкой
	assert.Equal(t, id, docs[0]["_id"])
	assert.Equal(t, "Renamed", docs[0]["name"])

	require.NoError(t, s.DeleteLegacy(ctx, "retailers", id))
	assert.ErrorIs(t, s.DeleteLegacy(ctx, "retailers", id), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateLegacy(ctx, "retailers", "not-hex", nil), store.ErrNotFound)
}
