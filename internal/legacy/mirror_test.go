package legacy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestForModule(t *testing.T) {
	m, ok := ForModule("retailer")
	require.True(t, ok)
	assert.Equal(t, "retailers", m.Collection)

	_, ok = ForModule("warehouse")
	assert.False(t, ok)

	assert.Len(t, All(), 3)
}

func TestProjectAllowList(t *testing.T) {
	m, _ := ForModule("retailer")

	out := m.Project(map[string]interface{}{
		"name":           "ACME",
		"phone":          "111",
		"openingBalance": float64(100), // вне allow-list
		"active":         true,         // вне allow-list
	}, "u1")

	assert.Equal(t, map[string]interface{}{
		"name":      "ACME",
		"phone":     "111",
		"updatedBy": "u1",
	}, out)
}

func TestProjectPartialInput(t *testing.T) {
	m, _ := ForModule("bill")

	// частичный вход (patch) даёт частичный payload
	out := m.Project(map[string]interface{}{"status": "Paid"}, "u1")
	assert.Equal(t, map[string]interface{}{"status": "Paid", "updatedBy": "u1"}, out)

	// ничего проецируемого — пустой payload, без updatedBy
	out = m.Project(map[string]interface{}{"notes": "call later"}, "u1")
	assert.Empty(t, out)
}

func TestBackfillCanonicalForms(t *testing.T) {
	m, _ := ForModule("bill")
	when := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

	data := m.Backfill(map[string]interface{}{
		"_id":        "64f1b2c3d4e5f6a7b8c9d0e1",
		"billNumber": "B-001",
		"amount":     int32(500),
		"dueAmount":  int64(200),
		"paidAmount": nil, // nil не переносится
		"billDate":   primitive.NewDateTimeFromTime(when),
		"status":     "Unpaid",
		"createdBy":  "u1", // вне allow-list зеркала
	})

	assert.Equal(t, map[string]interface{}{
		"billNumber": "B-001",
		"amount":     float64(500),
		"dueAmount":  float64(200),
		"billDate":   "2026-01-11T00:00:00Z",
		"status":     "Unpaid",
	}, data)
}

func TestBackfillNativeTime(t *testing.T) {
	m, _ := ForModule("bill")
	loc := time.FixedZone("IST", 5*3600+1800)

	data := m.Backfill(map[string]interface{}{
		"billDate": time.Date(2026, 1, 11, 5, 30, 0, 0, loc),
	})
	assert.Equal(t, "2026-01-11T00:00:00Z", data["billDate"])
}
