package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedCatalog(t *testing.T) {
	catalog, err := LoadSeedCatalog()
	require.NoError(t, err)
	require.Len(t, catalog, 3)

	// стабильный порядок по ключу
	assert.Equal(t, "bill", catalog[0].Key)
	assert.Equal(t, "product", catalog[1].Key)
	assert.Equal(t, "retailer", catalog[2].Key)

	for _, m := range catalog {
		assert.Equal(t, int64(1), m.Version, m.Key)
		assert.Empty(t, Lint(m), m.Key)
		for _, f := range m.Fields {
			assert.NotEmpty(t, f.VisibleContexts, "%s.%s", m.Key, f.Key)
			assert.NotEmpty(t, f.AllowedRoles, "%s.%s", m.Key, f.Key)
			assert.NotZero(t, f.Order, "%s.%s", m.Key, f.Key)
		}
	}

	bill := catalog[0]
	num, ok := bill.FieldByKey("billNumber")
	require.True(t, ok)
	assert.Equal(t, "Bill Number", num.Label)
	assert.True(t, num.Required)
	assert.True(t, num.Unique)

	products, ok := bill.FieldByKey("products")
	require.True(t, ok)
	assert.Equal(t, TypeRelation, products.Type)
	assert.Equal(t, "product", products.Ref)
	assert.True(t, products.Multi)

	// notes видно только в форме
	notes, ok := bill.FieldByKey("notes")
	require.True(t, ok)
	assert.Equal(t, []string{ContextForm}, notes.VisibleContexts)

	assert.Equal(t, []string{"manager"}, bill.Permissions[ActionDelete])
}

func TestLint(t *testing.T) {
	m := &Module{
		Key: "broken",
		Fields: []Field{
			{Key: "a", Type: TypeText, AllowedRoles: []string{"all"}},
			{Key: "a", Type: TypeText, AllowedRoles: []string{"all"}},
			{Key: "day", Type: TypeDropdown, AllowedRoles: []string{"all"}},
			{Key: "link", Type: TypeRelation, AllowedRoles: []string{"all"}},
			{Key: "x", Type: "geo", AllowedRoles: []string{"all"}},
			{Key: "secret", Type: TypeText},
			{Type: TypeText, AllowedRoles: []string{"all"}},
		},
	}

	issues := Lint(m)
	codes := make([]string, 0, len(issues))
	for _, it := range issues {
		codes = append(codes, it.Code)
	}
	assert.ElementsMatch(t, []string{
		"field_key_duplicate",
		"options_empty",
		"ref_empty",
		"type_unknown",
		"allowed_roles_empty",
		"field_key_empty",
	}, codes)

	assert.Empty(t, Lint(&Module{Key: "ok", Fields: NormalizeFields([]Field{
		{Key: "name", Type: TypeText},
	})}))

	empty := Lint(&Module{})
	require.Len(t, empty, 1)
	assert.Equal(t, "key_empty", empty[0].Code)
}
