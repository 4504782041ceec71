package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-uemg/horas-api/internal/models"
)

func TestCatalogLookups(t *testing.T) {
	c := testCatalog()

	cat, ok := c.Category("Pesquisa")
	require.True(t, ok)
	assert.InDelta(t, 90.0, cat.HourLimit, 1e-9)

	typ, ok := c.Type("Pesquisa", "Defesas de TCC")
	require.True(t, ok)
	assert.InDelta(t, 0.5, typ.CreditFactor, 1e-9)
	assert.InDelta(t, 3.0, typ.MaxHours, 1e-9)

	_, ok = c.Category("Esportes")
	assert.False(t, ok)
	_, ok = c.Type("Pesquisa", "Monitoria")
	assert.False(t, ok)
}

func TestCatalogTypeByID(t *testing.T) {
	c := testCatalog()

	entry, ok := c.TypeByID("type-tcc")
	require.True(t, ok)
	assert.Equal(t, "Pesquisa", entry.Category.Name)
	assert.Equal(t, "Defesas de TCC", entry.Type.Name)

	_, ok = c.TypeByID("type-missing")
	assert.False(t, ok)
}

func TestCatalogSkipsOrphanTypes(t *testing.T) {
	c := NewCatalog(
		[]models.Category{{ID: "cat-1", Name: "Extensão", HourLimit: 90}},
		[]models.ActivityType{
			{ID: "type-1", CategoryID: "cat-1", Name: "Voluntariado", CreditFactor: 1, MaxHours: 30},
			{ID: "type-2", CategoryID: "cat-missing", Name: "Órfão", CreditFactor: 1, MaxHours: 10},
		},
	)

	_, ok := c.TypeByID("type-1")
	assert.True(t, ok)
	_, ok = c.TypeByID("type-2")
	assert.False(t, ok)
}

func TestCatalogCategoriesSorted(t *testing.T) {
	c := testCatalog()

	cats := c.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, "Ensino", cats[0].Name)
	assert.Equal(t, "Pesquisa", cats[1].Name)
}
