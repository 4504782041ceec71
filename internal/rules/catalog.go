package rules

import (
	"sort"
	"strings"

	"github.com/sistema-uemg/horas-api/internal/models"
)

// Catalog is an immutable snapshot of the institutional rule table:
// categories with aggregate hour limits and the activity types inside each
// one. Evaluation only reads it; loading and administration happen
// elsewhere.
type Catalog struct {
	categories map[string]models.Category
	types      map[string]map[string]models.ActivityType
	byTypeID   map[string]CatalogEntry
}

// CatalogEntry pairs an activity type with its owning category.
type CatalogEntry struct {
	Category models.Category
	Type     models.ActivityType
}

// NewCatalog indexes the given reference data. Types whose category is not
// present are skipped.
func NewCatalog(categories []models.Category, types []models.ActivityType) *Catalog {
	c := &Catalog{
		categories: make(map[string]models.Category, len(categories)),
		types:      make(map[string]map[string]models.ActivityType, len(categories)),
		byTypeID:   make(map[string]CatalogEntry, len(types)),
	}
	byID := make(map[string]models.Category, len(categories))
	for _, cat := range categories {
		key := normalize(cat.Name)
		c.categories[key] = cat
		c.types[key] = make(map[string]models.ActivityType)
		byID[cat.ID] = cat
	}
	for _, t := range types {
		cat, ok := byID[t.CategoryID]
		if !ok {
			continue
		}
		c.types[normalize(cat.Name)][normalize(t.Name)] = t
		c.byTypeID[t.ID] = CatalogEntry{Category: cat, Type: t}
	}
	return c
}

// Category looks up a category by name.
func (c *Catalog) Category(name string) (models.Category, bool) {
	cat, ok := c.categories[normalize(name)]
	return cat, ok
}

// Type looks up an activity type by category and type name.
func (c *Catalog) Type(categoryName, typeName string) (models.ActivityType, bool) {
	group, ok := c.types[normalize(categoryName)]
	if !ok {
		return models.ActivityType{}, false
	}
	t, ok := group[normalize(typeName)]
	return t, ok
}

// TypeByID resolves a persisted activity's type reference to its catalog
// entry.
func (c *Catalog) TypeByID(id string) (CatalogEntry, bool) {
	entry, ok := c.byTypeID[id]
	return entry, ok
}

// Categories returns the catalog's categories sorted by name.
func (c *Catalog) Categories() []models.Category {
	out := make([]models.Category, 0, len(c.categories))
	for _, cat := range c.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TypesOf returns a category's activity types sorted by name.
func (c *Catalog) TypesOf(categoryName string) []models.ActivityType {
	group, ok := c.types[normalize(categoryName)]
	if !ok {
		return nil
	}
	out := make([]models.ActivityType, 0, len(group))
	for _, t := range group {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
