package rules

// TypeKey addresses one (category, activity type) bucket of the ledger.
type TypeKey struct {
	Category string
	Type     string
}

// Ledger is the derived per-student projection of credited hours: totals per
// (category, type) bucket, per category, and the internal/external split.
// It is recomputed from the activity history on every evaluation, never
// persisted, so it is always consistent with the current activity set.
type Ledger struct {
	byType     map[TypeKey]float64
	byCategory map[string]float64
	internal   float64
	external   float64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byType:     make(map[TypeKey]float64),
		byCategory: make(map[string]float64),
	}
}

// Add accumulates credited hours into the bucket for the given category and
// type names.
func (l *Ledger) Add(categoryName, typeName string, credited float64, external bool) {
	key := TypeKey{Category: normalize(categoryName), Type: normalize(typeName)}
	l.byType[key] += credited
	l.byCategory[key.Category] += credited
	if external {
		l.external += credited
	} else {
		l.internal += credited
	}
}

// CategoryTotal returns the credited hours recorded against a category.
func (l *Ledger) CategoryTotal(categoryName string) float64 {
	return l.byCategory[normalize(categoryName)]
}

// TypeTotal returns the credited hours recorded against one (category,
// type) bucket.
func (l *Ledger) TypeTotal(categoryName, typeName string) float64 {
	return l.byType[TypeKey{Category: normalize(categoryName), Type: normalize(typeName)}]
}

// InternalTotal returns the credited hours from internal activities.
func (l *Ledger) InternalTotal() float64 { return l.internal }

// ExternalTotal returns the credited hours from external activities.
func (l *Ledger) ExternalTotal() float64 { return l.external }

// GrandTotal returns all credited hours.
func (l *Ledger) GrandTotal() float64 { return l.internal + l.external }

// TypeTotals returns a copy of the per-bucket totals for reporting views.
func (l *Ledger) TypeTotals() map[TypeKey]float64 {
	out := make(map[TypeKey]float64, len(l.byType))
	for k, v := range l.byType {
		out[k] = v
	}
	return out
}

// CategoryTotals returns a copy of the per-category totals.
func (l *Ledger) CategoryTotals() map[string]float64 {
	out := make(map[string]float64, len(l.byCategory))
	for k, v := range l.byCategory {
		out[k] = v
	}
	return out
}
