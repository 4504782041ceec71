package models

import "time"

// Category is a top-level activity grouping with an aggregate hour cap
// across all of its activity types. Reference data maintained by
// administrators; evaluation never mutates it.
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	HourLimit float64   `db:"hour_limit" json:"hour_limit"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ActivityType is a specific kind of activity within a category.
// CreditFactor ("aproveitamento") is the fraction of raw hours actually
// credited, in (0,1]. MaxHours caps the credited hours for this type and is
// expressed in credited-hour units, not raw hours.
type ActivityType struct {
	ID           string    `db:"id" json:"id"`
	CategoryID   string    `db:"category_id" json:"category_id"`
	Name         string    `db:"name" json:"name"`
	CreditFactor float64   `db:"credit_factor" json:"credit_factor"`
	MaxHours     float64   `db:"max_hours" json:"max_hours"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
