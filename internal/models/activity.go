package models

import "time"

// ActivityStatus captures the review lifecycle of a submitted activity.
type ActivityStatus string

const (
	StatusPending  ActivityStatus = "PENDING"
	StatusApproved ActivityStatus = "APPROVED"
	StatusRejected ActivityStatus = "REJECTED"
)

// Activity is a persisted activity submission. Credited hours are never
// stored; they are recomputed from Hours and the type's credit factor so
// the two can't drift apart.
type Activity struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	TypeID         string         `db:"type_id" json:"type_id"`
	Description    string         `db:"description" json:"description"`
	Hours          float64        `db:"hours" json:"hours"`
	External       bool           `db:"external" json:"external"`
	Status         ActivityStatus `db:"status" json:"status"`
	ReviewComment  *string        `db:"review_comment" json:"review_comment,omitempty"`
	ReviewedBy     *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CertificateRef string         `db:"certificate_ref" json:"certificate_ref"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// ActivityDetail joins an activity with its catalog and student names for
// list views.
type ActivityDetail struct {
	Activity
	TypeName     string `db:"type_name" json:"type_name"`
	CategoryID   string `db:"category_id" json:"category_id"`
	CategoryName string `db:"category_name" json:"category_name"`
	StudentName  string `db:"student_name" json:"student_name"`
	Matricula    string `db:"matricula" json:"matricula"`
}

// ActivityFilter captures list criteria for activities.
type ActivityFilter struct {
	StudentID string
	Status    *ActivityStatus
	Search    string
	Page      int
	PageSize  int
}
