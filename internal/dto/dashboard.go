package dto

// DashboardType is the per-activity-type progress line.
type DashboardType struct {
	TypeID        string  `json:"type_id"`
	TypeName      string  `json:"type_name"`
	CreditFactor  float64 `json:"credit_factor"`
	MaxHours      float64 `json:"max_hours"`
	CreditedHours float64 `json:"credited_hours"`
	RemainingRoom float64 `json:"remaining_room"`
}

// DashboardCategory aggregates one category's progress toward its cap.
type DashboardCategory struct {
	CategoryID    string          `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	HourLimit     float64         `json:"hour_limit"`
	CreditedHours float64         `json:"credited_hours"`
	RemainingRoom float64         `json:"remaining_room"`
	Types         []DashboardType `json:"types"`
}

// DashboardStatusCounts breaks the activity list down by review status.
type DashboardStatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Dashboard is the student progress summary.
type Dashboard struct {
	StudentID      string                `json:"student_id"`
	Categories     []DashboardCategory   `json:"categories"`
	StatusCounts   DashboardStatusCounts `json:"status_counts"`
	InternalHours  float64               `json:"internal_hours"`
	ExternalHours  float64               `json:"external_hours"`
	TotalCredited  float64               `json:"total_credited"`
	TargetHours    float64               `json:"target_hours"`
	RemainingHours float64               `json:"remaining_hours"`
}
