package dto

import "github.com/sistema-uemg/horas-api/internal/models"

// SubmitActivityRequest is the multipart form payload of a new submission.
// The certificate file arrives alongside it and is handled separately.
type SubmitActivityRequest struct {
	CategoryName string  `form:"category" validate:"required"`
	TypeName     string  `form:"type" validate:"required"`
	Description  string  `form:"description" validate:"required,max=500"`
	Hours        float64 `form:"hours" validate:"required"`
	External     bool    `form:"external"`
}

// SubmissionResult reports the evaluator verdict on a submission. Activity
// is set only when the submission was accepted and persisted.
type SubmissionResult struct {
	Decision              string                 `json:"decision"`
	CreditedHours         float64                `json:"credited_hours,omitempty"`
	MaxAdditionalRawHours float64                `json:"max_additional_raw_hours,omitempty"`
	Activity              *models.ActivityDetail `json:"activity,omitempty"`
}

// ReviewRequest carries a review verdict for one pending activity.
type ReviewRequest struct {
	Comment string `json:"comment" validate:"max=500"`
}

// ActivityListResponse pages through activities.
type ActivityListResponse struct {
	Activities []models.ActivityDetail `json:"activities"`
	Pagination models.Pagination       `json:"pagination"`
}
