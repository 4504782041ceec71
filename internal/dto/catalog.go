package dto

import "github.com/sistema-uemg/horas-api/internal/models"

// CategoryWithTypes is the catalog view consumed by the submission form.
type CategoryWithTypes struct {
	models.Category
	Types []models.ActivityType `json:"types"`
}

// CreateCategoryRequest creates a new category in the rule table.
type CreateCategoryRequest struct {
	Name      string  `json:"name" validate:"required"`
	HourLimit float64 `json:"hour_limit" validate:"required,gt=0"`
}

// UpdateCategoryRequest changes a category's name or hour limit.
type UpdateCategoryRequest struct {
	Name      string  `json:"name" validate:"required"`
	HourLimit float64 `json:"hour_limit" validate:"required,gt=0"`
}

// CreateActivityTypeRequest adds an activity type to a category.
type CreateActivityTypeRequest struct {
	CategoryID   string  `json:"category_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	CreditFactor float64 `json:"credit_factor" validate:"required,gt=0,lte=1"`
	MaxHours     float64 `json:"max_hours" validate:"required,gt=0"`
}

// UpdateActivityTypeRequest changes an activity type's rule parameters.
type UpdateActivityTypeRequest struct {
	Name         string  `json:"name" validate:"required"`
	CreditFactor float64 `json:"credit_factor" validate:"required,gt=0,lte=1"`
	MaxHours     float64 `json:"max_hours" validate:"required,gt=0"`
}
