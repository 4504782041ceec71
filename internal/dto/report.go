package dto

import (
	"time"

	"github.com/sistema-uemg/horas-api/internal/models"
)

// CreateReportRequest queues a report rendering job.
type CreateReportRequest struct {
	Format models.ReportFormat `json:"format" validate:"required,oneof=pdf xlsx"`
}

// ReportJobStatus is the polling view of a report job. DownloadURL is set
// once the artifact is rendered and remains valid until it expires.
type ReportJobStatus struct {
	ID           string              `json:"id"`
	Format       models.ReportFormat `json:"format"`
	Status       models.ReportStatus `json:"status"`
	Progress     int                 `json:"progress"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	DownloadURL  string              `json:"download_url,omitempty"`
	ExpiresAt    *time.Time          `json:"expires_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}
