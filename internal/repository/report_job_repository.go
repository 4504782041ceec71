package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sistema-uemg/horas-api/internal/models"
)

// ReportJobRepository persists background report job metadata.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository creates a new instance of ReportJobRepository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

// Create inserts a queued report job.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}

	const query = `INSERT INTO report_jobs (id, student_id, format, status, progress, created_at) VALUES (:id, :student_id, :format, :status, :progress, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns one report job.
func (r *ReportJobRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, student_id, format, status, progress, result_path, error_message, created_at, started_at, finished_at FROM report_jobs WHERE id = $1 LIMIT 1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report job by id: %w", err)
	}
	return &job, nil
}

// MarkProcessing flips a job into the PROCESSING state.
func (r *ReportJobRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = 'PROCESSING', progress = 10, started_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, startedAt); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}
	return nil
}

// MarkFinished records a successful render and its artifact location.
func (r *ReportJobRepository) MarkFinished(ctx context.Context, id, resultPath string, finishedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = 'FINISHED', progress = 100, result_path = $2, finished_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, resultPath, finishedAt); err != nil {
		return fmt.Errorf("mark report job finished: %w", err)
	}
	return nil
}

// MarkFailed records a failed render.
func (r *ReportJobRepository) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = 'FAILED', error_message = $2, finished_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, message, finishedAt); err != nil {
		return fmt.Errorf("mark report job failed: %w", err)
	}
	return nil
}

// DeleteFinishedBefore removes finished or failed jobs older than the
// cutoff and returns their artifact paths so the files can be removed too.
func (r *ReportJobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `DELETE FROM report_jobs WHERE status IN ('FINISHED', 'FAILED') AND created_at < $1 RETURNING COALESCE(result_path, '')`
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, query, cutoff); err != nil {
		return nil, fmt.Errorf("delete finished report jobs: %w", err)
	}
	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
