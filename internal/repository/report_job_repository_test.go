package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-uemg/horas-api/internal/models"
)

func TestCreateReportJobDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	mock.ExpectExec("INSERT INTO report_jobs").WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{StudentID: "s1", Format: models.ReportFormatPDF}
	err := repo.Create(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindReportJobByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "format", "status", "progress", "result_path", "error_message", "created_at", "started_at", "finished_at"}).
		AddRow("j1", "s1", "pdf", "FINISHED", 100, "reports/j1.pdf", nil, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, format, status, progress, result_path, error_message, created_at, started_at, finished_at FROM report_jobs WHERE id = $1 LIMIT 1")).
		WithArgs("j1").
		WillReturnRows(rows)

	job, err := repo.FindByID(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	require.NotNil(t, job.ResultPath)
	assert.Equal(t, "reports/j1.pdf", *job.ResultPath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobLifecycleUpdates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec("UPDATE report_jobs SET status = 'PROCESSING'").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkProcessing(ctx, "j1", now))

	mock.ExpectExec("UPDATE report_jobs SET status = 'FINISHED'").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFinished(ctx, "j1", "reports/j1.pdf", now))

	mock.ExpectExec("UPDATE report_jobs SET status = 'FAILED'").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFailed(ctx, "j1", "render error", now))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFinishedBeforeSkipsEmptyPaths(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	rows := sqlmock.NewRows([]string{"coalesce"}).AddRow("reports/j1.pdf").AddRow("")
	mock.ExpectQuery("DELETE FROM report_jobs WHERE status IN").WillReturnRows(rows)

	paths, err := repo.DeleteFinishedBefore(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/j1.pdf"}, paths)
	assert.NoError(t, mock.ExpectationsWereMet())
}
