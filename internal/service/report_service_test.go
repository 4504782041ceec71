package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/pkg/config"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
	"github.com/sistema-uemg/horas-api/pkg/storage"
)

type mockReportJobRepo struct {
	mu   sync.Mutex
	jobs map[string]models.ReportJob
}

func newMockReportJobRepo() *mockReportJobRepo {
	return &mockReportJobRepo{jobs: make(map[string]models.ReportJob)}
}

func (m *mockReportJobRepo) Create(ctx context.Context, job *models.ReportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = "j1"
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	job.CreatedAt = time.Now().UTC()
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockReportJobRepo) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}

func (m *mockReportJobRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	job.Status = models.ReportStatusProcessing
	job.Progress = 10
	job.StartedAt = &startedAt
	m.jobs[id] = job
	return nil
}

func (m *mockReportJobRepo) MarkFinished(ctx context.Context, id, resultPath string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	job.Status = models.ReportStatusFinished
	job.Progress = 100
	job.ResultPath = &resultPath
	job.FinishedAt = &finishedAt
	m.jobs[id] = job
	return nil
}

func (m *mockReportJobRepo) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	job.Status = models.ReportStatusFailed
	job.ErrorMessage = &message
	job.FinishedAt = &finishedAt
	m.jobs[id] = job
	return nil
}

func (m *mockReportJobRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	return nil, nil
}

func reportFixture(t *testing.T) (*ReportService, *mockReportJobRepo, *mockActivityRepo) {
	userRepo := newMockUserRepo()
	userRepo.users["s1"] = models.User{
		ID: "s1", Email: "aluno@uemg.br", FullName: "Aluno Teste",
		Matricula: "20230101", Turno: "noturno", SemestreEntrada: "2023/1",
		Role: models.RoleStudent, Active: true,
	}

	activityRepo := newMockActivityRepo()
	activityRepo.stored["a1"] = models.ActivityDetail{Activity: models.Activity{
		ID: "a1", StudentID: "s1", TypeID: "type-artigos", Hours: 8, Status: models.StatusApproved,
	}}
	activityRepo.stored["a2"] = models.ActivityDetail{Activity: models.Activity{
		ID: "a2", StudentID: "s1", TypeID: "type-tcc", Hours: 4, Status: models.StatusPending,
	}}

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSigner("report-secret", time.Hour)

	jobRepo := newMockReportJobRepo()
	catalog := NewCatalogService(seedCatalogRepo(), nil, nil, nil, time.Minute)
	svc := NewReportService(jobRepo, userRepo, activityRepo, catalog, store, signer, nil, nil, config.ReportsConfig{
		WorkerConcurrency: 1,
		WorkerRetries:     1,
		CleanupInterval:   time.Hour,
		SignedURLTTL:      time.Hour,
	}, 545)
	return svc, jobRepo, activityRepo
}

func waitForJob(t *testing.T, repo *mockReportJobRepo, id string) models.ReportJob {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("report job %s did not finish in time", id)
		case <-time.After(20 * time.Millisecond):
		}
		job, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		if job.Status == models.ReportStatusFinished || job.Status == models.ReportStatusFailed {
			return *job
		}
	}
}

func TestReportPDFRendersFromApprovedActivities(t *testing.T) {
	svc, jobRepo, _ := reportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Enqueue(ctx, "s1", models.ReportFormatPDF)
	require.NoError(t, err)

	finished := waitForJob(t, jobRepo, job.ID)
	require.Equal(t, models.ReportStatusFinished, finished.Status)
	require.NotNil(t, finished.ResultPath)

	requester := &models.User{ID: "s1", Role: models.RoleStudent}
	status, err := svc.Status(ctx, requester, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, status.Progress)
	assert.NotEmpty(t, status.DownloadURL)
	require.NotNil(t, status.ExpiresAt)
}

func TestReportXLSXRenders(t *testing.T) {
	svc, jobRepo, _ := reportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Enqueue(ctx, "s1", models.ReportFormatXLSX)
	require.NoError(t, err)

	finished := waitForJob(t, jobRepo, job.ID)
	assert.Equal(t, models.ReportStatusFinished, finished.Status)
}

func TestReportStatusHidesOtherStudents(t *testing.T) {
	svc, jobRepo, _ := reportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Enqueue(ctx, "s1", models.ReportFormatPDF)
	require.NoError(t, err)
	waitForJob(t, jobRepo, job.ID)

	other := &models.User{ID: "s2", Role: models.RoleStudent}
	_, err = svc.Status(ctx, other, job.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	secretaria := &models.User{ID: "sec1", Role: models.RoleSecretaria}
	_, err = svc.Status(ctx, secretaria, job.ID)
	assert.NoError(t, err)
}

func TestReportDownloadRejectsBadToken(t *testing.T) {
	svc, _, _ := reportFixture(t)

	_, _, err := svc.Download(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestReportRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := reportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	_, err := svc.Enqueue(ctx, "s1", models.ReportFormat("docx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
