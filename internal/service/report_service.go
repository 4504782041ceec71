package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/internal/rules"
	"github.com/sistema-uemg/horas-api/pkg/config"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
	"github.com/sistema-uemg/horas-api/pkg/export"
	"github.com/sistema-uemg/horas-api/pkg/jobs"
	"github.com/sistema-uemg/horas-api/pkg/storage"
)

type reportJobRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	MarkFinished(ctx context.Context, id, resultPath string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type reportUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ReportService renders the printable evaluation form asynchronously.
// Requests queue a job; workers build the form from the approved activity
// history and publish the artifact behind a signed URL.
type ReportService struct {
	repo       reportJobRepository
	users      reportUserRepository
	activities ledgerActivityRepository
	catalog    *CatalogService
	pdf        *export.FichaExporter
	xlsx       *export.XLSXExporter
	store      *storage.LocalStore
	signer     *storage.Signer
	queue      *jobs.Queue
	logger     *zap.Logger
	metrics    *MetricsService
	cfg        config.ReportsConfig
	target     float64
}

// NewReportService constructs a ReportService with its worker queue.
func NewReportService(repo reportJobRepository, users reportUserRepository, activities ledgerActivityRepository, catalog *CatalogService, store *storage.LocalStore, signer *storage.Signer, logger *zap.Logger, metrics *MetricsService, cfg config.ReportsConfig, target float64) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		repo:       repo,
		users:      users,
		activities: activities,
		catalog:    catalog,
		pdf:        export.NewFichaExporter(),
		xlsx:       export.NewXLSXExporter(),
		store:      store,
		signer:     signer,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		target:     target,
	}
	s.queue = jobs.NewQueue("reports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the report workers and the artifact cleanup loop.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.cleanupLoop(ctx)
}

// Stop drains the worker pool.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Enqueue creates a report job for the student and schedules it.
func (s *ReportService) Enqueue(ctx context.Context, studentID string, format models.ReportFormat) (*models.ReportJob, error) {
	if format != models.ReportFormatPDF && format != models.ReportFormatXLSX {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	job := &models.ReportJob{StudentID: studentID, Format: format}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(format)}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "queue unavailable", time.Now().UTC()); markErr != nil {
			s.logger.Error("failed to mark unqueued job", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule report job")
	}
	return job, nil
}

// Status reports job progress and, once rendered, a signed download URL.
func (s *ReportService) Status(ctx context.Context, requester *models.User, jobID string) (*dto.ReportJobStatus, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to load report job")
	}
	if requester.Role == models.RoleStudent && job.StudentID != requester.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another student")
	}

	status := &dto.ReportJobStatus{
		ID:           job.ID,
		Format:       job.Format,
		Status:       job.Status,
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
	}
	if job.Status == models.ReportStatusFinished && job.ResultPath != nil {
		token, expiresAt, err := s.signer.Sign(job.ID, *job.ResultPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		status.DownloadURL = "/api/v1/reports/download?token=" + token
		status.ExpiresAt = &expiresAt
	}
	return status, nil
}

// Download resolves a signed token into the rendered artifact.
func (s *ReportService) Download(ctx context.Context, token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Verify(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report artifact no longer available")
	}
	name := fmt.Sprintf("ficha-atividades-%s.%s", job.StudentID, job.Format)
	return file, name, nil
}

func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	now := time.Now().UTC()
	record, err := s.repo.FindByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", job.ID, err)
	}
	if err := s.repo.MarkProcessing(ctx, record.ID, now); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}

	payload, err := s.render(ctx, record)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordReportJob(string(record.Format), "failed")
		}
		if markErr := s.repo.MarkFailed(ctx, record.ID, err.Error(), time.Now().UTC()); markErr != nil {
			s.logger.Error("failed to mark report job failed", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return fmt.Errorf("render report %s: %w", record.ID, err)
	}

	resultPath := fmt.Sprintf("%s.%s", record.ID, record.Format)
	if _, err := s.store.Save(ctx, resultPath, bytes.NewReader(payload)); err != nil {
		if markErr := s.repo.MarkFailed(ctx, record.ID, "failed to store artifact", time.Now().UTC()); markErr != nil {
			s.logger.Error("failed to mark report job failed", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return fmt.Errorf("store report %s: %w", record.ID, err)
	}

	if err := s.repo.MarkFinished(ctx, record.ID, resultPath, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report job finished: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordReportJob(string(record.Format), "finished")
	}
	s.logger.Info("report rendered", zap.String("job_id", record.ID), zap.String("format", string(record.Format)))
	return nil
}

func (s *ReportService) render(ctx context.Context, job *models.ReportJob) ([]byte, error) {
	student, err := s.users.FindByID(ctx, job.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	// The official form only lists approved activities.
	activities, err := s.activities.ListByStudent(ctx, job.StudentID, []models.ActivityStatus{models.StatusApproved})
	if err != nil {
		return nil, fmt.Errorf("load approved activities: %w", err)
	}

	data := buildFicha(student, catalog, activities, s.target)
	switch job.Format {
	case models.ReportFormatPDF:
		return s.pdf.Render(data)
	case models.ReportFormatXLSX:
		return s.xlsx.Render(fichaSheets(data))
	default:
		return nil, fmt.Errorf("unsupported format %q", job.Format)
	}
}

// buildFicha folds approved activities into per-category sections with one
// row per activity type, matching the layout of the paper form.
func buildFicha(student *models.User, catalog *rules.Catalog, activities []models.ActivityDetail, target float64) export.FichaData {
	type bucket struct {
		raw      float64
		credited float64
	}
	perType := make(map[string]*bucket)
	for _, a := range activities {
		entry, ok := catalog.TypeByID(a.TypeID)
		if !ok {
			continue
		}
		b, ok := perType[a.TypeID]
		if !ok {
			b = &bucket{}
			perType[a.TypeID] = b
		}
		b.raw += a.Hours
		b.credited += a.Hours * entry.Type.CreditFactor
	}

	data := export.FichaData{
		Student: export.FichaStudent{
			Name:      student.FullName,
			Matricula: student.Matricula,
			Turno:     student.Turno,
			Semestre:  student.SemestreEntrada,
		},
		TargetHours: target,
	}
	for _, cat := range catalog.Categories() {
		section := export.FichaSection{Category: cat.Name, LimitHours: cat.HourLimit}
		for _, t := range catalog.TypesOf(cat.Name) {
			b, ok := perType[t.ID]
			if !ok {
				continue
			}
			section.Rows = append(section.Rows, export.FichaRow{
				TypeName:      t.Name,
				RawHours:      b.raw,
				CreditedHours: b.credited,
			})
			section.Subtotal += b.credited
		}
		// The category cap binds the subtotal even if history exceeds it.
		if section.Subtotal > cat.HourLimit {
			section.Subtotal = cat.HourLimit
		}
		data.Sections = append(data.Sections, section)
		data.TotalCredited += section.Subtotal
	}
	return data
}

func fichaSheets(data export.FichaData) []export.Sheet {
	detail := export.Sheet{
		Title:  "Atividades",
		Header: []string{"Categoria", "Tipo de Atividade", "Horas Brutas", "Horas Creditadas"},
	}
	summary := export.Sheet{
		Title:  "Resumo",
		Header: []string{"Categoria", "Limite de Horas", "Horas Creditadas"},
	}
	hours := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, section := range data.Sections {
		for _, row := range section.Rows {
			detail.Rows = append(detail.Rows, []string{section.Category, row.TypeName, hours(row.RawHours), hours(row.CreditedHours)})
		}
		summary.Rows = append(summary.Rows, []string{section.Category, hours(section.LimitHours), hours(section.Subtotal)})
	}
	summary.Rows = append(summary.Rows, []string{"Total", hours(data.TargetHours), hours(data.TotalCredited)})
	return []export.Sheet{detail, summary}
}

func (s *ReportService) cleanupLoop(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	retention := s.cfg.SignedURLTTL
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			paths, err := s.repo.DeleteFinishedBefore(ctx, cutoff)
			if err != nil {
				s.logger.Warn("report cleanup failed", zap.Error(err))
				continue
			}
			for _, path := range paths {
				if err := s.store.Delete(ctx, path); err != nil {
					s.logger.Warn("failed to remove expired report artifact", zap.String("path", path), zap.Error(err))
				}
			}
			if len(paths) > 0 {
				s.logger.Info("expired report artifacts removed", zap.Int("count", len(paths)))
			}
		}
	}
}
