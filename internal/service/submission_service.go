package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/internal/rules"
	"github.com/sistema-uemg/horas-api/pkg/config"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
)

type submissionActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	FindByID(ctx context.Context, id string) (*models.ActivityDetail, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error)
	Delete(ctx context.Context, id string) error
}

// CertificateStore abstracts where proof-of-participation files live. The
// local backend returns a relative reference, Cloudinary a delivery URL.
type CertificateStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// SubmitInput is one candidate submission with its certificate stream.
type SubmitInput struct {
	StudentID   string
	Form        dto.SubmitActivityRequest
	Filename    string
	Certificate io.Reader
}

// SubmissionService runs the submission pipeline: evaluate the candidate
// against the student's ledger, store the certificate only once accepted,
// then persist the pending activity.
type SubmissionService struct {
	activities submissionActivityRepository
	ledger     *LedgerService
	store      CertificateStore
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	rules      config.RulesConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(activities submissionActivityRepository, ledger *LedgerService, store CertificateStore, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, rulesCfg config.RulesConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		activities: activities,
		ledger:     ledger,
		store:      store,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		rules:      rulesCfg,
		locks:      make(map[string]*sync.Mutex),
	}
}

// studentLock serialises the read-evaluate-write cycle per student so two
// concurrent submissions cannot both pass the cap check.
func (s *SubmissionService) studentLock(studentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[studentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[studentID] = lock
	}
	return lock
}

// Submit evaluates and, when accepted, persists one activity submission.
func (s *SubmissionService) Submit(ctx context.Context, input SubmitInput) (*dto.SubmissionResult, error) {
	if err := s.validator.Struct(input.Form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if input.Certificate == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "certificate file is required")
	}

	lock := s.studentLock(input.StudentID)
	lock.Lock()
	defer lock.Unlock()

	ledger, catalog, err := s.ledger.Build(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}

	evaluator := rules.Evaluator{}
	if s.rules.ExternalRatioEnabled {
		evaluator.ExternalRatio = &rules.ExternalRatioRule{MinRatio: s.rules.ExternalMinRatio}
	}

	candidate := rules.Submission{
		CategoryName: input.Form.CategoryName,
		TypeName:     input.Form.TypeName,
		Hours:        input.Form.Hours,
		External:     input.Form.External,
	}
	decision := evaluator.Evaluate(candidate, ledger, catalog)
	if s.metrics != nil {
		s.metrics.RecordSubmission(string(decision.Kind))
	}

	switch decision.Kind {
	case rules.DecisionRejected:
		if s.metrics != nil {
			s.metrics.RecordRejection(string(decision.Reason))
		}
		return nil, rejectionError(decision.Reason)
	case rules.DecisionPartiallyCapped:
		return &dto.SubmissionResult{
			Decision:              string(decision.Kind),
			MaxAdditionalRawHours: decision.MaxAdditionalRawHours,
		}, nil
	}

	// Accepted: only now does the certificate get stored, so rejected
	// submissions never leave orphan files behind.
	activityType, _ := catalog.Type(input.Form.CategoryName, input.Form.TypeName)
	activityID := uuid.NewString()
	ref, err := s.store.Save(ctx, certificateName(activityID, input.Filename), input.Certificate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to store certificate")
	}

	activity := &models.Activity{
		ID:             activityID,
		StudentID:      input.StudentID,
		TypeID:         activityType.ID,
		Description:    input.Form.Description,
		Hours:          input.Form.Hours,
		External:       input.Form.External,
		Status:         models.StatusPending,
		CertificateRef: ref,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		// Compensate the upload so storage and database stay consistent.
		if delErr := s.store.Delete(ctx, ref); delErr != nil {
			s.logger.Error("failed to remove orphan certificate", zap.String("ref", ref), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to persist activity")
	}

	s.ledger.InvalidateDashboard(ctx, input.StudentID)
	s.logger.Info("activity submitted",
		zap.String("activity_id", activity.ID),
		zap.String("student_id", input.StudentID),
		zap.Float64("hours", activity.Hours),
		zap.Float64("credited_hours", decision.CreditedHours))

	detail, err := s.activities.FindByID(ctx, activity.ID)
	if err != nil {
		// The row exists; fall back to the bare record.
		detail = &models.ActivityDetail{Activity: *activity}
	}
	return &dto.SubmissionResult{
		Decision:      string(decision.Kind),
		CreditedHours: decision.CreditedHours,
		Activity:      detail,
	}, nil
}

// List returns activities matching the filter.
func (s *SubmissionService) List(ctx context.Context, filter models.ActivityFilter) (*dto.ActivityListResponse, error) {
	activities, total, err := s.activities.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to list activities")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &dto.ActivityListResponse{
		Activities: activities,
		Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total},
	}, nil
}

// Get returns one activity, enforcing that students only see their own.
func (s *SubmissionService) Get(ctx context.Context, requester *models.User, activityID string) (*models.ActivityDetail, error) {
	detail, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to load activity")
	}
	if requester.Role == models.RoleStudent && detail.StudentID != requester.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "activity belongs to another student")
	}
	return detail, nil
}

// Delete removes a student's own pending activity and its certificate.
// Reviewed activities are part of the academic record and stay.
func (s *SubmissionService) Delete(ctx context.Context, requester *models.User, activityID string) error {
	detail, err := s.Get(ctx, requester, activityID)
	if err != nil {
		return err
	}
	if detail.Status != models.StatusPending {
		return appErrors.Clone(appErrors.ErrConflict, "only pending activities can be removed")
	}

	lock := s.studentLock(detail.StudentID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.activities.Delete(ctx, activityID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to delete activity")
	}
	if err := s.store.Delete(ctx, detail.CertificateRef); err != nil {
		s.logger.Warn("failed to remove certificate of deleted activity", zap.String("ref", detail.CertificateRef), zap.Error(err))
	}
	s.ledger.InvalidateDashboard(ctx, detail.StudentID)
	return nil
}

func rejectionError(reason rules.RejectReason) *appErrors.Error {
	switch reason {
	case rules.ReasonInvalidCategoryOrType:
		return appErrors.ErrInvalidCategoryOrType
	case rules.ReasonInvalidHours:
		return appErrors.ErrInvalidHours
	case rules.ReasonCategoryLimitReached:
		return appErrors.ErrCategoryLimitReached
	case rules.ReasonTypeLimitReached:
		return appErrors.ErrTypeLimitReached
	case rules.ReasonNoCreditableRoom:
		return appErrors.ErrNoCreditableRoom
	case rules.ReasonExternalRatioViolated:
		return appErrors.ErrExternalRatioViolated
	default:
		return appErrors.ErrInternal
	}
}

func certificateName(activityID, original string) string {
	ext := filepath.Ext(original)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s%s", time.Now().UTC().Format("2006/01"), activityID, ext)
}
