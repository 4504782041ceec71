package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/models"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
)

type reviewActivityRepository interface {
	FindByID(ctx context.Context, id string) (*models.ActivityDetail, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ActivityStatus, reviewerID string, comment *string, reviewedAt time.Time) (bool, error)
}

// ReviewService drives the secretaria review queue.
type ReviewService struct {
	activities reviewActivityRepository
	ledger     *LedgerService
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
}

// NewReviewService constructs a ReviewService.
func NewReviewService(activities reviewActivityRepository, ledger *LedgerService, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{activities: activities, ledger: ledger, validator: validate, logger: logger, metrics: metrics}
}

// Queue lists activities awaiting review.
func (s *ReviewService) Queue(ctx context.Context, filter models.ActivityFilter) (*dto.ActivityListResponse, error) {
	if filter.Status == nil {
		pending := models.StatusPending
		filter.Status = &pending
	}

	activities, total, err := s.activities.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to list review queue")
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

// Approve marks a pending activity as approved.
func (s *ReviewService) Approve(ctx context.Context, reviewerID, activityID string, req dto.ReviewRequest) (*models.ActivityDetail, error) {
	return s.review(ctx, reviewerID, activityID, models.StatusApproved, req)
}

// Reject marks a pending activity as rejected. A comment is required so
// the student knows what to fix.
func (s *ReviewService) Reject(ctx context.Context, reviewerID, activityID string, req dto.ReviewRequest) (*models.ActivityDetail, error) {
	if strings.TrimSpace(req.Comment) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a comment is required when rejecting")
	}
	return s.review(ctx, reviewerID, activityID, models.StatusRejected, req)
}

func (s *ReviewService) review(ctx context.Context, reviewerID, activityID string, status models.ActivityStatus, req dto.ReviewRequest) (*models.ActivityDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	detail, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to load activity")
	}
	if detail.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "activity was already reviewed")
	}

	var comment *string
	if trimmed := strings.TrimSpace(req.Comment); trimmed != "" {
		comment = &trimmed
	}

	ok, err := s.activities.UpdateStatus(ctx, activityID, status, reviewerID, comment, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to record review")
	}
	if !ok {
		// Lost the race against another reviewer.
		return nil, appErrors.Clone(appErrors.ErrConflict, "activity was already reviewed")
	}

	s.ledger.InvalidateDashboard(ctx, detail.StudentID)
	if s.metrics != nil {
		s.metrics.RecordReview(string(status))
	}
	s.logger.Info("activity reviewed",
		zap.String("activity_id", activityID),
		zap.String("reviewer_id", reviewerID),
		zap.String("status", string(status)))

	return s.activities.FindByID(ctx, activityID)
}
