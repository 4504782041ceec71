package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/internal/rules"
	"github.com/sistema-uemg/horas-api/pkg/config"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
)

type ledgerActivityRepository interface {
	ListByStudent(ctx context.Context, studentID string, statuses []models.ActivityStatus) ([]models.ActivityDetail, error)
}

const dashboardCacheTTL = 5 * time.Minute

// LedgerService rebuilds the per-student credited-hours projection from the
// activity history. Nothing here is persisted; the ledger is recomputed on
// every evaluation so it always reflects the current activity set.
type LedgerService struct {
	activities ledgerActivityRepository
	catalog    *CatalogService
	cache      cacheStore
	logger     *zap.Logger
	rules      config.RulesConfig
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(activities ledgerActivityRepository, catalog *CatalogService, cache cacheStore, logger *zap.Logger, rulesCfg config.RulesConfig) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{activities: activities, catalog: catalog, cache: cache, logger: logger, rules: rulesCfg}
}

// CountedStatuses returns the activity statuses that consume cap room.
// Approved always counts, Rejected never does, and Pending follows the
// institution's policy.
func (s *LedgerService) CountedStatuses() []models.ActivityStatus {
	if s.rules.CountPending {
		return []models.ActivityStatus{models.StatusPending, models.StatusApproved}
	}
	return []models.ActivityStatus{models.StatusApproved}
}

// Build loads the counted activities of one student and folds them into a
// ledger using the current catalog. Fails closed: an error here means the
// caller must not evaluate.
func (s *LedgerService) Build(ctx context.Context, studentID string) (*rules.Ledger, *rules.Catalog, error) {
	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	activities, err := s.activities.ListByStudent(ctx, studentID, s.CountedStatuses())
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to load activity history")
	}

	ledger := rules.NewLedger()
	for _, a := range activities {
		entry, ok := catalog.TypeByID(a.TypeID)
		if !ok {
			// A persisted activity referencing an unknown type means the
			// catalog load is inconsistent; evaluating against a partial
			// ledger could over-credit.
			s.logger.Error("activity references unknown type", zap.String("activity_id", a.ID), zap.String("type_id", a.TypeID))
			return nil, nil, appErrors.Clone(appErrors.ErrLookupFailure, "activity references unknown type")
		}
		ledger.Add(entry.Category.Name, entry.Type.Name, a.Hours*entry.Type.CreditFactor, a.External)
	}
	return ledger, catalog, nil
}

// Dashboard summarises a student's progress toward the course target.
func (s *LedgerService) Dashboard(ctx context.Context, studentID string) (*dto.Dashboard, error) {
	cacheKey := "dashboard:" + studentID
	if s.cache != nil {
		var cached dto.Dashboard
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.activities.ListByStudent(ctx, studentID, []models.ActivityStatus{models.StatusPending, models.StatusApproved, models.StatusRejected})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to load activity history")
	}

	counted := make(map[models.ActivityStatus]bool)
	for _, st := range s.CountedStatuses() {
		counted[st] = true
	}

	ledger := rules.NewLedger()
	var counts dto.DashboardStatusCounts
	for _, a := range all {
		switch a.Status {
		case models.StatusPending:
			counts.Pending++
		case models.StatusApproved:
			counts.Approved++
		case models.StatusRejected:
			counts.Rejected++
		}
		if !counted[a.Status] {
			continue
		}
		entry, ok := catalog.TypeByID(a.TypeID)
		if !ok {
			s.logger.Error("activity references unknown type", zap.String("activity_id", a.ID), zap.String("type_id", a.TypeID))
			return nil, appErrors.Clone(appErrors.ErrLookupFailure, "activity references unknown type")
		}
		ledger.Add(entry.Category.Name, entry.Type.Name, a.Hours*entry.Type.CreditFactor, a.External)
	}

	dashboard := &dto.Dashboard{
		StudentID:     studentID,
		Categories:    make([]dto.DashboardCategory, 0),
		StatusCounts:  counts,
		InternalHours: ledger.InternalTotal(),
		ExternalHours: ledger.ExternalTotal(),
		TotalCredited: ledger.GrandTotal(),
		TargetHours:   s.rules.TotalHoursTarget,
	}
	if remaining := dashboard.TargetHours - dashboard.TotalCredited; remaining > 0 {
		dashboard.RemainingHours = remaining
	}

	for _, cat := range catalog.Categories() {
		summary := dto.DashboardCategory{
			CategoryID:    cat.ID,
			CategoryName:  cat.Name,
			HourLimit:     cat.HourLimit,
			CreditedHours: ledger.CategoryTotal(cat.Name),
			Types:         make([]dto.DashboardType, 0),
		}
		if room := cat.HourLimit - summary.CreditedHours; room > 0 {
			summary.RemainingRoom = room
		}
		for _, t := range catalog.TypesOf(cat.Name) {
			line := dto.DashboardType{
				TypeID:        t.ID,
				TypeName:      t.Name,
				CreditFactor:  t.CreditFactor,
				MaxHours:      t.MaxHours,
				CreditedHours: ledger.TypeTotal(cat.Name, t.Name),
			}
			if room := t.MaxHours - line.CreditedHours; room > 0 {
				line.RemainingRoom = room
			}
			summary.Types = append(summary.Types, line)
		}
		dashboard.Categories = append(dashboard.Categories, summary)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, dashboard, dashboardCacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return dashboard, nil
}

// InvalidateDashboard drops a student's cached dashboard after their
// activity set changes.
func (s *LedgerService) InvalidateDashboard(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "dashboard:"+studentID); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}
