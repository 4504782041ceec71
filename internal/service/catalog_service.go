package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/internal/rules"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
)

type catalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListActivityTypes(ctx context.Context) ([]models.ActivityType, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	FindCategoryByID(ctx context.Context, id string) (*models.Category, error)
	CreateActivityType(ctx context.Context, t *models.ActivityType) error
	UpdateActivityType(ctx context.Context, t *models.ActivityType) error
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const catalogCacheKey = "catalog:snapshot"

type catalogSnapshot struct {
	Categories []models.Category     `json:"categories"`
	Types      []models.ActivityType `json:"types"`
}

// CatalogService serves the rule table that the evaluator runs against.
// Reads go through a short-lived cache; writes invalidate it so rule
// changes apply to the next submission.
type CatalogService struct {
	repo      catalogRepository
	cache     cacheStore
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo catalogRepository, cache cacheStore, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &CatalogService{repo: repo, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// Snapshot returns the current rule catalog. Evaluation must not run
// against a guessed catalog, so any load failure surfaces as a lookup
// error instead of an empty table.
func (s *CatalogService) Snapshot(ctx context.Context) (*rules.Catalog, error) {
	var snap catalogSnapshot
	if s.cache != nil {
		if err := s.cache.Get(ctx, catalogCacheKey, &snap); err == nil {
			return rules.NewCatalog(snap.Categories, snap.Types), nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to load categories")
	}
	types, err := s.repo.ListActivityTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailure.Code, appErrors.ErrLookupFailure.Status, "failed to load activity types")
	}

	snap = catalogSnapshot{Categories: categories, Types: types}
	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, snap, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return rules.NewCatalog(categories, types), nil
}

// Overview returns categories with their activity types for the
// submission form.
func (s *CatalogService) Overview(ctx context.Context) ([]dto.CategoryWithTypes, error) {
	catalog, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	categories := catalog.Categories()
	out := make([]dto.CategoryWithTypes, 0, len(categories))
	for _, cat := range categories {
		entry := dto.CategoryWithTypes{Category: cat, Types: []models.ActivityType{}}
		for _, t := range catalog.TypesOf(cat.Name) {
			entry.Types = append(entry.Types, t)
		}
		out = append(out, entry)
	}
	return out, nil
}

// CreateCategory adds a category to the rule table.
func (s *CatalogService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}

	category := &models.Category{Name: req.Name, HourLimit: req.HourLimit}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to create category")
	}
	s.invalidate(ctx)
	return category, nil
}

// UpdateCategory changes a category's name or hour limit.
func (s *CatalogService) UpdateCategory(ctx context.Context, id string, req dto.UpdateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}

	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
	}
	category.Name = req.Name
	category.HourLimit = req.HourLimit
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to update category")
	}
	s.invalidate(ctx)
	return category, nil
}

// CreateActivityType adds an activity type to a category.
func (s *CatalogService) CreateActivityType(ctx context.Context, req dto.CreateActivityTypeRequest) (*models.ActivityType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity type payload")
	}

	if _, err := s.repo.FindCategoryByID(ctx, req.CategoryID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
	}

	t := &models.ActivityType{
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		CreditFactor: req.CreditFactor,
		MaxHours:     req.MaxHours,
	}
	if err := s.repo.CreateActivityType(ctx, t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to create activity type")
	}
	s.invalidate(ctx)
	return t, nil
}

// UpdateActivityType changes an activity type's rule parameters.
func (s *CatalogService) UpdateActivityType(ctx context.Context, id string, req dto.UpdateActivityTypeRequest) (*models.ActivityType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity type payload")
	}

	catalog, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := catalog.TypeByID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity type not found")
	}

	t := entry.Type
	t.Name = req.Name
	t.CreditFactor = req.CreditFactor
	t.MaxHours = req.MaxHours
	if err := s.repo.UpdateActivityType(ctx, &t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to update activity type")
	}
	s.invalidate(ctx)
	return &t, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
	// Rule changes shift every student's remaining room.
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
