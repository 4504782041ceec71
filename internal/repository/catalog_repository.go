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

// CatalogRepository provides database access to the rule table: categories
// and the activity types inside them.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCategories returns all categories ordered by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, name, hour_limit, created_at, updated_at FROM categories ORDER BY name`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListActivityTypes returns all activity types ordered by category and name.
func (r *CatalogRepository) ListActivityTypes(ctx context.Context) ([]models.ActivityType, error) {
	const query = `SELECT id, category_id, name, credit_factor, max_hours, created_at, updated_at FROM activity_types ORDER BY category_id, name`
	var types []models.ActivityType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list activity types: %w", err)
	}
	return types, nil
}

// FindCategoryByID returns one category.
func (r *CatalogRepository) FindCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	const query = `SELECT id, name, hour_limit, created_at, updated_at FROM categories WHERE id = $1 LIMIT 1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return &category, nil
}

// CreateCategory inserts a new category.
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now

	const query = `INSERT INTO categories (id, name, hour_limit, created_at, updated_at) VALUES (:id, :name, :hour_limit, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// UpdateCategory updates a category's name and hour limit.
func (r *CatalogRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET name = :name, hour_limit = :hour_limit, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// CreateActivityType inserts a new activity type.
func (r *CatalogRepository) CreateActivityType(ctx context.Context, t *models.ActivityType) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	const query = `INSERT INTO activity_types (id, category_id, name, credit_factor, max_hours, created_at, updated_at) VALUES (:id, :category_id, :name, :credit_factor, :max_hours, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("create activity type: %w", err)
	}
	return nil
}

// UpdateActivityType updates the mutable fields of an activity type.
func (r *CatalogRepository) UpdateActivityType(ctx context.Context, t *models.ActivityType) error {
	t.UpdatedAt = time.Now().UTC()
	const query = `UPDATE activity_types SET name = :name, credit_factor = :credit_factor, max_hours = :max_hours, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("update activity type: %w", err)
	}
	return nil
}
