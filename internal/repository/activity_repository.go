package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sistema-uemg/horas-api/internal/models"
)

// ActivityRepository provides database access for activity submissions.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityDetailColumns = `a.id, a.student_id, a.type_id, a.description, a.hours, a.external, a.status, a.review_comment, a.reviewed_by, a.reviewed_at, a.certificate_ref, a.created_at, a.updated_at, t.name AS type_name, c.id AS category_id, c.name AS category_name, u.full_name AS student_name, u.matricula AS matricula`

const activityDetailJoins = `FROM activities a
JOIN activity_types t ON t.id = a.type_id
JOIN categories c ON c.id = t.category_id
JOIN users u ON u.id = a.student_id`

// FindByID returns one activity with its catalog and student names.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.ActivityDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.id = $1 LIMIT 1", activityDetailColumns, activityDetailJoins)
	var detail models.ActivityDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find activity by id: %w", err)
	}
	return &detail, nil
}

// ListByStudent returns every activity of one student in the given
// statuses. The ledger is rebuilt from this list, so it is not paginated.
func (r *ActivityRepository) ListByStudent(ctx context.Context, studentID string, statuses []models.ActivityStatus) ([]models.ActivityDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.student_id = $1", activityDetailColumns, activityDetailJoins)
	args := []interface{}{studentID}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" AND a.status IN (%s)", strings.Join(placeholders, ", "))
	}
	query += " ORDER BY a.created_at"

	var activities []models.ActivityDetail
	if err := r.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, fmt.Errorf("list activities by student: %w", err)
	}
	return activities, nil
}

// List returns activities matching the filter with a total count, for the
// review queue and admin views.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error) {
	baseQuery := activityDetailJoins + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(t.name) LIKE $%d OR u.matricula LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY a.created_at DESC LIMIT %d OFFSET %d", activityDetailColumns, baseQuery, pageSize, offset)

	var activities []models.ActivityDetail
	if err := r.db.SelectContext(ctx, &activities, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	return activities, total, nil
}

// Create inserts a new activity submission.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now
	if activity.Status == "" {
		activity.Status = models.StatusPending
	}

	const query = `INSERT INTO activities (id, student_id, type_id, description, hours, external, status, certificate_ref, created_at, updated_at) VALUES (:id, :student_id, :type_id, :description, :hours, :external, :status, :certificate_ref, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// UpdateStatus records a review verdict. Only pending rows transition, so
// concurrent reviews of the same activity cannot both win.
func (r *ActivityRepository) UpdateStatus(ctx context.Context, id string, status models.ActivityStatus, reviewerID string, comment *string, reviewedAt time.Time) (bool, error) {
	const query = `UPDATE activities SET status = $2, reviewed_by = $3, review_comment = $4, reviewed_at = $5, updated_at = $5 WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, status, reviewerID, comment, reviewedAt)
	if err != nil {
		return false, fmt.Errorf("update activity status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update activity status: %w", err)
	}
	return affected > 0, nil
}

// Delete removes an activity row.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM activities WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}
