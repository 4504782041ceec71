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

func TestListCategories(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "hour_limit", "created_at", "updated_at"}).
		AddRow("c1", "Ensino", 90.0, now, now).
		AddRow("c2", "Pesquisa", 90.0, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, hour_limit, created_at, updated_at FROM categories ORDER BY name")).
		WillReturnRows(rows)

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Ensino", categories[0].Name)
	assert.InDelta(t, 90.0, categories[0].HourLimit, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActivityTypes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "category_id", "name", "credit_factor", "max_hours", "created_at", "updated_at"}).
		AddRow("t1", "c2", "Publicação de Artigos", 1.0, 10.0, now, now).
		AddRow("t2", "c2", "Defesas de TCC", 0.5, 3.0, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, category_id, name, credit_factor, max_hours, created_at, updated_at FROM activity_types ORDER BY category_id, name")).
		WillReturnRows(rows)

	types, err := repo.ListActivityTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.InDelta(t, 0.5, types[1].CreditFactor, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateActivityType(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec("INSERT INTO activity_types").WillReturnResult(sqlmock.NewResult(1, 1))

	at := &models.ActivityType{CategoryID: "c1", Name: "Monitoria", CreditFactor: 1, MaxHours: 60}
	err := repo.CreateActivityType(context.Background(), at)
	require.NoError(t, err)
	assert.NotEmpty(t, at.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec("UPDATE categories SET").WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateCategory(context.Background(), &models.Category{ID: "c1", Name: "Ensino", HourLimit: 100})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
