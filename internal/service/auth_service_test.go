package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sistema-uemg/horas-api/internal/models"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
)

type mockUserRepo struct {
	users  map[string]models.User
	tokens map[string]models.RefreshToken
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]models.User), tokens: make(map[string]models.RefreshToken)}
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *mockUserRepo) FindByMatricula(ctx context.Context, matricula string) (*models.User, error) {
	for _, u := range m.users {
		if u.Matricula == matricula {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "u" + user.Matricula
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = *token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &rt, nil
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, rt := range m.tokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
			m.tokens[key] = rt
		}
	}
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for key, rt := range m.tokens {
		if rt.UserID == userID {
			rt.Revoked = true
			m.tokens[key] = rt
		}
	}
	return nil
}

func authFixture(t *testing.T) (*AuthService, *mockUserRepo) {
	repo := newMockUserRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["u1"] = models.User{
		ID:           "u1",
		Email:        "aluno@uemg.br",
		PasswordHash: string(hash),
		FullName:     "Aluno Teste",
		Matricula:    "20230101",
		Role:         models.RoleStudent,
		Active:       true,
	}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
	return svc, repo
}

func TestLoginSuccess(t *testing.T) {
	svc, repo := authFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "aluno@uemg.br", Password: "senha123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "20230101", resp.User.Matricula)
	assert.Len(t, repo.tokens, 1)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "aluno@uemg.br", Password: "errada"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, repo := authFixture(t)
	user := repo.users["u1"]
	user.Active = false
	repo.users["u1"] = user

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "aluno@uemg.br", Password: "senha123"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:     "aluno@uemg.br",
		Password:  "senha123",
		FullName:  "Outro Aluno",
		Matricula: "20230202",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRegisterCreatesStudent(t *testing.T) {
	svc, repo := authFixture(t)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:     "novo@uemg.br",
		Password:  "senha123",
		FullName:  "Novo Aluno",
		Matricula: "20230303",
		Turno:     "noturno",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)

	stored, err := repo.FindByEmail(context.Background(), "novo@uemg.br")
	require.NoError(t, err)
	assert.NotEqual(t, "senha123", stored.PasswordHash)
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, repo := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "aluno@uemg.br", Password: "senha123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	old := repo.tokens[login.RefreshToken]
	assert.True(t, old.Revoked)

	// The used token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, repo := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "aluno@uemg.br", Password: "senha123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u1"))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	err = svc.Logout(context.Background(), login.RefreshToken, "u2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
