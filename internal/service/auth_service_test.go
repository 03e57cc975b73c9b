package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

type mockAuthRepo struct {
	users               map[string]*models.User
	refreshTokens       map[string]*models.RefreshToken
	createRefreshErr    error
	revokeUserTokensErr error
	lastLoginUpdated    bool
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: map[string]*models.User{}, refreshTokens: map[string]*models.RefreshToken{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newTestAuthService(repo *mockAuthRepo, audit auditRecorder) *AuthService {
	return NewAuthService(repo, audit, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := newMockAuthRepo(&models.User{ID: "123", Name: "Admin", Email: "admin@example.com", PasswordHash: string(password), Role: models.RoleAdmin})
	audit := &recordingAudit{}
	svc := newTestAuthService(repo, audit)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "Admin@Example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	assert.True(t, repo.lastLoginUpdated)
	assert.Equal(t, []string{models.AuditActionLogin}, audit.actions())
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := newMockAuthRepo(&models.User{ID: "123", Email: "user@example.com", PasswordHash: string(password), Role: models.RoleLearner})
	svc := newTestAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterCreatesLearner(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newTestAuthService(repo, nil)

	res, err := svc.Register(context.Background(), models.RegisterRequest{Name: "Abebe", Email: "Abebe@Example.com", Password: "secret1"}, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleLearner, res.User.Role)
	assert.Equal(t, "abebe@example.com", res.User.Email)
	assert.NotEmpty(t, res.AccessToken)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, models.RoleLearner, claims.Role)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "1", Email: "taken@example.com"})
	svc := newTestAuthService(repo, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "Other", Email: "taken@example.com", Password: "secret1"}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "A", Email: "bad", Password: "1"}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	user := &models.User{ID: "u1", Email: "user@example.com", PasswordHash: "hash", Role: models.RoleLearner}
	repo := newMockAuthRepo(user)
	token := &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	repo.refreshTokens[token.Token] = token
	svc := newTestAuthService(repo, nil)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.refreshTokens["token"] = &models.RefreshToken{ID: "rt1", UserID: "owner", Token: "token"}
	svc := newTestAuthService(repo, nil)

	err := svc.Logout(context.Background(), "token", "intruder", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("old"), bcrypt.MinCost)
	user := &models.User{ID: "u1", PasswordHash: string(oldHash)}
	repo := newMockAuthRepo(user)
	svc := newTestAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEqual(t, string(oldHash), user.PasswordHash)
}

func TestValidateToken(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), nil)
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleAdmin}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.ValidateToken(token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
