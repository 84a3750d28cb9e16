package auth

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/skincoach/internal/lib/jwt"
	"github.com/magabrotheeeer/skincoach/internal/lib/password"
	"github.com/magabrotheeeer/skincoach/internal/models"
	"github.com/magabrotheeeer/skincoach/internal/storage/repository"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	args := m.Called(ctx, email, passwordHash)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) DeleteUser(ctx context.Context, userUID string) error {
	args := m.Called(ctx, userUID)
	return args.Error(0)
}

type noopCache struct{}

func (noopCache) Get(_ string, _ any) (bool, error)          { return false, nil }
func (noopCache) Set(_ string, _ any, _ time.Duration) error { return nil }
func (noopCache) Invalidate(_ string) error                  { return nil }

func newTestService(repo UserRepository) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(repo, noopCache{}, jwt.NewMaker("test-secret", time.Hour), logger)
}

func TestRegister(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetUserByEmail", mock.Anything, "new@example.com").Return(nil, repository.ErrUserNotFound)
	repo.On("CreateUser", mock.Anything, "new@example.com", mock.Anything).Return("uid-1", nil)

	svc := newTestService(repo)
	user, err := svc.Register(context.Background(), "new@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", user.UID)
	repo.AssertExpectations(t)
}

func TestRegister_EmailTaken(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetUserByEmail", mock.Anything, "busy@example.com").
		Return(&models.User{UID: "uid-1", Email: "busy@example.com"}, nil)

	svc := newTestService(repo)
	_, err := svc.Register(context.Background(), "busy@example.com", "password123")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	hash, err := password.GetHash("password123")
	require.NoError(t, err)

	repo := new(MockUserRepository)
	repo.On("GetUserByEmail", mock.Anything, "a@b.com").
		Return(&models.User{UID: "u1", Email: "a@b.com", PasswordHash: hash}, nil)

	svc := newTestService(repo)
	token, err := svc.Login(context.Background(), "a@b.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwt.NewMaker("test-secret", time.Hour).ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "u1", claims.UserUID)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := password.GetHash("password123")
	require.NoError(t, err)

	repo := new(MockUserRepository)
	repo.On("GetUserByEmail", mock.Anything, "a@b.com").
		Return(&models.User{UID: "u1", Email: "a@b.com", PasswordHash: hash}, nil)

	svc := newTestService(repo)
	_, err = svc.Login(context.Background(), "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	svc := newTestService(repo)
	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDeleteAccount(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetUser", mock.Anything, "u1").Return(&models.User{UID: "u1", Email: "a@b.com"}, nil)
	repo.On("DeleteUser", mock.Anything, "u1").Return(nil)

	svc := newTestService(repo)
	require.NoError(t, svc.DeleteAccount(context.Background(), "u1"))
	repo.AssertExpectations(t)
}
