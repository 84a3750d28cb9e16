package subscription

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdateUserPremium(ctx context.Context, userUID string, isPremium bool, expiry sql.NullTime) error {
	args := m.Called(ctx, userUID, isPremium, expiry)
	return args.Error(0)
}

type recordingInvalidator struct {
	emails []string
}

func (r *recordingInvalidator) InvalidateUser(email string) {
	r.emails = append(r.emails, email)
}

func newTestService(repo UserRepository) (*Service, *recordingInvalidator) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	invalidator := &recordingInvalidator{}
	return New(repo, DefaultVerifiers(), invalidator, logger), invalidator
}

func TestValidate(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("UpdateUserPremium", mock.Anything, "u1", true, mock.Anything).Return(nil)
	repo.On("GetUser", mock.Anything, "u1").Return(&models.User{UID: "u1", Email: "a@b.com"}, nil)

	svc, invalidator := newTestService(repo)
	status, err := svc.Validate(context.Background(), "u1", models.Receipt{
		ProductID:          "skincoach.premium.monthly",
		TransactionReceipt: "opaque-receipt-blob",
		Platform:           models.PlatformApple,
	})
	require.NoError(t, err)
	assert.True(t, status.IsPremium)
	require.NotNil(t, status.Expiry)
	assert.WithinDuration(t, time.Now().UTC().Add(subscriptionPeriod), *status.Expiry, time.Minute)
	assert.Equal(t, []string{"a@b.com"}, invalidator.emails)
	repo.AssertExpectations(t)
}

func TestValidate_UnknownPlatform(t *testing.T) {
	svc, _ := newTestService(new(MockUserRepository))
	_, err := svc.Validate(context.Background(), "u1", models.Receipt{
		ProductID:          "skincoach.premium.monthly",
		TransactionReceipt: "blob",
		Platform:           "huawei",
	})
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestValidate_EmptyReceipt(t *testing.T) {
	svc, _ := newTestService(new(MockUserRepository))
	_, err := svc.Validate(context.Background(), "u1", models.Receipt{
		ProductID: "skincoach.premium.monthly",
		Platform:  models.PlatformGoogle,
	})
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestCurrentStatus(t *testing.T) {
	expiry := time.Now().UTC().Add(10 * 24 * time.Hour)
	repo := new(MockUserRepository)
	repo.On("GetUser", mock.Anything, "u1").Return(&models.User{
		UID:                "u1",
		IsPremium:          true,
		SubscriptionExpiry: &expiry,
	}, nil)

	svc, _ := newTestService(repo)
	status, err := svc.CurrentStatus(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, status.IsPremium)
	assert.Equal(t, expiry, *status.Expiry)
}

func TestSetPremium_Revoke(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("UpdateUserPremium", mock.Anything, "u1", false, sql.NullTime{}).Return(nil)
	repo.On("GetUser", mock.Anything, "u1").Return(&models.User{UID: "u1", Email: "a@b.com"}, nil)

	svc, invalidator := newTestService(repo)
	require.NoError(t, svc.SetPremium(context.Background(), "u1", false))
	assert.Equal(t, []string{"a@b.com"}, invalidator.emails)
	repo.AssertExpectations(t)
}
