package middlewarectx_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/skincoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/skincoach/internal/lib/jwt"
	"github.com/magabrotheeeer/skincoach/internal/models"
)

type UserProviderMock struct {
	mock.Mock
}

func (m *UserProviderMock) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewMaker("test-secret", time.Hour)
	validToken, err := maker.GenerateToken("a@b.com", "user", "u1")
	require.NoError(t, err)
	expiredToken, err := jwt.NewMaker("test-secret", -time.Hour).GenerateToken("a@b.com", "user", "u1")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		provideUser    bool
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "garbage token",
			authHeader:     "Bearer not-a-jwt",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer " + expiredToken,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "valid token",
			authHeader:     "Bearer " + validToken,
			provideUser:    true,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserProviderMock)
			if tt.provideUser {
				users.On("UserByEmail", mock.Anything, "a@b.com").
					Return(&models.User{UID: "u1", Email: "a@b.com"}, nil).Once()
			}

			handlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				user, ok := middlewarectx.UserFromContext(r.Context())
				require.True(t, ok)
				assert.Equal(t, "u1", user.UID)
				w.WriteHeader(http.StatusOK)
			})

			mw := middlewarectx.JWTMiddleware(maker, users, newNoopLogger())(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			users.AssertExpectations(t)
		})
	}
}

func TestAdminOnlyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := middlewarectx.AdminOnlyMiddleware(newNoopLogger())(next)

	t.Run("regular user is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		ctx := context.WithValue(req.Context(), middlewarectx.User, &models.User{UID: "u1"})
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		ctx := context.WithValue(req.Context(), middlewarectx.User, &models.User{UID: "u1", IsAdmin: true})
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPremiumOnlyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := middlewarectx.PremiumOnlyMiddleware(newNoopLogger())(next)

	serve := func(user *models.User) int {
		req := httptest.NewRequest(http.MethodPost, "/analyze-premium", nil)
		ctx := context.WithValue(req.Context(), middlewarectx.User, user)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code
	}

	expired := time.Now().Add(-24 * time.Hour)
	active := time.Now().Add(24 * time.Hour)

	assert.Equal(t, http.StatusForbidden, serve(&models.User{UID: "u1"}))
	assert.Equal(t, http.StatusForbidden, serve(&models.User{UID: "u1", IsPremium: true, SubscriptionExpiry: &expired}))
	assert.Equal(t, http.StatusOK, serve(&models.User{UID: "u1", IsPremium: true, SubscriptionExpiry: &active}))
}
