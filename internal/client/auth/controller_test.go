package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/skincoach/internal/client/api"
)

type GatewayMock struct {
	mock.Mock

	mu     sync.Mutex
	token  string
	onAuth func()
}

func (m *GatewayMock) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) Me(ctx context.Context) (*api.Profile, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(*api.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *GatewayMock) DeleteAccount(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *GatewayMock) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *GatewayMock) ClearToken() {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
}

func (m *GatewayMock) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *GatewayMock) OnUnauthorized(hook func()) {
	m.onAuth = hook
}

type memStore struct {
	mu    sync.Mutex
	token string
}

func (s *memStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memStore) Save(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestSignIn(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Login", mock.Anything, "a@b.com", "password123").Return("tok", nil)
	gw.On("Me", mock.Anything).Return(&api.Profile{ID: "u1", Email: "a@b.com"}, nil)
	store := &memStore{}

	ctrl := New(gw, store, newNoopLogger())
	profile, err := ctrl.SignIn(context.Background(), "a@b.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)

	state, current := ctrl.Current()
	assert.Equal(t, SignedIn, state)
	assert.Equal(t, profile, current)
	assert.Equal(t, "tok", store.token)
	assert.Equal(t, "tok", gw.Token())
}

func TestSignIn_ProfileFetchFails(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Login", mock.Anything, "a@b.com", "password123").Return("tok", nil)
	gw.On("Me", mock.Anything).Return(nil, api.NewError(api.KindNetwork, "connection reset"))
	store := &memStore{}

	ctrl := New(gw, store, newNoopLogger())
	_, err := ctrl.SignIn(context.Background(), "a@b.com", "password123")
	require.Error(t, err)

	// Частично установленная сессия откатывается целиком.
	state, _ := ctrl.Current()
	assert.Equal(t, SignedOut, state)
	assert.Empty(t, store.token)
	assert.Empty(t, gw.Token())
}

func TestSignIn_AlreadyInProgress(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	gw := new(GatewayMock)
	gw.On("Login", mock.Anything, "a@b.com", "password123").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return("tok", nil)
	gw.On("Me", mock.Anything).Return(&api.Profile{ID: "u1"}, nil)

	ctrl := New(gw, &memStore{}, newNoopLogger())

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.SignIn(context.Background(), "a@b.com", "password123")
		done <- err
	}()
	<-started

	_, err := ctrl.SignIn(context.Background(), "a@b.com", "password123")
	assert.ErrorIs(t, err, ErrSignInInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestSignOut_Idempotent(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Login", mock.Anything, "a@b.com", "password123").Return("tok", nil)
	gw.On("Me", mock.Anything).Return(&api.Profile{ID: "u1"}, nil)
	store := &memStore{}

	ctrl := New(gw, store, newNoopLogger())
	_, err := ctrl.SignIn(context.Background(), "a@b.com", "password123")
	require.NoError(t, err)

	ctrl.SignOut()
	ctrl.SignOut()

	state, profile := ctrl.Current()
	assert.Equal(t, SignedOut, state)
	assert.Nil(t, profile)
	assert.Empty(t, store.token)
}

func TestRestore(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Me", mock.Anything).Return(&api.Profile{ID: "u1", Email: "a@b.com"}, nil)
	store := &memStore{token: "stored-tok"}

	ctrl := New(gw, store, newNoopLogger())
	profile, err := ctrl.Restore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, profile)

	state, _ := ctrl.Current()
	assert.Equal(t, SignedIn, state)
	assert.Equal(t, "stored-tok", gw.Token())
}

func TestRestore_NoStoredToken(t *testing.T) {
	ctrl := New(new(GatewayMock), &memStore{}, newNoopLogger())

	profile, err := ctrl.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, profile)

	state, _ := ctrl.Current()
	assert.Equal(t, SignedOut, state)
}

func TestRestore_RejectedToken(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Me", mock.Anything).Return(nil, api.NewError(api.KindUnauthorized, "invalid or expired token"))
	store := &memStore{token: "stale-tok"}

	ctrl := New(gw, store, newNoopLogger())
	profile, err := ctrl.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, profile)

	// Отозванный токен удаляется из хранилища.
	assert.Empty(t, store.token)
}

func TestRestore_NetworkError(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Me", mock.Anything).Return(nil, api.NewError(api.KindNetwork, "timeout"))
	store := &memStore{token: "stored-tok"}

	ctrl := New(gw, store, newNoopLogger())
	_, err := ctrl.Restore(context.Background())
	require.Error(t, err)

	// Токен сохраняется для следующей попытки.
	assert.Equal(t, "stored-tok", store.token)
}

func TestForcedSignOutOnUnauthorized(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Login", mock.Anything, "a@b.com", "password123").Return("tok", nil)
	gw.On("Me", mock.Anything).Return(&api.Profile{ID: "u1"}, nil)
	store := &memStore{}

	ctrl := New(gw, store, newNoopLogger())
	_, err := ctrl.SignIn(context.Background(), "a@b.com", "password123")
	require.NoError(t, err)

	// Сервер отозвал токен: клиент дергает зарегистрированный хук.
	gw.onAuth()

	state, _ := ctrl.Current()
	assert.Equal(t, SignedOut, state)
	assert.Empty(t, store.token)
}

func TestRefreshEntitlement(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Login", mock.Anything, "a@b.com", "password123").Return("tok", nil)
	gw.On("Me", mock.Anything).Return(&api.Profile{ID: "u1", IsPremium: false}, nil).Once()
	gw.On("Me", mock.Anything).Return(&api.Profile{ID: "u1", IsPremium: true}, nil).Once()

	ctrl := New(gw, &memStore{}, newNoopLogger())
	_, err := ctrl.SignIn(context.Background(), "a@b.com", "password123")
	require.NoError(t, err)

	// Подписка активировалась на бэкенде: профиль перечитывается.
	profile, err := ctrl.RefreshEntitlement(context.Background())
	require.NoError(t, err)
	assert.True(t, profile.IsPremium)

	_, current := ctrl.Current()
	assert.True(t, current.IsPremium)
}

func TestDeleteAccount(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("Login", mock.Anything, "a@b.com", "password123").Return("tok", nil)
	gw.On("Me", mock.Anything).Return(&api.Profile{ID: "u1"}, nil)
	gw.On("DeleteAccount", mock.Anything).Return(nil)
	store := &memStore{}

	ctrl := New(gw, store, newNoopLogger())
	_, err := ctrl.SignIn(context.Background(), "a@b.com", "password123")
	require.NoError(t, err)

	require.NoError(t, ctrl.DeleteAccount(context.Background()))
	state, _ := ctrl.Current()
	assert.Equal(t, SignedOut, state)
	assert.Empty(t, store.token)
}
