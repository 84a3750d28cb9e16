// Package auth управляет жизненным циклом пользовательской сессии клиента:
// вход, выход, восстановление сессии при запуске и принудительный выход
// по отозванному токену.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/skincoach/internal/client/api"
	"github.com/magabrotheeeer/skincoach/internal/client/session"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
)

// ErrSignInInProgress — вход уже выполняется из другого вызова.
var ErrSignInInProgress = errors.New("sign-in already in progress")

// State — состояние пользовательской сессии.
type State int

const (
	// SignedOut — активной сессии нет.
	SignedOut State = iota
	// SigningIn — выполняется вход.
	SigningIn
	// SignedIn — сессия активна, профиль загружен.
	SignedIn
)

func (s State) String() string {
	switch s {
	case SigningIn:
		return "signing_in"
	case SignedIn:
		return "signed_in"
	default:
		return "signed_out"
	}
}

// Gateway описывает вызовы бэкенда, нужные контроллеру сессии.
type Gateway interface {
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context) (*api.Profile, error)
	DeleteAccount(ctx context.Context) error
	SetToken(token string)
	ClearToken()
	OnUnauthorized(hook func())
}

// Controller хранит состояние сессии и согласует его с хранилищем
// токена и клиентом бэкенда.
type Controller struct {
	gateway Gateway
	store   session.Store
	log     *slog.Logger

	mu      sync.Mutex
	state   State
	profile *api.Profile
}

// New создает Controller и подписывает его на принудительный выход по 401.
func New(gateway Gateway, store session.Store, log *slog.Logger) *Controller {
	c := &Controller{
		gateway: gateway,
		store:   store,
		log:     log,
	}
	gateway.OnUnauthorized(c.forceSignOut)
	return c
}

// Current возвращает состояние сессии и профиль, если сессия активна.
func (c *Controller) Current() (State, *api.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.profile
}

// SignIn выполняет вход: обменивает учетные данные на токен, сохраняет его
// и загружает профиль. Шаги атомарны для наблюдателя: при сбое любого шага
// токен очищается и сессия остается неактивной.
func (c *Controller) SignIn(ctx context.Context, email, password string) (*api.Profile, error) {
	c.mu.Lock()
	if c.state == SigningIn {
		c.mu.Unlock()
		return nil, ErrSignInInProgress
	}
	c.state = SigningIn
	c.mu.Unlock()

	profile, err := c.signIn(ctx, email, password)

	c.mu.Lock()
	if err != nil {
		c.state = SignedOut
		c.profile = nil
	} else {
		c.state = SignedIn
		c.profile = profile
	}
	c.mu.Unlock()
	return profile, err
}

func (c *Controller) signIn(ctx context.Context, email, password string) (*api.Profile, error) {
	token, err := c.gateway.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.gateway.SetToken(token)
	if err := c.store.Save(token); err != nil {
		c.gateway.ClearToken()
		return nil, err
	}

	profile, err := c.gateway.Me(ctx)
	if err != nil {
		// Вход не завершился: частично установленная сессия откатывается.
		c.clearSession()
		return nil, err
	}

	c.log.Info("signed in", slog.String("email", profile.Email))
	return profile, nil
}

// SignOut завершает сессию и удаляет сохраненный токен.
// Повторный вызов безопасен.
func (c *Controller) SignOut() {
	c.clearSession()

	c.mu.Lock()
	c.state = SignedOut
	c.profile = nil
	c.mu.Unlock()
	c.log.Info("signed out")
}

// Restore восстанавливает сессию из сохраненного токена при запуске.
// Отозванный токен удаляется без ошибки; недоступность сети оставляет
// токен на месте и возвращает ошибку.
func (c *Controller) Restore(ctx context.Context) (*api.Profile, error) {
	token, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	c.gateway.SetToken(token)
	profile, err := c.gateway.Me(ctx)
	if err != nil {
		if api.IsKind(err, api.KindUnauthorized) {
			c.log.Warn("stored token rejected, clearing session")
			c.clearSession()
			return nil, nil
		}
		c.gateway.ClearToken()
		return nil, err
	}

	c.mu.Lock()
	c.state = SignedIn
	c.profile = profile
	c.mu.Unlock()
	c.log.Info("session restored", slog.String("email", profile.Email))
	return profile, nil
}

// RefreshEntitlement перечитывает профиль с бэкенда и атомарно заменяет
// его в активной сессии. Вызывается после активации подписки, чтобы
// премиум-статус вступил в силу без повторного входа.
func (c *Controller) RefreshEntitlement(ctx context.Context) (*api.Profile, error) {
	profile, err := c.gateway.Me(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state == SignedIn {
		c.profile = profile
	}
	c.mu.Unlock()
	return profile, nil
}

// DeleteAccount удаляет учетную запись и завершает сессию.
func (c *Controller) DeleteAccount(ctx context.Context) error {
	if err := c.gateway.DeleteAccount(ctx); err != nil {
		return err
	}
	c.SignOut()
	return nil
}

// forceSignOut вызывается клиентом бэкенда при первом 401.
func (c *Controller) forceSignOut() {
	c.log.Warn("access token rejected by server, signing out")
	c.SignOut()
}

func (c *Controller) clearSession() {
	c.gateway.ClearToken()
	if err := c.store.Clear(); err != nil {
		c.log.Error("failed to clear stored token", sl.Err(err))
	}
}
