// Package auth содержит бизнес-логику регистрации, входа и управления
// учётной записью пользователя.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/skincoach/internal/lib/jwt"
	"github.com/magabrotheeeer/skincoach/internal/lib/password"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
	"github.com/magabrotheeeer/skincoach/internal/models"
	"github.com/magabrotheeeer/skincoach/internal/storage/repository"
)

// Ошибки бизнес-уровня, на которые обработчики отвечают собственными статусами.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его UID.
	CreateUser(ctx context.Context, email, passwordHash string) (string, error)
	// GetUserByEmail возвращает пользователя по email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// DeleteUser удаляет пользователя вместе с его сессиями.
	DeleteUser(ctx context.Context, userUID string) error
}

// Cache описывает методы кеширования записей пользователей.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service отвечает за регистрацию, вход и выдачу токенов доступа.
type Service struct {
	users    UserRepository
	cache    Cache
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// New создает новый Service.
func New(users UserRepository, cache Cache, jwtMaker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		cache:    cache,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

func userCacheKey(email string) string {
	return "user:" + email
}

// Register создает нового пользователя с хэшированием пароля.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*models.User, error) {
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, err
	}
	uid, err := s.users.CreateUser(ctx, email, hashed)
	if err != nil {
		return nil, err
	}
	s.log.Info("registered new user", slog.String("uid", uid))
	return &models.User{UID: uid, Email: email}, nil
}

// Login проверяет пароль пользователя и генерирует токен доступа.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.jwtMaker.GenerateToken(user.Email, user.Role(), user.UID)
}

// UserByEmail возвращает пользователя, используя кеш или хранилище.
// Вызывается middleware на каждый аутентифицированный запрос.
func (s *Service) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var cached models.User
	found, err := s.cache.Get(userCacheKey(email), &cached)
	if err != nil {
		s.log.Warn("failed to read user from cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(userCacheKey(email), user, 5*time.Minute); err != nil {
		s.log.Warn("failed to cache user", sl.Err(err))
	}
	return user, nil
}

// InvalidateUser сбрасывает кеш записи пользователя.
// Вызывается после изменения премиум-статуса и удаления аккаунта.
func (s *Service) InvalidateUser(email string) {
	if err := s.cache.Invalidate(userCacheKey(email)); err != nil {
		s.log.Warn("failed to invalidate user cache", sl.Err(err))
	}
}

// DeleteAccount удаляет учётную запись пользователя и его сессии анализов.
func (s *Service) DeleteAccount(ctx context.Context, userUID string) error {
	const op = "services.auth.DeleteAccount"
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.DeleteUser(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.InvalidateUser(user.Email)
	s.log.Info("deleted user account", slog.String("uid", userUID))
	return nil
}
