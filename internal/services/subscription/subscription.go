// Package subscription проверяет чеки покупок и управляет
// премиум-статусом пользователей.
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

// ErrInvalidReceipt — чек не прошёл проверку на стороне магазина.
var ErrInvalidReceipt = errors.New("receipt validation failed")

// Длительность подписки, выдаваемой по принятому чеку.
const subscriptionPeriod = 30 * 24 * time.Hour

// UserRepository описывает методы хранилища, нужные для управления подпиской.
type UserRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	UpdateUserPremium(ctx context.Context, userUID string, isPremium bool, expiry sql.NullTime) error
}

// Verifier проверяет чек у платформенного магазина и возвращает
// срок действия купленной подписки.
type Verifier interface {
	Verify(ctx context.Context, receipt models.Receipt) (time.Time, error)
}

// UserCacheInvalidator сбрасывает кешированную запись пользователя
// после изменения премиум-статуса.
type UserCacheInvalidator interface {
	InvalidateUser(email string)
}

// Status — текущее состояние подписки пользователя.
type Status struct {
	IsPremium bool       `json:"is_premium"`
	Expiry    *time.Time `json:"subscription_expiry,omitempty"`
}

// Service отвечает за валидацию чеков и премиум-статус.
type Service struct {
	users     UserRepository
	verifiers map[string]Verifier
	cache     UserCacheInvalidator
	log       *slog.Logger
}

// New создает новый Service с верификаторами по платформам.
func New(users UserRepository, verifiers map[string]Verifier, cache UserCacheInvalidator, log *slog.Logger) *Service {
	return &Service{
		users:     users,
		verifiers: verifiers,
		cache:     cache,
		log:       log,
	}
}

// dropCachedUser сбрасывает кеш записи пользователя, чтобы премиум-гейт
// не работал по устаревшим данным.
func (s *Service) dropCachedUser(ctx context.Context, userUID string) {
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		s.log.Warn("failed to load user for cache invalidation", slog.String("uid", userUID))
		return
	}
	s.cache.InvalidateUser(user.Email)
}

// Validate проверяет чек и при успехе выставляет пользователю
// премиум-статус со сроком действия подписки.
func (s *Service) Validate(ctx context.Context, userUID string, receipt models.Receipt) (*Status, error) {
	const op = "services.subscription.Validate"

	verifier, ok := s.verifiers[receipt.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidReceipt, receipt.Platform)
	}
	expiry, err := verifier.Verify(ctx, receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReceipt, err)
	}

	if err := s.users.UpdateUserPremium(ctx, userUID, true, sql.NullTime{Time: expiry, Valid: true}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.dropCachedUser(ctx, userUID)
	s.log.Info("subscription activated",
		slog.String("uid", userUID),
		slog.String("platform", receipt.Platform),
		slog.Time("expiry", expiry))
	return &Status{IsPremium: true, Expiry: &expiry}, nil
}

// CurrentStatus возвращает состояние подписки пользователя.
func (s *Service) CurrentStatus(ctx context.Context, userUID string) (*Status, error) {
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	return &Status{IsPremium: user.IsPremium, Expiry: user.SubscriptionExpiry}, nil
}

// SetPremium выставляет премиум-статус вручную. Используется админкой.
func (s *Service) SetPremium(ctx context.Context, userUID string, isPremium bool) error {
	expiry := sql.NullTime{}
	if isPremium {
		expiry = sql.NullTime{Time: time.Now().UTC().Add(subscriptionPeriod), Valid: true}
	}
	if err := s.users.UpdateUserPremium(ctx, userUID, isPremium, expiry); err != nil {
		return err
	}
	s.dropCachedUser(ctx, userUID)
	s.log.Info("premium status updated",
		slog.String("uid", userUID), slog.Bool("is_premium", isPremium))
	return nil
}
