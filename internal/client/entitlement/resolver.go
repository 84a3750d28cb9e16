// Package entitlement определяет доступность анализа для пользователя:
// премиум-подписка снимает ограничения, бесплатный доступ ограничен
// фиксированным числом анализов.
package entitlement

import (
	"context"

	"github.com/magabrotheeeer/skincoach/internal/client/api"
	"github.com/magabrotheeeer/skincoach/internal/models"
)

// FreeLimit — число бесплатных анализов на учетную запись.
const FreeLimit = 3

// ErrQuotaExceeded — бесплатный лимит исчерпан по предварительной проверке.
// Классифицирован как api.KindQuota: отказ клиента до запроса и отказ
// бэкенда по 403 сводятся к одному исходу.
var ErrQuotaExceeded = api.NewError(api.KindQuota, "free analysis limit reached")

// Entitlement — рассчитанная доступность анализа.
type Entitlement struct {
	Premium   bool
	Limit     int
	Used      int
	Remaining int
}

// CanAnalyze сообщает, доступен ли пользователю следующий анализ.
func (e Entitlement) CanAnalyze() bool {
	return e.Premium || e.Remaining > 0
}

// Gateway описывает вызовы бэкенда, нужные для расчета доступности.
type Gateway interface {
	History(ctx context.Context, skip, limit int) ([]models.AnalysisSession, error)
}

// Resolver рассчитывает доступность анализа по профилю и истории.
type Resolver struct {
	gateway Gateway
	limit   int
}

// New создает Resolver со стандартным бесплатным лимитом.
func New(gateway Gateway) *Resolver {
	return &Resolver{gateway: gateway, limit: FreeLimit}
}

// Resolve рассчитывает доступность анализа для профиля.
//
// Для премиум-пользователей история не запрашивается. Для бесплатных
// запрашивается на одну сессию больше лимита: этого достаточно, чтобы
// отличить "лимит исчерпан" от "остались попытки", не выгружая всю историю.
// Решение клиента предварительное: сервер проверяет квоту повторно.
func (r *Resolver) Resolve(ctx context.Context, profile *api.Profile) (Entitlement, error) {
	if profile != nil && profile.IsPremium {
		return Entitlement{Premium: true, Limit: r.limit}, nil
	}

	sessions, err := r.gateway.History(ctx, 0, r.limit+1)
	if err != nil {
		return Entitlement{}, err
	}

	used := len(sessions)
	remaining := r.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Entitlement{
		Limit:     r.limit,
		Used:      used,
		Remaining: remaining,
	}, nil
}
