// Package models содержит доменные структуры приложения: пользователь,
// сессия анализа кожи, чек покупки и агрегаты статистики.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                string     `json:"id"`                            // Уникальный идентификатор пользователя
	Email              string     `json:"email"`                         // Электронная почта (уникальная)
	PasswordHash       string     `json:"-"`                             // Хэш пароля, наружу не отдается
	IsAdmin            bool       `json:"is_admin"`                      // Доступ к административным операциям
	IsPremium          bool       `json:"is_premium"`                    // Право на безлимитный анализ
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"` // Дата истечения оплаченной подписки
	CreatedAt          time.Time  `json:"-"`                             // Дата регистрации
}

// Role возвращает роль пользователя для claims токена.
func (u *User) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}
