package middlewarectx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/skincoach/internal/http/response"
)

// AdminOnlyMiddleware пропускает запрос только для администраторов.
func AdminOnlyMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}
			if !user.IsAdmin {
				log.Warn("admin access denied", slog.String("uid", user.UID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("administrator access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PremiumOnlyMiddleware пропускает запрос только для пользователей
// с действующей премиум-подпиской.
func PremiumOnlyMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}
			expired := user.SubscriptionExpiry != nil && user.SubscriptionExpiry.Before(time.Now())
			if !user.IsPremium || expired {
				log.Warn("premium access denied", slog.String("uid", user.UID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("premium subscription required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
