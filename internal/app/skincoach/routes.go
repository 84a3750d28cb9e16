// Package skincoach предоставляет маршруты API-сервиса.
package skincoach

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/skincoach/internal/http/handlers/admin/listusers"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/admin/setpremium"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/auth/removeaccount"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/health"
	interprethandler "github.com/magabrotheeeer/skincoach/internal/http/handlers/interpret"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/skin/adminhistory"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/skin/analyze"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/skin/history"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/skin/removesession"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/skin/stats"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/skin/trend"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/skincoach/internal/http/handlers/subscription/validate"
	"github.com/magabrotheeeer/skincoach/internal/http/middlewarectx"
	interpretclient "github.com/magabrotheeeer/skincoach/internal/interpret"
	"github.com/magabrotheeeer/skincoach/internal/lib/jwt"
	authservice "github.com/magabrotheeeer/skincoach/internal/services/auth"
	skinservice "github.com/magabrotheeeer/skincoach/internal/services/skin"
	subservice "github.com/magabrotheeeer/skincoach/internal/services/subscription"
)

// Services — зависимости маршрутов.
type Services struct {
	Auth         *authservice.Service
	Skin         *skinservice.Service
	Subscription *subservice.Service
	Interpret    *interpretclient.Client
	Users        listusers.Service
	JWTMaker     jwt.Maker
	ImagesDir    string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(20, 40)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/signup", signup.New(logger, svc.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, svc.Auth).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.JWTMaker, svc.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))

			r.Get("/auth/me", me.New(logger).ServeHTTP)
			r.Delete("/auth/me", removeaccount.New(logger, svc.Auth).ServeHTTP)

			r.Post("/analyze", analyze.New(logger, svc.Skin).ServeHTTP)
			r.Get("/history", history.New(logger, svc.Skin).ServeHTTP)
			r.Delete("/history/{id}", removesession.New(logger, svc.Skin).ServeHTTP)
			r.Get("/stats", stats.New(logger, svc.Skin).ServeHTTP)
			r.Get("/stats/trend", trend.New(logger, svc.Skin).ServeHTTP)
			r.Post("/interpret", interprethandler.New(logger, svc.Interpret).ServeHTTP)

			r.Post("/subscription/validate", validate.New(logger, svc.Subscription).ServeHTTP)
			r.Get("/subscription/status", status.New(logger, svc.Subscription).ServeHTTP)

			// Премиум-маршрут без квоты
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.PremiumOnlyMiddleware(logger))
				r.Post("/analyze-premium", analyze.NewPremium(logger, svc.Skin).ServeHTTP)
			})

			// Админка
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				r.Get("/admin/users", listusers.New(logger, svc.Users).ServeHTTP)
				r.Put("/admin/users/{uid}/premium", setpremium.New(logger, svc.Subscription).ServeHTTP)
				r.Get("/admin/history", adminhistory.New(logger, svc.Skin).ServeHTTP)
			})
		})
	})

	// Раздача сохраненных снимков
	fileServer := http.StripPrefix("/images/", http.FileServer(http.Dir(svc.ImagesDir)))
	r.Get("/images/*", fileServer.ServeHTTP)

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
