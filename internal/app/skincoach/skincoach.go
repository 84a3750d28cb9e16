// Package skincoach собирает API-сервис анализа кожи: хранилище, кеш,
// внешние клиенты, бизнес-сервисы и HTTP-сервер.
package skincoach

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/skincoach/internal/cache"
	"github.com/magabrotheeeer/skincoach/internal/config"
	"github.com/magabrotheeeer/skincoach/internal/imagestore"
	"github.com/magabrotheeeer/skincoach/internal/inference"
	"github.com/magabrotheeeer/skincoach/internal/interpret"
	"github.com/magabrotheeeer/skincoach/internal/lib/jwt"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
	"github.com/magabrotheeeer/skincoach/internal/migrations"
	"github.com/magabrotheeeer/skincoach/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/skincoach/internal/services/auth"
	skinservice "github.com/magabrotheeeer/skincoach/internal/services/skin"
	subservice "github.com/magabrotheeeer/skincoach/internal/services/subscription"
	"github.com/magabrotheeeer/skincoach/internal/storage/repository"
)

// App — собранный API-сервис с его ресурсами.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New инициализирует хранилище, кеш, внешние клиенты и HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var publisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitURL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, cfg.EventsExchange)
		if err != nil {
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(ch, cfg.EventsExchange)
	} else {
		logger.Warn("rabbitmq url is empty, event publishing disabled")
	}

	images, err := imagestore.New(cfg.ImageSaveDir, cfg.ImageURLPrefix)
	if err != nil {
		return nil, err
	}

	inferenceClient := inference.NewClient(
		cfg.InferenceAPIURL, cfg.InferenceAPIKey, cfg.ModelID, cfg.TimeoutInfer)
	interpretClient := interpret.NewClient(
		cfg.InterpretAPIURL, cfg.InterpretAPIKey, cfg.InterpretModel)
	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.New(db, cacheRedis, jwtMaker, logger)
	skinService := skinservice.New(
		db, inferenceClient, images, cacheRedis, eventPublisher(publisher),
		cfg.FreeAnalysisLimit, logger)
	subService := subservice.New(db, subservice.DefaultVerifiers(), authService, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Auth:         authService,
		Skin:         skinService,
		Subscription: subService,
		Interpret:    interpretClient,
		Users:        db,
		JWTMaker:     jwtMaker,
		ImagesDir:    images.Dir(),
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// eventPublisher оборачивает nil-указатель в nil-интерфейс,
// чтобы сервис мог просто проверить events != nil.
func eventPublisher(p *rabbitmq.Publisher) skinservice.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", sl.Err(closeErr))
		}
		return err
	}
}
