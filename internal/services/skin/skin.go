// Package skin содержит бизнес-логику анализа кожи: пайплайн обработки
// снимка, историю, статистику и контроль бесплатной квоты.
package skin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/skincoach/internal/annotate"
	"github.com/magabrotheeeer/skincoach/internal/inference"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
	"github.com/magabrotheeeer/skincoach/internal/models"
	"github.com/magabrotheeeer/skincoach/internal/rabbitmq"
	"github.com/magabrotheeeer/skincoach/internal/storage/repository"
)

// Ошибки бизнес-уровня, на которые обработчики отвечают собственными статусами.
var (
	// ErrQuotaExceeded — исчерпан бесплатный лимит анализов.
	ErrQuotaExceeded = errors.New("free analysis limit reached")
	// ErrAnalyzerUnavailable — сервис детекции недоступен или ответил ошибкой.
	ErrAnalyzerUnavailable = errors.New("image analysis service unavailable")
	// ErrSessionNotFound — сессия не существует или принадлежит другому пользователю.
	ErrSessionNotFound = errors.New("analysis session not found")
)

// SessionRepository описывает контракт хранилища сессий анализа.
type SessionRepository interface {
	CreateSession(ctx context.Context, session models.AnalysisSession) (int64, error)
	ListSessions(ctx context.Context, userUID string, skip, limit int) ([]*models.AnalysisSession, error)
	ListAllSessions(ctx context.Context) ([]*models.AnalysisSession, error)
	CountSessions(ctx context.Context, userUID string) (int, error)
	RemoveSession(ctx context.Context, userUID string, id int64) error
	GetStats(ctx context.Context, userUID string) (*models.Stats, error)
	GetTrend(ctx context.Context, userUID, period string) ([]models.TrendPoint, error)
}

// Analyzer описывает контракт сервиса детекции.
type Analyzer interface {
	Infer(ctx context.Context, image []byte) (*inference.Result, error)
}

// ImageSaver описывает контракт хранилища снимков.
type ImageSaver interface {
	Save(originalName string, data []byte) (filePath, imageURL string, err error)
}

// Cache описывает методы кеширования статистики.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// EventPublisher публикует события о завершённых анализах.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service реализует пайплайн анализа кожи.
type Service struct {
	repo      SessionRepository
	analyzer  Analyzer
	images    ImageSaver
	cache     Cache
	events    EventPublisher // nil, если публикация событий отключена
	freeLimit int
	log       *slog.Logger
}

// New создает новый Service. events может быть nil.
func New(repo SessionRepository, analyzer Analyzer, images ImageSaver,
	cache Cache, events EventPublisher, freeLimit int, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		analyzer:  analyzer,
		images:    images,
		cache:     cache,
		events:    events,
		freeLimit: freeLimit,
		log:       log,
	}
}

func statsCacheKey(userUID string) string {
	return "stats:" + userUID
}

// Analyze проводит полный пайплайн анализа: контроль квоты для бесплатного
// доступа, сохранение снимка, инференс, отрисовка рамок, запись сессии
// и публикация события.
func (s *Service) Analyze(ctx context.Context, user *models.User, filename string, image []byte, premium bool) (*models.AnalysisSession, error) {
	const op = "services.skin.Analyze"

	// Бесплатный доступ ограничен квотой; премиум-путь её обходит.
	if !premium {
		count, err := s.repo.CountSessions(ctx, user.UID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if count >= s.freeLimit {
			return nil, ErrQuotaExceeded
		}
	}

	_, imageURL, err := s.images.Save(filename, image)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.analyzer.Infer(ctx, image)
	if err != nil {
		s.log.Error("inference failed", sl.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrAnalyzerUnavailable, err)
	}

	annotations := make([]models.Annotation, 0, len(result.Annotations))
	for _, box := range result.Annotations {
		annotations = append(annotations, models.Annotation{
			X:      box.X,
			Y:      box.Y,
			Width:  box.Width,
			Height: box.Height,
			Label:  box.Label,
		})
	}

	annotatedURL := imageURL
	if annotated, err := annotate.Render(image, annotations); err != nil {
		// Снимок в неподдерживаемом формате: отдаем исходный URL вместо аннотированного.
		s.log.Warn("failed to render annotations", sl.Err(err))
	} else if _, url, err := s.images.Save("annotated.jpg", annotated); err != nil {
		s.log.Warn("failed to save annotated image", sl.Err(err))
	} else {
		annotatedURL = url
	}

	session := models.AnalysisSession{
		UserUID:           user.UID,
		ImageURL:          imageURL,
		AnnotatedImageURL: annotatedURL,
		Scores:            result.Scores,
		Annotations:       annotations,
		Timestamp:         time.Now().UTC(),
	}
	session.ID, err = s.repo.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Invalidate(statsCacheKey(user.UID)); err != nil {
		s.log.Warn("failed to invalidate stats cache", sl.Err(err))
	}

	if s.events != nil {
		event := rabbitmq.AnalysisCompletedEvent{
			SessionID: session.ID,
			UserUID:   user.UID,
			Premium:   premium,
			Timestamp: session.Timestamp,
		}
		if err := s.events.Publish(rabbitmq.RoutingKeyAnalysisCompleted, event); err != nil {
			s.log.Warn("failed to publish analysis event", sl.Err(err))
		}
	}

	s.log.Info("analysis session created",
		slog.Int64("session_id", session.ID), slog.Bool("premium", premium))
	return &session, nil
}

// History возвращает сессии пользователя, новые первыми.
func (s *Service) History(ctx context.Context, userUID string, skip, limit int) ([]*models.AnalysisSession, error) {
	return s.repo.ListSessions(ctx, userUID, skip, limit)
}

// AdminHistory возвращает все сессии. Доступ ограничен middleware.
func (s *Service) AdminHistory(ctx context.Context) ([]*models.AnalysisSession, error) {
	return s.repo.ListAllSessions(ctx)
}

// Remove удаляет сессию пользователя и сбрасывает кеш статистики.
func (s *Service) Remove(ctx context.Context, userUID string, id int64) error {
	const op = "services.skin.Remove"
	if err := s.repo.RemoveSession(ctx, userUID, id); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(statsCacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate stats cache", sl.Err(err))
	}
	return nil
}

// Stats возвращает агрегированную статистику, используя кеш или хранилище.
func (s *Service) Stats(ctx context.Context, userUID string) (*models.Stats, error) {
	var cached models.Stats
	found, err := s.cache.Get(statsCacheKey(userUID), &cached)
	if err != nil {
		s.log.Warn("failed to read stats from cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	stats, err := s.repo.GetStats(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(statsCacheKey(userUID), stats, time.Hour); err != nil {
		s.log.Warn("failed to cache stats", sl.Err(err))
	}
	return stats, nil
}

// Trend возвращает динамику средних скоров по месяцам или неделям.
func (s *Service) Trend(ctx context.Context, userUID, period string) (*models.Trend, error) {
	points, err := s.repo.GetTrend(ctx, userUID, period)
	if err != nil {
		return nil, err
	}
	return &models.Trend{Trend: points}, nil
}
