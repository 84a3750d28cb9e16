// Package analyze реализует HTTP-обработчик анализа снимка кожи.
//
// Снимок принимается multipart-формой в поле file. Один обработчик
// обслуживает и бесплатный маршрут с квотой, и премиум-маршрут без неё.
package analyze

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/skincoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/skincoach/internal/http/response"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
	"github.com/magabrotheeeer/skincoach/internal/models"
	"github.com/magabrotheeeer/skincoach/internal/services/skin"
)

// Максимальный размер принимаемого снимка.
const maxImageSize = 10 << 20

// Handler обрабатывает HTTP-запросы анализа снимка.
type Handler struct {
	log     *slog.Logger
	service Service
	premium bool
}

// Service описывает интерфейс бизнес-логики анализа.
type Service interface {
	Analyze(ctx context.Context, user *models.User, filename string, image []byte, premium bool) (*models.AnalysisSession, error)
}

// New создает Handler бесплатного маршрута с контролем квоты.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// NewPremium создает Handler премиум-маршрута без квоты.
func NewPremium(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, premium: true}
}

// ServeHTTP godoc
// @Summary Анализ снимка кожи
// @Description Принимает снимок, запускает детекцию состояний кожи и сохраняет сессию анализа.
// @Tags Skin
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Снимок кожи (JPEG или PNG)"
// @Success 200 {object} response.Response "Сессия анализа"
// @Failure 400 {object} response.ErrorResponse "Снимок отсутствует или не читается"
// @Failure 401 {object} response.ErrorResponse "Невалидный токен"
// @Failure 403 {object} response.ErrorResponse "Исчерпан бесплатный лимит"
// @Failure 503 {object} response.ErrorResponse "Сервис детекции недоступен"
// @Router /analyze [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.skin.analyze"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		log.Error("failed to parse multipart form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("image file is required"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		log.Error("image file missing", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("image file is required"))
		return
	}
	defer func() { _ = file.Close() }()

	if contentType := header.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "image/") {
		log.Error("unexpected upload content type", slog.String("content_type", contentType))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("file must be an image"))
		return
	}

	image, err := io.ReadAll(file)
	if err != nil {
		log.Error("failed to read image file", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read image file"))
		return
	}

	session, err := h.service.Analyze(r.Context(), user, header.Filename, image, h.premium)
	if err != nil {
		switch {
		case errors.Is(err, skin.ErrQuotaExceeded):
			log.Warn("free analysis limit reached", slog.String("uid", user.UID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("free analysis limit reached, upgrade to premium"))
		case errors.Is(err, skin.ErrAnalyzerUnavailable):
			log.Error("analyzer unavailable", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("image analysis service unavailable"))
		default:
			log.Error("failed to analyze image", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("analysis completed", slog.Int64("session_id", session.ID))
	render.JSON(w, r, response.StatusOKWithData(session))
}
