// Package removesession реализует HTTP-обработчик удаления сессии анализа.
package removesession

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/skincoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/skincoach/internal/http/response"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
	"github.com/magabrotheeeer/skincoach/internal/services/skin"
)

// Handler обрабатывает HTTP-запросы удаления сессии.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления сессии.
type Service interface {
	Remove(ctx context.Context, userUID string, id int64) error
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удаление сессии анализа
// @Description Удаляет сессию анализа, принадлежащую держателю токена.
// @Tags Skin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Идентификатор сессии"
// @Success 200 {object} response.Response "Сессия удалена"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Невалидный токен"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Router /history/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.skin.removesession"

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

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("invalid session id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid session id"))
		return
	}

	if err := h.service.Remove(r.Context(), user.UID, id); err != nil {
		if errors.Is(err, skin.ErrSessionNotFound) {
			log.Warn("session not found", slog.Int64("session_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("analysis session not found"))
			return
		}
		log.Error("failed to remove session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("session removed", slog.Int64("session_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"detail": "session deleted"}))
}
