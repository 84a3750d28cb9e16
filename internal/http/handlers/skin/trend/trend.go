// Package trend реализует HTTP-обработчик динамики скоров по периодам.
package trend

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/skincoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/skincoach/internal/http/response"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
	"github.com/magabrotheeeer/skincoach/internal/models"
)

// Handler обрабатывает HTTP-запросы динамики скоров.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики динамики.
type Service interface {
	Trend(ctx context.Context, userUID, period string) (*models.Trend, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Динамика скоров
// @Description Возвращает средние скоры по состояниям кожи, сгруппированные по месяцам или неделям.
// @Tags Skin
// @Produce json
// @Security BearerAuth
// @Param period query string false "Период группировки: month или week" default(month)
// @Success 200 {object} response.Response "Точки динамики"
// @Failure 400 {object} response.ErrorResponse "Неизвестный период"
// @Failure 401 {object} response.ErrorResponse "Невалидный токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /stats/trend [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.skin.trend"

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

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	if period != "month" && period != "week" {
		log.Error("unknown trend period", slog.String("period", period))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("period must be month or week"))
		return
	}

	trend, err := h.service.Trend(r.Context(), user.UID, period)
	if err != nil {
		log.Error("failed to get trend", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(trend))
}
