// Package validate реализует HTTP-обработчик проверки чека покупки подписки.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/skincoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/skincoach/internal/http/response"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
	"github.com/magabrotheeeer/skincoach/internal/models"
	"github.com/magabrotheeeer/skincoach/internal/services/subscription"
)

// Request — структура входных данных с чеком покупки.
type Request struct {
	ProductID string `json:"product_id" validate:"required"`
	Receipt   string `json:"receipt" validate:"required"`
	Platform  string `json:"platform" validate:"required,oneof=apple google"`
}

// Handler обрабатывает HTTP-запросы проверки чека.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики подписки.
type Service interface {
	Validate(ctx context.Context, userUID string, receipt models.Receipt) (*subscription.Status, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверка чека покупки
// @Description Проверяет чек у платформенного магазина и активирует премиум-подписку.
// @Tags Subscription
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Чек покупки"
// @Success 200 {object} response.Response "Подписка активирована"
// @Failure 400 {object} response.ErrorResponse "Чек не прошёл проверку"
// @Failure 401 {object} response.ErrorResponse "Невалидный токен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /subscription/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.validate"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	status, err := h.service.Validate(r.Context(), user.UID, models.Receipt{
		ProductID:          req.ProductID,
		TransactionReceipt: req.Receipt,
		Platform:           req.Platform,
	})
	if err != nil {
		if errors.Is(err, subscription.ErrInvalidReceipt) {
			log.Warn("receipt rejected", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("receipt validation failed"))
			return
		}
		log.Error("failed to validate receipt", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("subscription activated", slog.String("uid", user.UID))
	render.JSON(w, r, response.StatusOKWithData(status))
}
