// Package interpret реализует HTTP-обработчик текстовой интерпретации скоров.
package interpret

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/skincoach/internal/http/response"
	interpretsvc "github.com/magabrotheeeer/skincoach/internal/interpret"
	"github.com/magabrotheeeer/skincoach/internal/lib/sl"
)

// Request — структура входных данных со скорами анализа.
type Request struct {
	Scores map[string]float64 `json:"scores" validate:"required,min=1"`
}

// Handler обрабатывает HTTP-запросы интерпретации.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс сервиса интерпретации.
type Service interface {
	Interpret(ctx context.Context, scores map[string]float64) (*interpretsvc.Interpretation, error)
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
// @Summary Интерпретация результатов анализа
// @Description Возвращает текстовую интерпретацию скоров и три рекомендации процедур.
// @Tags Skin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Скоры анализа"
// @Success 200 {object} response.Response "Интерпретация и рекомендации"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Невалидный токен"
// @Failure 503 {object} response.ErrorResponse "Сервис интерпретации недоступен"
// @Router /interpret [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.interpret"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	result, err := h.service.Interpret(r.Context(), req.Scores)
	if err != nil {
		log.Error("interpretation failed", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("interpretation service unavailable"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(result))
}
