// Package profile реализует HTTP-обработчики профиля: базовая валюта, бюджет,
// категории, тарифный план, напоминания и режим скрытия сумм.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/http/response"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/services/subscription"
)

// Service операции профиля хранилища.
type Service interface {
	Profile() models.UserProfile
	Categories() []string
	SetBaseCurrency(ctx context.Context, c models.Currency) error
	UpgradeToPremium(ctx context.Context) error
	DowngradeToFree(ctx context.Context) error
	UpdateBudget(ctx context.Context, amount decimal.Decimal) error
	AddCategory(ctx context.Context, name string) error
	RemoveCategory(ctx context.Context, name string) error
	SetNotifications(ctx context.Context, enabled bool) error
	TogglePrivacy(ctx context.Context) (bool, error)
}

// Handler обработчики /profile.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// decode читает и проверяет тело запроса. Возвращает false, если ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return response.Validate(w, r, log, h.validate, req)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, subscription.ErrUnsupportedCurrency),
		errors.Is(err, subscription.ErrInvalidBudget),
		errors.Is(err, subscription.ErrInvalidCategory):
		log.Info("rejected profile change", sl.Err(err))
		response.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, subscription.ErrDefaultCategory):
		log.Info("rejected profile change", sl.Err(err))
		response.WriteError(w, r, http.StatusConflict, err.Error())
	default:
		log.Error("failed to update profile", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "could not update profile")
	}
}

func (h *Handler) ok(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(map[string]any{
		"profile":    h.service.Profile(),
		"categories": h.service.Categories(),
	}))
}

// Get возвращает профиль и список категорий.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r)
}

// SetCurrency меняет базовую валюту. Конвертер переключает подписчик Store.
func (h *Handler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.SetCurrency")

	var req models.CurrencyRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	c := models.Currency(req.Currency)
	if err := h.service.SetBaseCurrency(r.Context(), c); err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("base currency changed", slog.String("currency", req.Currency))
	h.ok(w, r)
}

// SetBudget устанавливает месячный бюджет.
func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.SetBudget")

	var req models.BudgetRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if err := h.service.UpdateBudget(r.Context(), decimal.NewFromFloat(req.MonthlyBudget)); err != nil {
		h.fail(w, r, log, err)
		return
	}
	h.ok(w, r)
}

// SetNotifications включает или выключает напоминания.
func (h *Handler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.SetNotifications")

	var req models.NotificationsRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if err := h.service.SetNotifications(r.Context(), req.Enabled); err != nil {
		h.fail(w, r, log, err)
		return
	}
	h.ok(w, r)
}

// TogglePrivacy переключает режим скрытия сумм.
func (h *Handler) TogglePrivacy(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.TogglePrivacy")
	if _, err := h.service.TogglePrivacy(r.Context()); err != nil {
		h.fail(w, r, log, err)
		return
	}
	h.ok(w, r)
}

// Upgrade переводит на премиум.
func (h *Handler) Upgrade(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.Upgrade")
	if err := h.service.UpgradeToPremium(r.Context()); err != nil {
		h.fail(w, r, log, err)
		return
	}
	h.ok(w, r)
}

// Downgrade возвращает бесплатный план.
func (h *Handler) Downgrade(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.Downgrade")
	if err := h.service.DowngradeToFree(r.Context()); err != nil {
		h.fail(w, r, log, err)
		return
	}
	h.ok(w, r)
}

// AddCategory добавляет пользовательскую категорию.
func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.AddCategory")

	var req models.CategoryRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if err := h.service.AddCategory(r.Context(), req.Name); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.Status(r, http.StatusCreated)
	h.ok(w, r)
}

// RemoveCategory удаляет пользовательскую категорию.
func (h *Handler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.RemoveCategory")
	if err := h.service.RemoveCategory(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.fail(w, r, log, err)
		return
	}
	h.ok(w, r)
}
