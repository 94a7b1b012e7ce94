// Package subscriptions реализует HTTP-обработчики подписок: список, чтение,
// добавление, изменение, удаление, отметку об оплате, ее отмену, выборку
// просроченных и выгрузку напоминания в календарь.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subify/internal/http/response"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/services/subscription"
	"github.com/magabrotheeeer/subify/internal/transfer"
)

// Service описывает операции хранилища подписок, нужные обработчикам.
type Service interface {
	List() []models.Subscription
	Get(id string) (models.Subscription, error)
	Add(ctx context.Context, n models.NewSubscription) (models.Subscription, error)
	Update(ctx context.Context, id string, patch models.SubscriptionPatch) (models.Subscription, error)
	Remove(ctx context.Context, id string) error
	Renew(ctx context.Context, id string) (models.Subscription, error)
	RevertLastPayment(ctx context.Context, id string) (models.Subscription, error)
	Overdue(asOf models.Date) []models.Subscription
	Today() models.Date
}

// Handler обработчики ресурса /subscriptions.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	now      func() time.Time
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// fail пишет ответ по ошибке хранилища.
func fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, msg string) {
	if response.Denied(w, r, log, err) {
		return
	}
	if errors.Is(err, subscription.ErrNotFound) {
		log.Info("subscription not found", sl.Err(err))
		response.WriteError(w, r, http.StatusNotFound, "subscription not found")
		return
	}
	log.Error(msg, sl.Err(err))
	response.WriteError(w, r, http.StatusInternalServerError, msg)
}

// List возвращает все подписки в порядке хранения.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.List")
	subs := h.service.List()
	log.Debug("subscriptions listed", slog.Int("count", len(subs)))
	render.JSON(w, r, response.OKWithData(subs))
}

// Read возвращает подписку по id.
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Read")
	sub, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, log, err, "could not read subscription")
		return
	}
	render.JSON(w, r, response.OKWithData(sub))
}

// Create добавляет подписку. На бесплатном плане при исчерпанном лимите
// отвечает 402 с trigger=limit_reached.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Create")

	var req models.CreateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !response.Validate(w, r, log, h.validate, req) {
		return
	}
	n, err := req.ToNew()
	if err != nil {
		log.Error("invalid dates", sl.Err(err))
		response.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sub, err := h.service.Add(r.Context(), n)
	if err != nil {
		fail(w, r, log, err, "could not create subscription")
		return
	}
	log.Info("subscription created", slog.String("id", sub.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sub))
}

// Update частично изменяет подписку.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Update")

	var req models.UpdateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !response.Validate(w, r, log, h.validate, req) {
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		log.Error("invalid dates", sl.Err(err))
		response.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sub, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		fail(w, r, log, err, "could not update subscription")
		return
	}
	log.Info("subscription updated", slog.String("id", sub.ID))
	render.JSON(w, r, response.OKWithData(sub))
}

// Remove удаляет подписку.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Remove")
	id := chi.URLParam(r, "id")
	if err := h.service.Remove(r.Context(), id); err != nil {
		fail(w, r, log, err, "could not remove subscription")
		return
	}
	log.Info("subscription removed", slog.String("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"removed_id": id}))
}

// Renew отмечает текущий период оплаченным.
func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Renew")
	sub, err := h.service.Renew(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, log, err, "could not renew subscription")
		return
	}
	log.Info("subscription renewed", slog.String("id", sub.ID), slog.String("next", sub.NextRenewalDate.String()))
	render.JSON(w, r, response.OKWithData(sub))
}

// Revert отменяет последнюю отметку об оплате.
func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Revert")
	sub, err := h.service.RevertLastPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, log, err, "could not revert payment")
		return
	}
	log.Info("payment reverted", slog.String("id", sub.ID))
	render.JSON(w, r, response.OKWithData(sub))
}

// Overdue возвращает подписки, ожидающие оплаты на дату as_of (по умолчанию сегодня).
func (h *Handler) Overdue(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Overdue")

	asOf := h.service.Today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			log.Error("invalid as_of", sl.Err(err))
			response.WriteError(w, r, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = d
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"as_of":         asOf,
		"subscriptions": h.service.Overdue(asOf),
	}))
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Calendar отдает файл .ics с напоминанием о продлении.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Calendar")
	sub, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, log, err, "could not read subscription")
		return
	}
	if sub.NextRenewalDate.IsZero() {
		response.WriteError(w, r, http.StatusUnprocessableEntity, "subscription has no renewal date")
		return
	}

	filename := unsafeFileChars.ReplaceAllString(sub.Name, "_")
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, filename))
	if err := transfer.WriteICS(w, sub, h.now()); err != nil {
		log.Error("failed to write calendar", sl.Err(err))
	}
}
