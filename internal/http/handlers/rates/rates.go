// Package rates реализует HTTP-обработчики курсов валют.
package rates

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subify/internal/currency"
	"github.com/magabrotheeeer/subify/internal/http/response"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/models"
)

// Converter текущее состояние конвертера.
type Converter interface {
	Base() models.Currency
	Snapshot() currency.Rates
}

// Refresher принудительно обновляет курсы.
type Refresher interface {
	Refresh(ctx context.Context, base models.Currency) error
}

// Handler обработчики /rates.
type Handler struct {
	log       *slog.Logger
	converter Converter
	refresher Refresher
}

// New создает Handler.
func New(log *slog.Logger, converter Converter, refresher Refresher) *Handler {
	return &Handler{log: log, converter: converter, refresher: refresher}
}

// Get возвращает базовую валюту, курсы и время их получения.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.converter.Snapshot()))
}

// Refresh запрашивает свежие курсы у источника. При ошибке курсы не меняются.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.rates.Refresh"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.refresher.Refresh(r.Context(), h.converter.Base()); err != nil {
		log.Warn("rate refresh failed", sl.Err(err))
		response.WriteError(w, r, http.StatusBadGateway, "could not refresh exchange rates")
		return
	}
	render.JSON(w, r, response.OKWithData(h.converter.Snapshot()))
}
