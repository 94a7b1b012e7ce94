// Package backup реализует HTTP-обработчики выгрузки и загрузки данных
// в форматах JSON (резервная копия) и CSV.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/subify/internal/http/response"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/transfer"
)

// MaxImportSize предельный размер загружаемого документа.
const MaxImportSize = 5 << 20

// Service снимок состояния и массовая замена данных.
type Service interface {
	Snapshot() models.State
	Today() models.Date
	ReplaceAll(ctx context.Context, state models.State) error
	AppendAll(ctx context.Context, subs []models.Subscription) error
}

// Handler обработчики /export и /import.
type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
	newID   func() string
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, now: time.Now, newID: uuid.NewString}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Export отдает данные файлом. format=json (по умолчанию) или csv.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.backup.Export")

	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(transfer.FormatJSON)
	}
	state := h.service.Snapshot()
	stamp := h.now().Format("2006-01-02")

	var err error
	switch transfer.Format(format) {
	case transfer.FormatJSON:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="subify-backup-%s.json"`, stamp))
		err = transfer.ExportJSON(w, state, h.now())
	case transfer.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="subify-%s.csv"`, stamp))
		err = transfer.ExportCSV(w, state.Subscriptions)
	default:
		log.Info("unknown export format", slog.String("format", format))
		response.WriteError(w, r, http.StatusBadRequest, "format must be json or csv")
		return
	}
	if err != nil {
		log.Error("failed to write export", sl.Err(err))
		return
	}
	log.Info("data exported", slog.String("format", format), slog.Int("subscriptions", len(state.Subscriptions)))
}

// Import разбирает документ целиком и только затем применяет его.
// Резервная копия JSON заменяет данные, строки CSV добавляются.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.backup.Import")

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxImportSize+1))
	if err != nil {
		log.Error("failed to read body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(data) > MaxImportSize {
		response.WriteError(w, r, http.StatusRequestEntityTooLarge, "document is too large")
		return
	}

	res, err := transfer.Import(data, h.service.Today(), h.newID)
	if err != nil {
		log.Info("import rejected", sl.Err(err))
		response.WriteError(w, r, http.StatusUnprocessableEntity, "unrecognized document format")
		return
	}
	if err := res.Apply(r.Context(), h.service); err != nil {
		log.Error("failed to apply import", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "could not import data")
		return
	}

	log.Info("data imported", slog.String("format", string(res.Format)), slog.Int("count", res.Count()))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"format":   res.Format,
		"imported": res.Count(),
	}))
}
