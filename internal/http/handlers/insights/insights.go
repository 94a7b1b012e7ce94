// Package insights реализует HTTP-обработчик анализа расходов (премиум).
package insights

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/text/language"

	"github.com/magabrotheeeer/subify/internal/http/response"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/services/insights"
)

// Analyzer строит анализ на выбранном языке.
type Analyzer interface {
	Analyze(lang language.Tag) (insights.Analysis, error)
}

// Handler обработчик /insights.
type Handler struct {
	log      *slog.Logger
	analyzer Analyzer
}

// New создает Handler.
func New(log *slog.Logger, analyzer Analyzer) *Handler {
	return &Handler{log: log, analyzer: analyzer}
}

// ServeHTTP отдает анализ. Язык берется из параметра lang, иначе из Accept-Language.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.insights"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accept := r.URL.Query().Get("lang")
	if accept == "" {
		accept = r.Header.Get("Accept-Language")
	}
	lang := insights.MatchLanguage(accept)

	analysis, err := h.analyzer.Analyze(lang)
	if err != nil {
		if response.Denied(w, r, log, err) {
			return
		}
		log.Error("failed to analyze spending", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "could not analyze spending")
		return
	}
	log.Info("analysis built", slog.String("lang", lang.String()), slog.Int("tips", len(analysis.Tips)))
	render.JSON(w, r, response.OKWithData(analysis))
}
