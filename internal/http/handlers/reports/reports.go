// Package reports реализует HTTP-обработчики сводки расходов: главный экран,
// прогноз и категории доступны всем, месячный и годовой отчеты и выгрузка
// в Excel только на премиум плане.
package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/http/response"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/services/plan"
	"github.com/magabrotheeeer/subify/internal/services/report"
	"github.com/magabrotheeeer/subify/internal/transfer"
)

// DefaultHorizon длина прогноза, если horizon не задан.
const DefaultHorizon = 6

// Reporter вычисляет отчеты.
type Reporter interface {
	Currency() models.Currency
	Summary() report.Summary
	Forecast(unit report.Unit, horizon int) []report.Point
	Categories() []report.CategoryAmount
	MonthlyReport(month time.Month, year int) report.MonthlyReport
	AnnualProjection() decimal.Decimal
}

// PlanSource отдает текущий профиль для проверки тарифа.
type PlanSource interface {
	Profile() models.UserProfile
	Today() models.Date
}

// Handler обработчики /dashboard и /reports.
type Handler struct {
	log      *slog.Logger
	reporter Reporter
	plans    PlanSource
}

// New создает Handler.
func New(log *slog.Logger, reporter Reporter, plans PlanSource) *Handler {
	return &Handler{log: log, reporter: reporter, plans: plans}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// premium пишет 402, если отчеты недоступны на текущем плане.
func (h *Handler) premium(w http.ResponseWriter, r *http.Request, log *slog.Logger) bool {
	err := plan.Check(h.plans.Profile().Plan, plan.FeatureReports)
	if err == nil {
		return true
	}
	response.Denied(w, r, log, err)
	return false
}

// Summary данные главного экрана.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.reporter.Summary()))
}

// Forecast точки графика расходов. Параметры unit=month|year и horizon.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.Forecast")

	unit := report.UnitMonth
	if raw := r.URL.Query().Get("unit"); raw != "" {
		unit = report.Unit(raw)
		if !unit.IsKnown() {
			log.Info("unknown forecast unit", slog.String("unit", raw))
			response.WriteError(w, r, http.StatusBadRequest, "unit must be month or year")
			return
		}
	}
	horizon := DefaultHorizon
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			log.Info("invalid horizon", sl.Err(err))
			response.WriteError(w, r, http.StatusBadRequest, "horizon must be a number")
			return
		}
		horizon = n
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"currency": h.reporter.Currency(),
		"unit":     unit,
		"points":   h.reporter.Forecast(unit, horizon),
	}))
}

// Categories месячные расходы по категориям.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(map[string]any{
		"currency":   h.reporter.Currency(),
		"categories": h.reporter.Categories(),
	}))
}

// Monthly оплаченное и ожидающее за месяц month/year (по умолчанию текущий).
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.Monthly")
	if !h.premium(w, r, log) {
		return
	}

	today := h.plans.Today()
	month, year := int(today.Month()), today.Year()
	q := r.URL.Query()
	if raw := q.Get("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			response.WriteError(w, r, http.StatusBadRequest, "month must be 1..12")
			return
		}
		month = m
	}
	if raw := q.Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 {
			response.WriteError(w, r, http.StatusBadRequest, "year must be a positive number")
			return
		}
		year = y
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"currency": h.reporter.Currency(),
		"report":   h.reporter.MonthlyReport(time.Month(month), year),
	}))
}

// Annual годовой прогноз расходов.
func (h *Handler) Annual(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.Annual")
	if !h.premium(w, r, log) {
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"currency":         h.reporter.Currency(),
		"annualProjection": h.reporter.AnnualProjection(),
	}))
}

// XLSX выгружает отчет в Excel.
func (h *Handler) XLSX(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.reports.XLSX")
	if !h.premium(w, r, log) {
		return
	}

	data := transfer.ReportData{
		Summary:    h.reporter.Summary(),
		Forecast:   h.reporter.Forecast(report.UnitMonth, 12),
		Categories: h.reporter.Categories(),
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="subify-report.xlsx"`)
	if err := transfer.WriteReportXLSX(w, data); err != nil {
		log.Error("failed to write xlsx report", sl.Err(err))
		return
	}
	log.Info("xlsx report exported")
}
