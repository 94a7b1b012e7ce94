// Package subify собирает HTTP API: зависимости, маршруты и сервер.
package subify

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/subify/internal/http/handlers/backup"
	"github.com/magabrotheeeer/subify/internal/http/handlers/health"
	"github.com/magabrotheeeer/subify/internal/http/handlers/insights"
	"github.com/magabrotheeeer/subify/internal/http/handlers/profile"
	"github.com/magabrotheeeer/subify/internal/http/handlers/rates"
	"github.com/magabrotheeeer/subify/internal/http/handlers/reports"
	"github.com/magabrotheeeer/subify/internal/http/handlers/subscriptions"
	"github.com/magabrotheeeer/subify/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subify/internal/lib/metrics"
)

// Handlers набор обработчиков API.
type Handlers struct {
	Subscriptions *subscriptions.Handler
	Reports       *reports.Handler
	Insights      *insights.Handler
	Profile       *profile.Handler
	Rates         *rates.Handler
	Backup        *backup.Handler
	Health        *health.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, limiter *middlewarectx.RateLimiter, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware(logger))
		}

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", h.Subscriptions.List)
			r.Post("/", h.Subscriptions.Create)
			r.Get("/overdue", h.Subscriptions.Overdue)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Subscriptions.Read)
				r.Put("/", h.Subscriptions.Update)
				r.Delete("/", h.Subscriptions.Remove)
				r.Post("/renew", h.Subscriptions.Renew)
				r.Post("/revert", h.Subscriptions.Revert)
				r.Get("/calendar", h.Subscriptions.Calendar)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", h.Reports.Summary)
			r.Get("/forecast", h.Reports.Forecast)
			r.Get("/categories", h.Reports.Categories)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly", h.Reports.Monthly)
			r.Get("/annual", h.Reports.Annual)
			// URLFormat отрезает расширение: /export.xlsx приходит сюда.
			r.Get("/export", h.Reports.XLSX)
		})

		r.Get("/insights", h.Insights.ServeHTTP)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.Profile.Get)
			r.Put("/currency", h.Profile.SetCurrency)
			r.Put("/budget", h.Profile.SetBudget)
			r.Put("/notifications", h.Profile.SetNotifications)
			r.Post("/privacy/toggle", h.Profile.TogglePrivacy)
			r.Post("/plan/upgrade", h.Profile.Upgrade)
			r.Post("/plan/downgrade", h.Profile.Downgrade)
			r.Post("/categories", h.Profile.AddCategory)
			r.Delete("/categories/{name}", h.Profile.RemoveCategory)
		})

		r.Get("/rates", h.Rates.Get)
		r.Post("/rates/refresh", h.Rates.Refresh)

		r.Get("/export", h.Backup.Export)
		r.Post("/import", h.Backup.Import)
	})

	r.Get("/health", h.Health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
