// Package metrics объявляет метрики Prometheus приложения.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests количество обработанных HTTP-запросов.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subify_http_requests_total",
		Help: "Number of HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPDuration длительность обработки HTTP-запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "subify_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Renewals количество отметок об оплате.
	Renewals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subify_renewals_total",
		Help: "Number of renewals recorded.",
	})

	// Reverts количество отмен последней оплаты.
	Reverts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subify_reverts_total",
		Help: "Number of reverted payments.",
	})

	// PaywallDenials отказы тарифного ограничения по тегу причины.
	PaywallDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subify_paywall_denials_total",
		Help: "Number of plan gate denials by trigger.",
	}, []string{"trigger"})

	// RateRefreshes обновления курсов валют по результату.
	RateRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subify_rate_refreshes_total",
		Help: "Number of exchange rate refresh attempts by result.",
	}, []string{"result"})

	// PersistFailures неудачные сохранения состояния.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subify_persist_failures_total",
		Help: "Number of failed state saves.",
	})

	// RemindersPublished отправленные в очередь напоминания.
	RemindersPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subify_reminders_published_total",
		Help: "Number of renewal reminders published.",
	})
)

// Middleware считает запросы и их длительность по шаблону маршрута chi.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
