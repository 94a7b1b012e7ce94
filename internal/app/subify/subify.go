package subify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/subify/internal/cache"
	"github.com/magabrotheeeer/subify/internal/config"
	"github.com/magabrotheeeer/subify/internal/currency"
	"github.com/magabrotheeeer/subify/internal/http/handlers/backup"
	"github.com/magabrotheeeer/subify/internal/http/handlers/health"
	insightshandler "github.com/magabrotheeeer/subify/internal/http/handlers/insights"
	"github.com/magabrotheeeer/subify/internal/http/handlers/profile"
	"github.com/magabrotheeeer/subify/internal/http/handlers/rates"
	"github.com/magabrotheeeer/subify/internal/http/handlers/reports"
	"github.com/magabrotheeeer/subify/internal/http/handlers/subscriptions"
	"github.com/magabrotheeeer/subify/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/migrations"
	"github.com/magabrotheeeer/subify/internal/services/insights"
	"github.com/magabrotheeeer/subify/internal/services/report"
	"github.com/magabrotheeeer/subify/internal/services/subscription"
	"github.com/magabrotheeeer/subify/internal/storage/filestore"
	"github.com/magabrotheeeer/subify/internal/storage/postgresql"
)

// App HTTP API с зависимостями.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *postgresql.Storage
	cache   *cache.Cache
	store   *subscription.Store
	refresh *currency.Refresher
}

func waitForDB(ctx context.Context, dsn string, logger *slog.Logger) (*postgresql.Storage, error) {
	var lastErr error
	for range 10 {
		db, err := postgresql.New(ctx, dsn)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn("database is not ready, retrying", sl.Err(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return nil, fmt.Errorf("database not ready after retries: %w", lastErr)
}

// New создает приложение: хранилище, кэш курсов, сервисы и маршруты.
// Без строки подключения к postgres состояние хранится в файле StatePath.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}
	pingers := map[string]health.Pinger{}

	var repo subscription.Persister
	if cfg.StorageConnectionString != "" {
		db, err := waitForDB(ctx, cfg.StorageConnectionString, logger)
		if err != nil {
			return nil, err
		}
		if err = migrations.Run(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		repo = db
		pingers["postgres"] = db
	} else {
		logger.Info("no database configured, using state file", slog.String("path", cfg.StatePath))
		repo = filestore.New(cfg.StatePath)
	}

	var rateCache currency.Cache
	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		logger.Warn("redis is unavailable, caching rates on disk", sl.Err(err))
		rateCache = filestore.NewRateCache(filepath.Join(cfg.CacheDir, "rates.json"))
	} else {
		app.cache = cacheRedis
		rateCache = cacheRedis
		pingers["redis"] = cacheRedis
	}

	store, err := subscription.New(ctx, repo, logger)
	if err != nil {
		app.closeResources()
		return nil, err
	}
	app.store = store

	converter := currency.NewConverter(store.Profile().Currency)
	client := currency.NewClient(cfg.BaseURL, cfg.Timeout)
	app.refresh = currency.NewRefresher(converter, client, rateCache, cfg.TTL, logger)
	if err := app.refresh.Ensure(ctx, converter.Base()); err != nil {
		logger.Warn("starting with fallback rates", sl.Err(err))
	}

	router := NewRouter(logger, store, converter, app.refresh, pingers,
		middlewarectx.NewRateLimiter(cfg.RateLimit, cfg.RateBurst))

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// NewRouter собирает обработчики поверх store и конвертера.
func NewRouter(logger *slog.Logger, store *subscription.Store, converter *currency.Converter,
	refresher *currency.Refresher, pingers map[string]health.Pinger, limiter *middlewarectx.RateLimiter,
) chi.Router {
	store.OnBaseChange(refresher.SwitchBase)
	aggregator := report.New(store, converter)
	analyzer := insights.New(store, converter)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, limiter, Handlers{
		Subscriptions: subscriptions.New(logger, store),
		Reports:       reports.New(logger, aggregator, store),
		Insights:      insightshandler.New(logger, analyzer),
		Profile:       profile.New(logger, store),
		Rates:         rates.New(logger, converter, refresher),
		Backup:        backup.New(logger, store),
		Health:        health.New(logger, pingers),
	})
	return router
}

// Handler корневой обработчик сервера.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.closeResources()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.closeResources()
		return err
	}
}

func (a *App) closeResources() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
}
