package currency

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/lib/metrics"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/models"
)

// DefaultTTL срок годности кэшированных курсов.
const DefaultTTL = 24 * time.Hour

// RateSource внешний источник курсов.
type RateSource interface {
	FetchRates(ctx context.Context, base models.Currency) (map[models.Currency]decimal.Decimal, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Refresher следит за свежестью курсов конвертера: берет их из кэша,
// если они не старше TTL и посчитаны для той же базы, иначе запрашивает источник.
type Refresher struct {
	converter *Converter
	source    RateSource
	cache     Cache
	ttl       time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewRefresher создает Refresher. cache может быть nil.
func NewRefresher(converter *Converter, source RateSource, cache Cache, ttl time.Duration, log *slog.Logger) *Refresher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Refresher{
		converter: converter,
		source:    source,
		cache:     cache,
		ttl:       ttl,
		log:       log,
		now:       time.Now,
	}
}

// CacheKey ключ кэша курсов для базовой валюты.
func CacheKey(base models.Currency) string {
	return "rates:" + string(base)
}

func (r *Refresher) fresh(rates Rates, base models.Currency) bool {
	return rates.Base == base && !rates.FetchedAt.IsZero() && r.now().Sub(rates.FetchedAt) < r.ttl
}

// Ensure гарантирует, что конвертер работает с курсами для base, не старше TTL.
// При ошибке источника остаются текущие (или тождественные) курсы.
func (r *Refresher) Ensure(ctx context.Context, base models.Currency) error {
	r.converter.SetBase(base)
	return r.load(ctx, base)
}

// load подгружает курсы для base из кэша или источника, не меняя базу конвертера.
func (r *Refresher) load(ctx context.Context, base models.Currency) error {
	const op = "currency.Refresher.load"

	if r.fresh(r.converter.Snapshot(), base) {
		return nil
	}
	if r.cache != nil {
		var cached Rates
		found, err := r.cache.Get(CacheKey(base), &cached)
		if err != nil {
			r.log.Warn("failed to read rates from cache", slog.String("op", op), sl.Err(err))
		}
		if found && r.fresh(cached, base) {
			if r.converter.SetRatesIfBase(cached) {
				r.log.Debug("rates loaded from cache", slog.String("base", string(base)))
			}
			return nil
		}
	}

	return r.Refresh(ctx, base)
}

// Refresh принудительно запрашивает курсы у источника.
func (r *Refresher) Refresh(ctx context.Context, base models.Currency) error {
	const op = "currency.Refresher.Refresh"

	fetched, err := r.source.FetchRates(ctx, base)
	if err != nil {
		metrics.RateRefreshes.WithLabelValues("error").Inc()
		r.log.Warn("failed to fetch rates, keeping current ones", slog.String("op", op),
			slog.String("base", string(base)), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	table := make(map[models.Currency]decimal.Decimal, len(fetched)+1)
	maps.Copy(table, fetched)
	if _, ok := table[base]; !ok {
		table[base] = decimal.NewFromInt(1)
	}
	rates := Rates{Base: base, Rates: table, FetchedAt: r.now()}
	metrics.RateRefreshes.WithLabelValues("ok").Inc()

	// База могла смениться, пока шел запрос: такие курсы только кэшируются.
	if r.converter.SetRatesIfBase(rates) {
		r.log.Info("rates refreshed", slog.String("base", string(base)), slog.Int("count", len(fetched)))
	} else {
		r.log.Info("base changed during fetch, rates not applied", slog.String("base", string(base)))
	}

	if r.cache != nil {
		if err := r.cache.Set(CacheKey(base), rates, r.ttl); err != nil {
			r.log.Warn("failed to cache rates", slog.String("op", op), sl.Err(err))
		}
	}
	return nil
}

// EnsureAsync подгружает курсы для base в фоне. Базу конвертера не меняет:
// если к моменту ответа база другая, курсы только кэшируются.
func (r *Refresher) EnsureAsync(base models.Currency) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = r.load(ctx, base)
	}()
}

// SwitchBase сразу переводит конвертер на новую базу и подгружает курсы в фоне.
func (r *Refresher) SwitchBase(base models.Currency) {
	r.converter.SetBase(base)
	r.EnsureAsync(base)
}
