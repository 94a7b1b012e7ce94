package rates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subify/internal/currency"
	"github.com/magabrotheeeer/subify/internal/models"
)

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context, base models.Currency) error {
	return m.Called(ctx, base).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestHandler_Get(t *testing.T) {
	conv := currency.NewConverter(models.CurrencyTRY)
	w := httptest.NewRecorder()
	New(newNoopLogger(), conv, new(MockRefresher)).Get(w, httptest.NewRequest(http.MethodGet, "/api/v1/rates", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"base":"TRY"`)
	assert.Contains(t, w.Body.String(), `"USD":1`)
}

func TestHandler_Refresh(t *testing.T) {
	conv := currency.NewConverter(models.CurrencyTRY)
	refresher := new(MockRefresher)
	refresher.On("Refresh", mock.Anything, models.CurrencyTRY).Run(func(mock.Arguments) {
		conv.SetRates(currency.Rates{
			Base:      models.CurrencyTRY,
			Rates:     map[models.Currency]decimal.Decimal{models.CurrencyTRY: decimal.NewFromInt(1), models.CurrencyUSD: decimal.RequireFromString("0.031")},
			FetchedAt: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		})
	}).Return(nil).Once()
	refresher.On("Refresh", mock.Anything, models.CurrencyTRY).Return(errors.New("upstream down")).Once()

	h := New(newNoopLogger(), conv, refresher)

	w := httptest.NewRecorder()
	h.Refresh(w, httptest.NewRequest(http.MethodPost, "/api/v1/rates/refresh", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"USD":0.031`)

	w = httptest.NewRecorder()
	h.Refresh(w, httptest.NewRequest(http.MethodPost, "/api/v1/rates/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "0.031", conv.Snapshot().Rates[models.CurrencyUSD].String(), "failed refresh keeps rates")
	refresher.AssertExpectations(t)
}
