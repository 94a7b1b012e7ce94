package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subify/internal/currency"
	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/storage"
)

func TestStore_LoadMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))

	st, err := s.Load(context.Background())
	assert.Nil(t, st)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrMalformed)
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := New(path)

	state := models.SampleState()
	state.Subscriptions[0].PaymentHistory = []models.PaymentRecord{
		{Date: models.MustParseDate("2023-10-20"), Amount: decimal.NewFromInt(129), Currency: models.CurrencyTRY},
	}
	require.NoError(t, s.Save(context.Background(), state))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.Profile.ID, loaded.Profile.ID)
	require.Len(t, loaded.Subscriptions, len(state.Subscriptions))
	assert.Equal(t, "Netflix", loaded.Subscriptions[0].Name)
	assert.True(t, loaded.Subscriptions[0].Price.Equal(decimal.NewFromInt(129)))
	require.Len(t, loaded.Subscriptions[0].PaymentHistory, 1)
	assert.Equal(t, "2023-10-20", loaded.Subscriptions[0].PaymentHistory[0].Date.String())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, models.SampleState()))
	require.NoError(t, s.Save(ctx, models.State{Profile: models.DefaultProfile()}))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Subscriptions)
}

func TestRateCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.json")
	c := NewRateCache(path)
	clock := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	rates := currency.Rates{
		Base:      models.CurrencyTRY,
		Rates:     map[models.Currency]decimal.Decimal{models.CurrencyUSD: decimal.RequireFromString("0.031")},
		FetchedAt: clock,
	}
	require.NoError(t, c.Set(currency.CacheKey(models.CurrencyTRY), rates, time.Hour))

	var got currency.Rates
	found, err := c.Get(currency.CacheKey(models.CurrencyTRY), &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.CurrencyTRY, got.Base)
	assert.True(t, got.Rates[models.CurrencyUSD].Equal(decimal.RequireFromString("0.031")))

	found, err = c.Get("rates:USD", &got)
	require.NoError(t, err)
	assert.False(t, found)

	clock = clock.Add(2 * time.Hour)
	found, err = c.Get(currency.CacheKey(models.CurrencyTRY), &got)
	require.NoError(t, err)
	assert.False(t, found, "expired entry")
}

func TestRateCache_Invalidate(t *testing.T) {
	c := NewRateCache(filepath.Join(t.TempDir(), "rates.json"))

	require.NoError(t, c.Set("k", "v", time.Hour))
	require.NoError(t, c.Invalidate("k"))
	require.NoError(t, c.Invalidate("missing"))

	var out string
	found, err := c.Get("k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRateCache_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	c := NewRateCache(path)

	var out string
	found, err := c.Get("k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set("k", "v", time.Hour))
	found, err = c.Get("k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", out)
}
