// Package currency пересчитывает цены подписок в базовую валюту пользователя,
// загружает курсы из внешнего источника и кэширует их с ограниченным сроком жизни.
package currency

import (
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/models"
)

// Rates снимок курсов: 1 единица Base равна Rates[code] единицам code.
type Rates struct {
	Base      models.Currency                     `json:"base"`
	Rates     map[models.Currency]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                           `json:"timestamp"`
}

// DefaultRates курс 1 для каждой поддерживаемой валюты.
func DefaultRates(base models.Currency) Rates {
	rates := make(map[models.Currency]decimal.Decimal, len(models.SupportedCurrencies))
	for _, c := range models.SupportedCurrencies {
		rates[c] = decimal.NewFromInt(1)
	}
	rates[base] = decimal.NewFromInt(1)
	return Rates{Base: base, Rates: rates}
}

// Converter хранит базовую валюту и таблицу курсов.
// Курсы обновляются в фоне, поэтому доступ защищен мьютексом.
type Converter struct {
	mu    sync.RWMutex
	rates Rates
}

// NewConverter создает конвертер с тождественными курсами.
func NewConverter(base models.Currency) *Converter {
	return &Converter{rates: DefaultRates(base)}
}

// Base возвращает текущую базовую валюту.
func (c *Converter) Base() models.Currency {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rates.Base
}

// Convert пересчитывает amount из валюты from в базовую.
// Если курс неизвестен или равен нулю, сумма возвращается без изменений.
func (c *Converter) Convert(amount decimal.Decimal, from models.Currency) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if from == c.rates.Base {
		return amount
	}
	rate, ok := c.rates.Rates[from]
	if !ok || rate.IsZero() {
		return amount
	}
	return amount.Div(rate)
}

// SetRates заменяет базовую валюту и курсы одновременно.
func (c *Converter) SetRates(r Rates) {
	cp := cloneRates(r)
	c.mu.Lock()
	c.rates = cp
	c.mu.Unlock()
}

// SetRatesIfBase применяет курсы, только если база конвертера все еще r.Base.
// Возвращает false, если база успела смениться.
func (c *Converter) SetRatesIfBase(r Rates) bool {
	cp := cloneRates(r)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rates.Base != r.Base {
		return false
	}
	c.rates = cp
	return true
}

func cloneRates(r Rates) Rates {
	cp := Rates{Base: r.Base, Rates: maps.Clone(r.Rates), FetchedAt: r.FetchedAt}
	if cp.Rates == nil {
		cp.Rates = map[models.Currency]decimal.Decimal{}
	}
	return cp
}

// SetBase меняет базовую валюту и сбрасывает курсы на тождественные,
// пока не придут свежие.
func (c *Converter) SetBase(base models.Currency) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rates.Base == base {
		return
	}
	c.rates = DefaultRates(base)
}

// Snapshot возвращает копию текущих курсов.
func (c *Converter) Snapshot() Rates {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Rates{Base: c.rates.Base, Rates: maps.Clone(c.rates.Rates), FetchedAt: c.rates.FetchedAt}
}
