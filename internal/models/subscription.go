// Package models содержит доменные структуры трекера подписок: подписку,
// историю платежей, профиль пользователя и версионированное состояние,
// а также DTO для приёма данных из JSON-запросов.
package models

import (
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	// Экспорт в JSON должен содержать числа, а не строки.
	decimal.MarshalJSONWithoutQuotes = true
}

// Currency код валюты ISO 4217.
type Currency string

// Поддерживаемые валюты.
const (
	CurrencyTRY Currency = "TRY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// SupportedCurrencies фиксированный список валют для выбора в подписке.
var SupportedCurrencies = []Currency{CurrencyTRY, CurrencyUSD, CurrencyEUR}

// IsSupported сообщает, входит ли валюта в фиксированный список.
func (c Currency) IsSupported() bool {
	return slices.Contains(SupportedCurrencies, c)
}

// Cycle период списания.
type Cycle string

// Периоды списания.
const (
	CycleMonthly   Cycle = "monthly"
	CycleQuarterly Cycle = "quarterly"
	CycleYearly    Cycle = "yearly"
)

// IsKnown сообщает, что период входит в перечисление.
func (c Cycle) IsKnown() bool {
	switch c {
	case CycleMonthly, CycleQuarterly, CycleYearly:
		return true
	}
	return false
}

// DefaultCategories встроенные категории, которые нельзя удалить.
var DefaultCategories = []string{"entertainment", "software", "education", "music", "other"}

// DefaultCategory категория по умолчанию для импорта.
const DefaultCategory = "other"

// PaymentRecord факт оплаты одного периода.
// Amount хранит полную цену на момент оплаты, без деления на участников.
type PaymentRecord struct {
	Date     Date            `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// Subscription регулярная подписка пользователя.
type Subscription struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Currency        Currency        `json:"currency"`
	Cycle           Cycle           `json:"cycle"`
	Category        string          `json:"category"`
	NextRenewalDate Date            `json:"nextRenewalDate"`
	LastUsedDate    *Date           `json:"lastUsedDate,omitempty"`
	LogoURL         string          `json:"logoUrl,omitempty"`
	SharedWith      int             `json:"sharedWith"`
	PaymentHistory  []PaymentRecord `json:"paymentHistory"`
}

// MyShare доля владельца: price / (sharedWith + 1).
func (s Subscription) MyShare() decimal.Decimal {
	return s.Price.Div(decimal.NewFromInt(int64(s.SharedWith) + 1))
}

// Clone возвращает копию без общих срезов и указателей.
func (s Subscription) Clone() Subscription {
	c := s
	c.PaymentHistory = slices.Clone(s.PaymentHistory)
	if c.PaymentHistory == nil {
		c.PaymentHistory = []PaymentRecord{}
	}
	if s.LastUsedDate != nil {
		d := *s.LastUsedDate
		c.LastUsedDate = &d
	}
	return c
}

// NewSubscription данные для добавления подписки.
type NewSubscription struct {
	Name            string
	Price           decimal.Decimal
	Currency        Currency
	Cycle           Cycle
	Category        string
	NextRenewalDate Date
	LastUsedDate    *Date
	LogoURL         string
	SharedWith      int
}

// SubscriptionPatch частичное изменение подписки. nil означает "не менять".
type SubscriptionPatch struct {
	Name            *string
	Price           *decimal.Decimal
	Currency        *Currency
	Cycle           *Cycle
	Category        *string
	NextRenewalDate *Date
	LastUsedDate    *Date
	LogoURL         *string
	SharedWith      *int
}

// Apply переносит заданные поля патча в подписку.
func (p SubscriptionPatch) Apply(s *Subscription) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.Cycle != nil {
		s.Cycle = *p.Cycle
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.NextRenewalDate != nil {
		s.NextRenewalDate = *p.NextRenewalDate
	}
	if p.LastUsedDate != nil {
		d := *p.LastUsedDate
		s.LastUsedDate = &d
	}
	if p.LogoURL != nil {
		s.LogoURL = *p.LogoURL
	}
	if p.SharedWith != nil {
		s.SharedWith = *p.SharedWith
	}
}
