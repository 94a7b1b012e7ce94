package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CreateRequest тело запроса на добавление подписки.
// Даты приходят строками YYYY-MM-DD и разбираются в ToNew.
type CreateRequest struct {
	Name            string  `json:"name" validate:"required,max=128"`
	Price           float64 `json:"price" validate:"gte=0"`
	Currency        string  `json:"currency" validate:"required,oneof=TRY USD EUR"`
	Cycle           string  `json:"cycle" validate:"required,oneof=monthly quarterly yearly"`
	Category        string  `json:"category" validate:"required,max=64"`
	NextRenewalDate string  `json:"nextRenewalDate" validate:"required"`
	LastUsedDate    string  `json:"lastUsedDate,omitempty"`
	LogoURL         string  `json:"logoUrl,omitempty" validate:"omitempty,url"`
	SharedWith      int     `json:"sharedWith" validate:"gte=0"`
}

// ToNew преобразует запрос в доменные данные новой подписки.
func (r CreateRequest) ToNew() (NewSubscription, error) {
	next, err := ParseDate(r.NextRenewalDate)
	if err != nil {
		return NewSubscription{}, fmt.Errorf("invalid nextRenewalDate: %w", err)
	}
	n := NewSubscription{
		Name:            r.Name,
		Price:           decimal.NewFromFloat(r.Price),
		Currency:        Currency(r.Currency),
		Cycle:           Cycle(r.Cycle),
		Category:        r.Category,
		NextRenewalDate: next,
		LogoURL:         r.LogoURL,
		SharedWith:      r.SharedWith,
	}
	if r.LastUsedDate != "" {
		last, err := ParseDate(r.LastUsedDate)
		if err != nil {
			return NewSubscription{}, fmt.Errorf("invalid lastUsedDate: %w", err)
		}
		n.LastUsedDate = &last
	}
	return n, nil
}

// UpdateRequest тело запроса на частичное изменение подписки.
type UpdateRequest struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Price           *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Currency        *string  `json:"currency,omitempty" validate:"omitempty,oneof=TRY USD EUR"`
	Cycle           *string  `json:"cycle,omitempty" validate:"omitempty,oneof=monthly quarterly yearly"`
	Category        *string  `json:"category,omitempty" validate:"omitempty,min=1,max=64"`
	NextRenewalDate *string  `json:"nextRenewalDate,omitempty"`
	LastUsedDate    *string  `json:"lastUsedDate,omitempty"`
	LogoURL         *string  `json:"logoUrl,omitempty" validate:"omitempty,url"`
	SharedWith      *int     `json:"sharedWith,omitempty" validate:"omitempty,gte=0"`
}

// ToPatch преобразует запрос в патч подписки.
func (r UpdateRequest) ToPatch() (SubscriptionPatch, error) {
	p := SubscriptionPatch{
		Name:       r.Name,
		Category:   r.Category,
		LogoURL:    r.LogoURL,
		SharedWith: r.SharedWith,
	}
	if r.Price != nil {
		v := decimal.NewFromFloat(*r.Price)
		p.Price = &v
	}
	if r.Currency != nil {
		v := Currency(*r.Currency)
		p.Currency = &v
	}
	if r.Cycle != nil {
		v := Cycle(*r.Cycle)
		p.Cycle = &v
	}
	if r.NextRenewalDate != nil {
		d, err := ParseDate(*r.NextRenewalDate)
		if err != nil {
			return SubscriptionPatch{}, fmt.Errorf("invalid nextRenewalDate: %w", err)
		}
		p.NextRenewalDate = &d
	}
	if r.LastUsedDate != nil {
		d, err := ParseDate(*r.LastUsedDate)
		if err != nil {
			return SubscriptionPatch{}, fmt.Errorf("invalid lastUsedDate: %w", err)
		}
		p.LastUsedDate = &d
	}
	return p, nil
}

// CurrencyRequest смена базовой валюты.
type CurrencyRequest struct {
	Currency string `json:"currency" validate:"required,oneof=TRY USD EUR"`
}

// BudgetRequest установка месячного бюджета.
type BudgetRequest struct {
	MonthlyBudget float64 `json:"monthlyBudget" validate:"gte=0"`
}

// CategoryRequest добавление пользовательской категории.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// NotificationsRequest включение и выключение напоминаний.
type NotificationsRequest struct {
	Enabled bool `json:"enabled"`
}
