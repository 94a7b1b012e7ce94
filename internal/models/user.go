package models

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Plan тарифный план пользователя.
type Plan string

// Тарифные планы.
const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// UserProfile профиль единственного пользователя приложения.
type UserProfile struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Email                string          `json:"email"`
	Plan                 Plan            `json:"plan"`
	Currency             Currency        `json:"currency"`
	MonthlyBudget        decimal.Decimal `json:"monthlyBudget"`
	CustomCategories     []string        `json:"customCategories"`
	NotificationsEnabled bool            `json:"notificationsEnabled"`
	PrivacyMode          bool            `json:"privacyMode"`
}

// IsPremium сообщает, что у пользователя платный план.
func (u UserProfile) IsPremium() bool {
	return u.Plan == PlanPremium
}

// Categories возвращает встроенные категории и пользовательские без повторов.
func (u UserProfile) Categories() []string {
	out := slices.Clone(DefaultCategories)
	for _, c := range u.CustomCategories {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Clone возвращает копию профиля без общих срезов.
func (u UserProfile) Clone() UserProfile {
	c := u
	c.CustomCategories = slices.Clone(u.CustomCategories)
	if c.CustomCategories == nil {
		c.CustomCategories = []string{}
	}
	return c
}

// Reminder сообщение о просроченных продлениях, которое планировщик
// отправляет в очередь уведомлений.
type Reminder struct {
	Email string         `json:"email"`
	Name  string         `json:"name"`
	AsOf  Date           `json:"as_of"`
	Items []ReminderItem `json:"items"`
}

// ReminderItem одна просроченная подписка в напоминании.
type ReminderItem struct {
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Currency        Currency        `json:"currency"`
	NextRenewalDate Date            `json:"next_renewal_date"`
}
