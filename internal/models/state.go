package models

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrentSchemaVersion версия формата сохраненного состояния.
// Версия 0 соответствует данным без поля schemaVersion.
const CurrentSchemaVersion = 1

// State полное состояние приложения: профиль и список подписок.
type State struct {
	SchemaVersion int            `json:"schemaVersion"`
	Profile       UserProfile    `json:"user"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// Clone возвращает глубокую копию состояния.
func (s State) Clone() State {
	c := State{
		SchemaVersion: s.SchemaVersion,
		Profile:       s.Profile.Clone(),
		Subscriptions: make([]Subscription, 0, len(s.Subscriptions)),
	}
	for _, sub := range s.Subscriptions {
		c.Subscriptions = append(c.Subscriptions, sub.Clone())
	}
	return c
}

// DefaultProfile профиль гостя, который используется без сохраненных данных.
func DefaultProfile() UserProfile {
	return UserProfile{
		ID:               "guest",
		Name:             "Misafir",
		Plan:             PlanFree,
		Currency:         CurrencyTRY,
		MonthlyBudget:    decimal.Zero,
		CustomCategories: []string{},
	}
}

// SampleSubscriptions демонстрационные подписки для пустого или испорченного хранилища.
func SampleSubscriptions() []Subscription {
	lastUsed := func(s string) *Date {
		d := MustParseDate(s)
		return &d
	}
	return []Subscription{
		{
			ID: "1", Name: "Netflix", Price: decimal.NewFromInt(129), Currency: CurrencyTRY,
			Cycle: CycleMonthly, Category: "entertainment",
			NextRenewalDate: MustParseDate("2023-11-20"), LastUsedDate: lastUsed("2023-11-18"),
			PaymentHistory: []PaymentRecord{},
		},
		{
			ID: "2", Name: "Spotify", Price: decimal.NewFromInt(69), Currency: CurrencyTRY,
			Cycle: CycleMonthly, Category: "music",
			NextRenewalDate: MustParseDate("2023-11-25"), LastUsedDate: lastUsed("2023-11-01"),
			PaymentHistory: []PaymentRecord{},
		},
		{
			ID: "3", Name: "Apple Music", Price: decimal.RequireFromString("19.99"), Currency: CurrencyTRY,
			Cycle: CycleMonthly, Category: "music",
			NextRenewalDate: MustParseDate("2025-12-19"), LastUsedDate: lastUsed("2025-12-01"),
			PaymentHistory: []PaymentRecord{},
		},
	}
}

// SampleState состояние с профилем гостя и демонстрационными подписками.
func SampleState() State {
	return State{
		SchemaVersion: CurrentSchemaVersion,
		Profile:       DefaultProfile(),
		Subscriptions: SampleSubscriptions(),
	}
}

// Normalize приводит загруженное состояние к текущей схеме и заполняет
// отсутствующие поля значениями по умолчанию. Повторяющиеся id заменяются
// новыми: первая подписка сохраняет свой. Применяется один раз при загрузке
// и при импорте.
func Normalize(s State, today Date) State {
	s.Profile = normalizeProfile(s.Profile)
	subs := make([]Subscription, 0, len(s.Subscriptions))
	seen := make(map[string]struct{}, len(s.Subscriptions))
	for _, sub := range s.Subscriptions {
		sub = NormalizeSubscription(sub, today)
		if _, dup := seen[sub.ID]; dup {
			sub.ID = uuid.NewString()
		}
		seen[sub.ID] = struct{}{}
		subs = append(subs, sub)
	}
	s.Subscriptions = subs
	s.SchemaVersion = CurrentSchemaVersion
	return s
}

// NormalizeSubscription заполняет пропуски одной подписки.
func NormalizeSubscription(sub Subscription, today Date) Subscription {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.NextRenewalDate.IsZero() {
		sub.NextRenewalDate = today
	}
	if sub.SharedWith < 0 {
		sub.SharedWith = 0
	}
	if sub.Currency == "" {
		sub.Currency = CurrencyTRY
	}
	if sub.Category == "" {
		sub.Category = DefaultCategory
	}
	// Платеж без даты не восстановить, такие записи отбрасываются.
	history := make([]PaymentRecord, 0, len(sub.PaymentHistory))
	for _, rec := range sub.PaymentHistory {
		if rec.Date.IsZero() {
			continue
		}
		if rec.Currency == "" {
			rec.Currency = sub.Currency
		}
		history = append(history, rec)
	}
	sub.PaymentHistory = history
	return sub
}

func normalizeProfile(p UserProfile) UserProfile {
	def := DefaultProfile()
	if p.ID == "" {
		p.ID = def.ID
	}
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.Plan != PlanPremium {
		p.Plan = PlanFree
	}
	if p.Currency == "" {
		p.Currency = def.Currency
	}
	if p.MonthlyBudget.IsNegative() {
		p.MonthlyBudget = decimal.Zero
	}
	cats := make([]string, 0, len(p.CustomCategories))
	for _, c := range p.CustomCategories {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(cats, c) || slices.Contains(DefaultCategories, c) {
			continue
		}
		cats = append(cats, c)
	}
	p.CustomCategories = cats
	return p
}
