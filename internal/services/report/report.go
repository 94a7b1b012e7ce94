// Package report считает сводные показатели расходов в базовой валюте
// пользователя: месячные суммы, разбивку по категориям и прогноз списаний.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/lib/cycle"
	"github.com/magabrotheeeer/subify/internal/models"
)

// StateSource источник текущего состояния.
type StateSource interface {
	Snapshot() models.State
	Today() models.Date
}

// Converter пересчитывает суммы в базовую валюту.
type Converter interface {
	Base() models.Currency
	Convert(amount decimal.Decimal, from models.Currency) decimal.Decimal
}

// Unit шаг прогноза.
type Unit string

// Шаги прогноза.
const (
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// IsKnown сообщает, поддерживается ли шаг.
func (u Unit) IsKnown() bool {
	return u == UnitMonth || u == UnitYear
}

// MaxHorizon ограничивает длину прогноза.
const MaxHorizon = 120

var (
	three   = decimal.NewFromInt(3)
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// MonthlyReport оплаченное и ожидающее оплаты за месяц.
type MonthlyReport struct {
	Month   int             `json:"month"`
	Year    int             `json:"year"`
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
}

// CategoryAmount сумма по одной категории.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Point одна точка прогноза.
type Point struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// BudgetStatus состояние месячного бюджета.
type BudgetStatus struct {
	Enabled   bool            `json:"enabled"`
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
	Percent   decimal.Decimal `json:"percent"`
}

// Summary данные главного экрана.
type Summary struct {
	Currency         models.Currency `json:"currency"`
	Count            int             `json:"count"`
	MonthlyTotal     decimal.Decimal `json:"monthlyTotal"`
	AnnualProjection decimal.Decimal `json:"annualProjection"`
	Budget           BudgetStatus    `json:"budget"`
	CurrentMonth     MonthlyReport   `json:"currentMonth"`
	Overdue          int             `json:"overdue"`
}

// Aggregator вычисляет отчеты по снимку состояния.
type Aggregator struct {
	source    StateSource
	converter Converter
}

// New создает Aggregator.
func New(source StateSource, converter Converter) *Aggregator {
	return &Aggregator{source: source, converter: converter}
}

// Currency базовая валюта отчетов.
func (a *Aggregator) Currency() models.Currency {
	return a.converter.Base()
}

// MonthlyAmount приводит цену к месяцу: годовую делит на 12, квартальную на 3.
func MonthlyAmount(price decimal.Decimal, c models.Cycle) decimal.Decimal {
	switch c {
	case models.CycleYearly:
		return price.Div(twelve)
	case models.CycleQuarterly:
		return price.Div(three)
	}
	return price
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MonthlyTotal сумма долей пользователя в месячном выражении.
func (a *Aggregator) MonthlyTotal() decimal.Decimal {
	return round(a.monthlyTotal(a.source.Snapshot().Subscriptions))
}

func (a *Aggregator) monthlyTotal(subs []models.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		total = total.Add(a.converter.Convert(MonthlyAmount(sub.MyShare(), sub.Cycle), sub.Currency))
	}
	return total
}

// MonthlyReport считает оплаченное и ожидающее за месяц. Доля в прошлых
// платежах пересчитывается по текущему sharedWith.
func (a *Aggregator) MonthlyReport(month time.Month, year int) MonthlyReport {
	return a.monthlyReport(a.source.Snapshot().Subscriptions, month, year)
}

func (a *Aggregator) monthlyReport(subs []models.Subscription, month time.Month, year int) MonthlyReport {
	paid, pending := decimal.Zero, decimal.Zero
	for _, sub := range subs {
		divisor := decimal.NewFromInt(int64(max(sub.SharedWith, 0) + 1))
		for _, rec := range sub.PaymentHistory {
			if !rec.Date.SameMonth(month, year) {
				continue
			}
			cur := rec.Currency
			if cur == "" {
				cur = sub.Currency
			}
			paid = paid.Add(a.converter.Convert(rec.Amount.Div(divisor), cur))
		}
		if sub.NextRenewalDate.SameMonth(month, year) {
			pending = pending.Add(a.converter.Convert(sub.MyShare(), sub.Currency))
		}
	}
	return MonthlyReport{Month: int(month), Year: year, Paid: round(paid), Pending: round(pending)}
}

// CategoryBreakdown полные (без учета деления) месячные расходы по категориям.
func (a *Aggregator) CategoryBreakdown() map[string]decimal.Decimal {
	return Breakdown(a.converter, a.source.Snapshot().Subscriptions)
}

// Breakdown считает разбивку по категориям для переданного списка подписок.
func Breakdown(conv Converter, subs []models.Subscription) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, sub := range subs {
		cat := sub.Category
		if cat == "" {
			cat = models.DefaultCategory
		}
		amount := conv.Convert(MonthlyAmount(sub.Price, sub.Cycle), sub.Currency)
		out[cat] = out[cat].Add(amount)
	}
	for k, v := range out {
		out[k] = round(v)
	}
	return out
}

// Categories разбивка по категориям по убыванию суммы, при равенстве по имени.
func (a *Aggregator) Categories() []CategoryAmount {
	return SortCategories(a.CategoryBreakdown())
}

// SortCategories упорядочивает разбивку по убыванию суммы.
func SortCategories(m map[string]decimal.Decimal) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for k, v := range m {
		out = append(out, CategoryAmount{Category: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Forecast прогноз списаний на horizon периодов начиная с текущего.
// Подписка списывается в месяце, если от месяца ее даты продления прошло
// неотрицательное число месяцев, кратное длине периода. В годовом режиме
// сумма за год равна цене, умноженной на число таких месяцев в году.
func (a *Aggregator) Forecast(unit Unit, horizon int) []Point {
	state := a.source.Snapshot()
	return a.forecast(state.Subscriptions, a.source.Today(), unit, horizon)
}

func (a *Aggregator) forecast(subs []models.Subscription, today models.Date, unit Unit, horizon int) []Point {
	horizon = min(max(horizon, 0), MaxHorizon)
	points := make([]Point, 0, horizon)
	start := models.NewDate(today.Year(), today.Month(), 1)

	for i := range horizon {
		total := decimal.Zero
		var label string
		switch unit {
		case UnitYear:
			year := today.Year() + i
			label = models.NewDate(year, time.January, 1).Format("2006")
			for _, sub := range subs {
				n := cycle.ChargesInYear(sub.NextRenewalDate, sub.Cycle, year)
				if n == 0 {
					continue
				}
				amount := sub.Price.Mul(decimal.NewFromInt(int64(n)))
				total = total.Add(a.converter.Convert(amount, sub.Currency))
			}
		default:
			period := start.AddDate(0, i, 0)
			label = period.Format("2006-01")
			for _, sub := range subs {
				if cycle.ChargesIn(sub.NextRenewalDate, sub.Cycle, period.Month(), period.Year()) {
					total = total.Add(a.converter.Convert(sub.Price, sub.Currency))
				}
			}
		}
		points = append(points, Point{Label: label, Amount: round(total)})
	}
	return points
}

// AnnualProjection полная стоимость всех подписок за год.
func (a *Aggregator) AnnualProjection() decimal.Decimal {
	return round(a.annualProjection(a.source.Snapshot().Subscriptions))
}

func (a *Aggregator) annualProjection(subs []models.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		n := cycle.Months(sub.Cycle)
		if n == 0 {
			n = 1
		}
		perYear := decimal.NewFromInt(int64(12 / n))
		total = total.Add(a.converter.Convert(sub.Price.Mul(perYear), sub.Currency))
	}
	return total
}

// Budget сравнивает месячную сумму с бюджетом профиля.
func (a *Aggregator) Budget() BudgetStatus {
	state := a.source.Snapshot()
	return budgetStatus(state.Profile.MonthlyBudget, round(a.monthlyTotal(state.Subscriptions)))
}

func budgetStatus(budget, spent decimal.Decimal) BudgetStatus {
	st := BudgetStatus{Budget: budget, Spent: spent, Remaining: decimal.Zero, Percent: decimal.Zero}
	if !budget.IsPositive() {
		return st
	}
	st.Enabled = true
	st.Remaining = budget.Sub(spent)
	st.Exceeded = spent.GreaterThan(budget)
	st.Percent = spent.Div(budget).Mul(hundred).Round(1)
	return st
}

// Summary собирает данные главного экрана за один снимок состояния.
func (a *Aggregator) Summary() Summary {
	state := a.source.Snapshot()
	today := a.source.Today()
	monthly := round(a.monthlyTotal(state.Subscriptions))

	overdue := 0
	for _, sub := range state.Subscriptions {
		if !sub.NextRenewalDate.IsZero() && !sub.NextRenewalDate.After(today) {
			overdue++
		}
	}

	return Summary{
		Currency:         a.converter.Base(),
		Count:            len(state.Subscriptions),
		MonthlyTotal:     monthly,
		AnnualProjection: round(a.annualProjection(state.Subscriptions)),
		Budget:           budgetStatus(state.Profile.MonthlyBudget, monthly),
		CurrentMonth:     a.monthlyReport(state.Subscriptions, today.Month(), today.Year()),
		Overdue:          overdue,
	}
}
