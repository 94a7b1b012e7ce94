package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subify/internal/currency"
	"github.com/magabrotheeeer/subify/internal/models"
)

type fakeSource struct {
	state models.State
	today models.Date
}

func (f fakeSource) Snapshot() models.State { return f.state.Clone() }
func (f fakeSource) Today() models.Date     { return f.today }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) models.Date { return models.MustParseDate(s) }

func sub(name, price string, cur models.Currency, c models.Cycle, category, next string) models.Subscription {
	return models.Subscription{
		ID: name, Name: name, Price: dec(price), Currency: cur, Cycle: c,
		Category: category, NextRenewalDate: date(next), PaymentHistory: []models.PaymentRecord{},
	}
}

func newAggregator(subs ...models.Subscription) *Aggregator {
	src := fakeSource{
		state: models.State{Profile: models.DefaultProfile(), Subscriptions: subs},
		today: date("2024-06-15"),
	}
	return New(src, currency.NewConverter(models.CurrencyTRY))
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestMonthlyTotal(t *testing.T) {
	tests := []struct {
		name string
		subs []models.Subscription
		want string
	}{
		{
			name: "monthly full price",
			subs: []models.Subscription{sub("Netflix", "129", models.CurrencyTRY, models.CycleMonthly, "entertainment", "2024-07-01")},
			want: "129",
		},
		{
			name: "yearly shared with one",
			subs: []models.Subscription{func() models.Subscription {
				s := sub("Office", "1200", models.CurrencyTRY, models.CycleYearly, "software", "2024-09-01")
				s.SharedWith = 1
				return s
			}()},
			want: "50",
		},
		{
			name: "quarterly",
			subs: []models.Subscription{sub("Course", "90", models.CurrencyTRY, models.CycleQuarterly, "education", "2024-07-01")},
			want: "30",
		},
		{
			name: "mixed",
			subs: []models.Subscription{
				sub("Netflix", "129", models.CurrencyTRY, models.CycleMonthly, "entertainment", "2024-07-01"),
				sub("Course", "90", models.CurrencyTRY, models.CycleQuarterly, "education", "2024-07-01"),
			},
			want: "159",
		},
		{name: "empty", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDec(t, tt.want, newAggregator(tt.subs...).MonthlyTotal())
		})
	}
}

func TestMonthlyTotal_ConvertsToBase(t *testing.T) {
	conv := currency.NewConverter(models.CurrencyTRY)
	conv.SetRates(currency.Rates{
		Base:  models.CurrencyTRY,
		Rates: map[models.Currency]decimal.Decimal{models.CurrencyTRY: dec("1"), models.CurrencyUSD: dec("0.03")},
	})
	src := fakeSource{
		state: models.State{Subscriptions: []models.Subscription{
			sub("GitHub", "3", models.CurrencyUSD, models.CycleMonthly, "software", "2024-07-01"),
			sub("Spotify", "69", models.CurrencyTRY, models.CycleMonthly, "music", "2024-07-01"),
		}},
		today: date("2024-06-15"),
	}

	a := New(src, conv)
	assertDec(t, "169", a.MonthlyTotal())
	assert.Equal(t, models.CurrencyTRY, a.Currency())
}

func TestMonthlyReport(t *testing.T) {
	shared := sub("Family", "300", models.CurrencyTRY, models.CycleMonthly, "entertainment", "2024-06-20")
	shared.SharedWith = 2
	shared.PaymentHistory = []models.PaymentRecord{
		{Date: date("2024-05-20"), Amount: dec("300"), Currency: models.CurrencyTRY},
		{Date: date("2024-04-20"), Amount: dec("300"), Currency: models.CurrencyTRY},
	}
	solo := sub("Solo", "50", models.CurrencyTRY, models.CycleMonthly, "software", "2024-07-02")
	solo.PaymentHistory = []models.PaymentRecord{{Date: date("2024-06-02"), Amount: dec("50")}}

	a := newAggregator(shared, solo)

	may := a.MonthlyReport(time.May, 2024)
	assertDec(t, "100", may.Paid)
	assertDec(t, "0", may.Pending)

	june := a.MonthlyReport(time.June, 2024)
	assertDec(t, "50", june.Paid)
	assertDec(t, "100", june.Pending)
	assert.Equal(t, 6, june.Month)
	assert.Equal(t, 2024, june.Year)

	july := a.MonthlyReport(time.July, 2024)
	assertDec(t, "0", july.Paid)
	assertDec(t, "50", july.Pending)
}

func TestCategoryBreakdown(t *testing.T) {
	shared := sub("Office", "1200", models.CurrencyTRY, models.CycleYearly, "software", "2024-09-01")
	shared.SharedWith = 3
	a := newAggregator(
		shared,
		sub("IDE", "50", models.CurrencyTRY, models.CycleMonthly, "software", "2024-07-01"),
		sub("Netflix", "129", models.CurrencyTRY, models.CycleMonthly, "entertainment", "2024-07-01"),
		sub("Misc", "10", models.CurrencyTRY, models.CycleMonthly, "", "2024-07-01"),
	)

	got := a.CategoryBreakdown()
	require.Len(t, got, 3)
	assertDec(t, "150", got["software"])
	assertDec(t, "129", got["entertainment"])
	assertDec(t, "10", got["other"])

	sorted := a.Categories()
	require.Len(t, sorted, 3)
	assert.Equal(t, "software", sorted[0].Category)
	assert.Equal(t, "entertainment", sorted[1].Category)
	assert.Equal(t, "other", sorted[2].Category)
}

func TestSortCategories_TiesByName(t *testing.T) {
	got := SortCategories(map[string]decimal.Decimal{"b": dec("5"), "a": dec("5"), "c": dec("7")})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].Category, got[1].Category, got[2].Category})
}

func TestForecast_Monthly(t *testing.T) {
	a := newAggregator(
		sub("Past", "10", models.CurrencyTRY, models.CycleMonthly, "other", "2023-01-01"),
		sub("Future", "20", models.CurrencyTRY, models.CycleMonthly, "other", "2024-08-01"),
		sub("Quarter", "30", models.CurrencyTRY, models.CycleQuarterly, "other", "2024-05-10"),
		sub("Year", "120", models.CurrencyTRY, models.CycleYearly, "other", "2024-09-01"),
	)

	got := a.Forecast(UnitMonth, 8)
	want := []Point{
		{Label: "2024-06", Amount: dec("10")},
		{Label: "2024-07", Amount: dec("10")},
		{Label: "2024-08", Amount: dec("60")},
		{Label: "2024-09", Amount: dec("150")},
		{Label: "2024-10", Amount: dec("30")},
		{Label: "2024-11", Amount: dec("60")},
		{Label: "2024-12", Amount: dec("30")},
		{Label: "2025-01", Amount: dec("30")},
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Label, got[i].Label)
		assertDec(t, want[i].Amount.String(), got[i].Amount)
	}
}

func TestForecast_Yearly(t *testing.T) {
	a := newAggregator(
		sub("Monthly", "10", models.CurrencyTRY, models.CycleMonthly, "other", "2024-03-01"),
		sub("Quarter", "30", models.CurrencyTRY, models.CycleQuarterly, "other", "2024-06-01"),
		sub("Year", "120", models.CurrencyTRY, models.CycleYearly, "other", "2025-02-01"),
	)

	got := a.Forecast(UnitYear, 3)
	require.Len(t, got, 3)

	assert.Equal(t, "2024", got[0].Label)
	assertDec(t, "190", got[0].Amount) // 10*10 + 30*3
	assert.Equal(t, "2025", got[1].Label)
	assertDec(t, "360", got[1].Amount) // 10*12 + 30*4 + 120
	assert.Equal(t, "2026", got[2].Label)
	assertDec(t, "360", got[2].Amount)
}

func TestForecast_Horizon(t *testing.T) {
	a := newAggregator(sub("X", "1", models.CurrencyTRY, models.CycleMonthly, "other", "2024-01-01"))

	assert.Empty(t, a.Forecast(UnitMonth, 0))
	assert.Empty(t, a.Forecast(UnitMonth, -3))
	assert.Len(t, a.Forecast(UnitMonth, 1000), MaxHorizon)
}

func TestForecast_UnknownCycleNeverCharges(t *testing.T) {
	a := newAggregator(sub("X", "5", models.CurrencyTRY, models.Cycle("weekly"), "other", "2024-06-01"))
	for _, p := range a.Forecast(UnitMonth, 3) {
		assertDec(t, "0", p.Amount)
	}
}

func TestAnnualProjection(t *testing.T) {
	a := newAggregator(
		sub("M", "10", models.CurrencyTRY, models.CycleMonthly, "other", "2024-07-01"),
		sub("Q", "30", models.CurrencyTRY, models.CycleQuarterly, "other", "2024-07-01"),
		sub("Y", "100", models.CurrencyTRY, models.CycleYearly, "other", "2024-07-01"),
	)
	assertDec(t, "340", a.AnnualProjection())
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name         string
		budget       string
		wantEnabled  bool
		wantExceeded bool
		wantRemain   string
		wantPercent  string
	}{
		{name: "not set", budget: "0", wantRemain: "0", wantPercent: "0"},
		{name: "within", budget: "200", wantEnabled: true, wantRemain: "71", wantPercent: "64.5"},
		{name: "exceeded", budget: "100", wantEnabled: true, wantExceeded: true, wantRemain: "-29", wantPercent: "129"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := models.DefaultProfile()
			profile.MonthlyBudget = dec(tt.budget)
			src := fakeSource{
				state: models.State{Profile: profile, Subscriptions: []models.Subscription{
					sub("Netflix", "129", models.CurrencyTRY, models.CycleMonthly, "entertainment", "2024-07-01"),
				}},
				today: date("2024-06-15"),
			}
			got := New(src, currency.NewConverter(models.CurrencyTRY)).Budget()

			assert.Equal(t, tt.wantEnabled, got.Enabled)
			assert.Equal(t, tt.wantExceeded, got.Exceeded)
			assertDec(t, "129", got.Spent)
			assertDec(t, tt.wantRemain, got.Remaining)
			assertDec(t, tt.wantPercent, got.Percent)
		})
	}
}

func TestSummary(t *testing.T) {
	a := newAggregator(
		sub("Due", "100", models.CurrencyTRY, models.CycleMonthly, "other", "2024-06-15"),
		sub("Later", "50", models.CurrencyTRY, models.CycleMonthly, "other", "2024-06-16"),
	)

	got := a.Summary()
	assert.Equal(t, models.CurrencyTRY, got.Currency)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 1, got.Overdue)
	assertDec(t, "150", got.MonthlyTotal)
	assertDec(t, "1800", got.AnnualProjection)
	assertDec(t, "150", got.CurrentMonth.Pending)
	assert.False(t, got.Budget.Enabled)
}
