package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "plain date", input: `"2024-06-15"`, want: NewDate(2024, time.June, 15)},
		{name: "rfc3339", input: `"2024-06-15T10:20:30Z"`, want: NewDate(2024, time.June, 15)},
		{name: "null", input: `null`, want: Date{}},
		{name: "empty", input: `""`, want: Date{}},
		{name: "garbage", input: `"15-06-2024"`, wantErr: true},
		{name: "number", input: `12`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(d), "got %s", d)
		})
	}

	out, err := json.Marshal(NewDate(2024, time.January, 2))
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-02"`, string(out))

	out, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(out))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01", d.String())

	require.NoError(t, d.Scan("2023-12-31"))
	assert.Equal(t, "2023-12-31", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestSubscription_MyShare(t *testing.T) {
	tests := []struct {
		name       string
		price      string
		sharedWith int
		want       string
	}{
		{name: "not shared", price: "129", sharedWith: 0, want: "129"},
		{name: "split in two", price: "1200", sharedWith: 1, want: "600"},
		{name: "split in four", price: "100", sharedWith: 3, want: "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{Price: decimal.RequireFromString(tt.price), SharedWith: tt.sharedWith}
			assert.True(t, sub.MyShare().Equal(decimal.RequireFromString(tt.want)), "got %s", sub.MyShare())
		})
	}
}

func TestSubscription_JSONNumbers(t *testing.T) {
	sub := Subscription{ID: "1", Name: "Netflix", Price: decimal.RequireFromString("129.5"), Currency: CurrencyTRY,
		Cycle: CycleMonthly, NextRenewalDate: NewDate(2024, 1, 1), PaymentHistory: []PaymentRecord{}}
	out, err := json.Marshal(sub)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"price":129.5`)
	assert.Contains(t, string(out), `"nextRenewalDate":"2024-01-01"`)
	assert.Contains(t, string(out), `"paymentHistory":[]`)
}

func TestSubscription_CloneIsDeep(t *testing.T) {
	last := NewDate(2024, 1, 1)
	sub := Subscription{
		LastUsedDate:   &last,
		PaymentHistory: []PaymentRecord{{Date: NewDate(2024, 1, 1)}},
	}
	c := sub.Clone()
	c.PaymentHistory[0].Date = NewDate(2025, 1, 1)
	*c.LastUsedDate = NewDate(2025, 1, 1)

	assert.Equal(t, "2024-01-01", sub.PaymentHistory[0].Date.String())
	assert.Equal(t, "2024-01-01", sub.LastUsedDate.String())
}

func TestNormalize_FillsDefaults(t *testing.T) {
	today := NewDate(2024, time.June, 15)
	st := State{
		Profile: UserProfile{
			Plan:             "gold",
			CustomCategories: []string{"games", " games ", "music", ""},
			MonthlyBudget:    decimal.NewFromInt(-5),
		},
		Subscriptions: []Subscription{
			{Name: "Legacy", Price: decimal.NewFromInt(10), SharedWith: -2,
				PaymentHistory: []PaymentRecord{{Date: NewDate(2024, 1, 1), Amount: decimal.NewFromInt(10)}}},
		},
	}

	got := Normalize(st, today)

	assert.Equal(t, CurrentSchemaVersion, got.SchemaVersion)
	assert.Equal(t, PlanFree, got.Profile.Plan)
	assert.Equal(t, CurrencyTRY, got.Profile.Currency)
	assert.Equal(t, "guest", got.Profile.ID)
	assert.Equal(t, []string{"games"}, got.Profile.CustomCategories)
	assert.True(t, got.Profile.MonthlyBudget.IsZero())

	require.Len(t, got.Subscriptions, 1)
	sub := got.Subscriptions[0]
	assert.NotEmpty(t, sub.ID)
	assert.True(t, today.Equal(sub.NextRenewalDate))
	assert.Equal(t, 0, sub.SharedWith)
	assert.Equal(t, CurrencyTRY, sub.Currency)
	assert.Equal(t, DefaultCategory, sub.Category)
	assert.Equal(t, CurrencyTRY, sub.PaymentHistory[0].Currency)
}

func TestNormalize_KeepsUnknownCycle(t *testing.T) {
	st := State{Subscriptions: []Subscription{{ID: "x", Cycle: "weekly"}}}
	got := Normalize(st, NewDate(2024, 1, 1))
	assert.Equal(t, Cycle("weekly"), got.Subscriptions[0].Cycle)
	assert.NotNil(t, got.Subscriptions[0].PaymentHistory)
}

func TestNormalize_UniqueIDsAndDatedPayments(t *testing.T) {
	st := State{Subscriptions: []Subscription{
		{ID: "a", Name: "One", PaymentHistory: []PaymentRecord{
			{Amount: decimal.NewFromInt(5)},
			{Date: NewDate(2024, 5, 1), Amount: decimal.NewFromInt(5)},
		}},
		{ID: "a", Name: "Two"},
		{ID: "b", Name: "Three"},
		{ID: "a", Name: "Four"},
	}}

	got := Normalize(st, NewDate(2024, 6, 15))

	require.Len(t, got.Subscriptions, 4)
	assert.Equal(t, "a", got.Subscriptions[0].ID)
	assert.Equal(t, "b", got.Subscriptions[2].ID)
	ids := map[string]bool{}
	for _, sub := range got.Subscriptions {
		assert.False(t, ids[sub.ID], "duplicate id %q", sub.ID)
		ids[sub.ID] = true
	}

	require.Len(t, got.Subscriptions[0].PaymentHistory, 1, "undated payment is dropped")
	assert.Equal(t, "2024-05-01", got.Subscriptions[0].PaymentHistory[0].Date.String())
	assert.Len(t, st.Subscriptions[0].PaymentHistory, 2, "input is not modified")
}

func TestUserProfile_Categories(t *testing.T) {
	p := UserProfile{CustomCategories: []string{"games", "other"}}
	assert.Equal(t, []string{"entertainment", "software", "education", "music", "other", "games"}, p.Categories())
}

func TestCreateRequest_ToNew(t *testing.T) {
	req := CreateRequest{
		Name: "Netflix", Price: 19.99, Currency: "USD", Cycle: "yearly",
		Category: "entertainment", NextRenewalDate: "2024-02-29", LastUsedDate: "2024-02-01", SharedWith: 2,
	}
	n, err := req.ToNew()
	require.NoError(t, err)
	assert.True(t, n.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, CycleYearly, n.Cycle)
	assert.Equal(t, "2024-02-29", n.NextRenewalDate.String())
	require.NotNil(t, n.LastUsedDate)

	req.NextRenewalDate = "tomorrow"
	_, err = req.ToNew()
	assert.Error(t, err)
}

func TestUpdateRequest_ToPatch(t *testing.T) {
	name := "Spotify Family"
	price := 99.0
	date := "2024-07-01"
	p, err := UpdateRequest{Name: &name, Price: &price, NextRenewalDate: &date}.ToPatch()
	require.NoError(t, err)

	sub := Subscription{Name: "Spotify", Price: decimal.NewFromInt(69), Category: "music"}
	p.Apply(&sub)
	assert.Equal(t, "Spotify Family", sub.Name)
	assert.True(t, sub.Price.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, "2024-07-01", sub.NextRenewalDate.String())
	assert.Equal(t, "music", sub.Category)
}
