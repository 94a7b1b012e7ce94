package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/services/report"
)

var (
	today = models.MustParseDate("2024-06-15")
	now   = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)
)

func seqID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func sample() []models.Subscription {
	return []models.Subscription{
		{
			ID: "s1", Name: "Netflix", Price: decimal.RequireFromString("129"), Currency: models.CurrencyTRY,
			Cycle: models.CycleMonthly, Category: "entertainment", NextRenewalDate: models.MustParseDate("2024-07-01"),
			PaymentHistory: []models.PaymentRecord{},
		},
		{
			ID: "s2", Name: `Big "Cloud", Inc`, Price: decimal.RequireFromString("19.99"), Currency: models.CurrencyUSD,
			Cycle: models.CycleYearly, Category: "software", NextRenewalDate: models.MustParseDate("2025-01-31"),
			SharedWith: 2, PaymentHistory: []models.PaymentRecord{},
		},
	}
}

func TestExportJSON(t *testing.T) {
	state := models.State{Profile: models.DefaultProfile(), Subscriptions: sample()}

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, state, now))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "1.0", doc["version"])
	assert.Equal(t, "2024-06-15T09:30:00Z", doc["exportedAt"])
	assert.IsType(t, map[string]any{}, doc["user"])
	assert.Len(t, doc["subscriptions"], 2)
	assert.Contains(t, buf.String(), "\n  \"user\"")

	parsed, err := ParseJSON(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "guest", parsed.Profile.ID)
	require.Len(t, parsed.Subscriptions, 2)
	assert.True(t, parsed.Subscriptions[1].Price.Equal(decimal.RequireFromString("19.99")))
}

func TestParseJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "Name,Price\nA,1"},
		{name: "missing user", data: `{"subscriptions": []}`},
		{name: "user not object", data: `{"user": "x", "subscriptions": []}`},
		{name: "subscriptions not array", data: `{"user": {}, "subscriptions": {}}`},
		{name: "bad subscription", data: `{"user": {}, "subscriptions": [{"price": "abc"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, sample()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, BOM))
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, BOM), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Price,Currency,Cycle,Category,NextRenewalDate,SharedWith", lines[0])
	assert.Equal(t, "Netflix,129,TRY,monthly,entertainment,2024-07-01,0", lines[1])
	assert.Equal(t, `"Big ""Cloud"", Inc",19.99,USD,yearly,software,2025-01-31,2`, lines[2])
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, sample()))

	got, err := ParseCSV(buf.Bytes(), today, seqID())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, `Big "Cloud", Inc`, got[1].Name)
	assert.Equal(t, models.CycleYearly, got[1].Cycle)
	assert.Equal(t, 2, got[1].SharedWith)
}

func TestParseCSV_Scenario(t *testing.T) {
	data := "Name,Price,Currency,Cycle,Category,NextRenewalDate,SharedWith\n" +
		`"Netflix",129,TRY,monthly,entertainment,2024-01-01,0` + "\n"

	got, err := ParseCSV([]byte(data), today, seqID())
	require.NoError(t, err)
	require.Len(t, got, 1)

	sub := got[0]
	assert.Equal(t, "id-1", sub.ID)
	assert.Equal(t, "Netflix", sub.Name)
	assert.True(t, sub.Price.Equal(decimal.NewFromInt(129)))
	assert.Equal(t, models.CurrencyTRY, sub.Currency)
	assert.Equal(t, models.CycleMonthly, sub.Cycle)
	assert.Equal(t, "entertainment", sub.Category)
	assert.Equal(t, "2024-01-01", sub.NextRenewalDate.String())
	assert.NotNil(t, sub.PaymentHistory)
	assert.Empty(t, sub.PaymentHistory)
}

func TestParseCSV_Defaults(t *testing.T) {
	data := "Name,Price,Currency\r\n" +
		",abc,\r\n" +
		"\r\n" +
		"short,1\r\n" +
		"Disney,49.90,usd\r\n"

	got, err := ParseCSV([]byte(data), today, seqID())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Unknown", got[0].Name)
	assert.True(t, got[0].Price.IsZero())
	assert.Equal(t, models.CurrencyTRY, got[0].Currency)
	assert.Equal(t, models.CycleMonthly, got[0].Cycle)
	assert.Equal(t, models.DefaultCategory, got[0].Category)
	assert.Equal(t, "2024-06-15", got[0].NextRenewalDate.String())
	assert.Equal(t, 0, got[0].SharedWith)

	assert.Equal(t, "Disney", got[1].Name)
	assert.Equal(t, models.CurrencyUSD, got[1].Currency)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV([]byte("Name,Price,Currency\n"), today, seqID())
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = ParseCSV([]byte("Name,Price\nA,1\nB,2\n"), today, seqID())
	assert.ErrorIs(t, err, ErrNoRows)
}

type TargetMock struct{ mock.Mock }

func (m *TargetMock) ReplaceAll(ctx context.Context, state models.State) error {
	return m.Called(ctx, state).Error(0)
}

func (m *TargetMock) AppendAll(ctx context.Context, subs []models.Subscription) error {
	return m.Called(ctx, subs).Error(0)
}

func TestImport(t *testing.T) {
	t.Run("json backup replaces state", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ExportJSON(&buf, models.State{Profile: models.DefaultProfile(), Subscriptions: sample()}, now))

		res, err := Import(buf.Bytes(), today, seqID())
		require.NoError(t, err)
		assert.Equal(t, FormatJSON, res.Format)
		assert.Equal(t, 2, res.Count())

		target := new(TargetMock)
		target.On("ReplaceAll", mock.Anything, res.State).Return(nil).Once()
		require.NoError(t, res.Apply(context.Background(), target))
		target.AssertExpectations(t)
	})

	t.Run("csv with bom appends", func(t *testing.T) {
		data := BOM + "Name,Price,Currency\nNetflix,129,TRY\n"

		res, err := Import([]byte(data), today, seqID())
		require.NoError(t, err)
		assert.Equal(t, FormatCSV, res.Format)
		assert.Equal(t, 1, res.Count())

		target := new(TargetMock)
		target.On("AppendAll", mock.Anything, res.Subscriptions).Return(nil).Once()
		require.NoError(t, res.Apply(context.Background(), target))
		target.AssertExpectations(t)
	})

	t.Run("broken json is not read as csv", func(t *testing.T) {
		_, err := Import([]byte("{\"user\": {},\n\"subscriptions\": [1,2,3]"), today, seqID())
		assert.ErrorIs(t, err, ErrUnrecognized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Import([]byte("hello"), today, seqID())
		assert.ErrorIs(t, err, ErrUnrecognized)
	})
}

func TestWriteICS(t *testing.T) {
	sub := sample()[0]

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, sub, now))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VEVENT\r\nEND:VCALENDAR\r\n"))
	assert.Contains(t, out, "PRODID:-//Subify//Renewal Reminder//EN\r\n")
	assert.Contains(t, out, "UID:s1@subify\r\n")
	assert.Contains(t, out, "DTSTAMP:20240615T093000Z\r\n")
	assert.Contains(t, out, "SUMMARY:Renew Netflix\r\n")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20240701\r\n")
	assert.Contains(t, out, "RRULE:FREQ=MONTHLY\r\n")
	assert.Contains(t, out, "DESCRIPTION:Price: 129 TRY. Reminder from Subify.\r\n")
}

func TestWriteCalendar_EscapingAndFolding(t *testing.T) {
	subs := sample()
	subs[1].Name = `Big "Cloud"; Inc, with a very long name that definitely needs folding at seventy-five`
	subs = append(subs, models.Subscription{ID: "nodate", Name: "No date"})

	var buf bytes.Buffer
	require.NoError(t, WriteCalendar(&buf, subs, now))
	out := buf.String()

	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "RRULE:FREQ=YEARLY\r\n")
	assert.NotContains(t, out, "nodate")

	unfolded := strings.ReplaceAll(out, "\r\n ", "")
	assert.Contains(t, unfolded, `SUMMARY:Renew Big "Cloud"\; Inc\, with a very long name`)
	for _, l := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(l), 75, l)
	}
}

func TestRRule(t *testing.T) {
	assert.Equal(t, "FREQ=MONTHLY;INTERVAL=3", rrule(models.CycleQuarterly))
	assert.Empty(t, rrule(models.Cycle("weekly")))
}

func TestWriteReportXLSX(t *testing.T) {
	data := ReportData{
		Summary: report.Summary{
			Currency:     models.CurrencyTRY,
			Count:        2,
			MonthlyTotal: decimal.RequireFromString("198.5"),
		},
		Forecast: []report.Point{
			{Label: "2024-06", Amount: decimal.NewFromInt(129)},
			{Label: "2024-07", Amount: decimal.NewFromInt(198)},
		},
		Categories: []report.CategoryAmount{{Category: "music", Amount: decimal.NewFromInt(69)}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReportXLSX(&buf, data))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetForecast, SheetCategories}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "198.5", v)

	rows, err := f.GetRows(SheetForecast)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024-07", "198"}, rows[2])

	v, err = f.GetCellValue(SheetCategories, "A2")
	require.NoError(t, err)
	assert.Equal(t, "music", v)
}
