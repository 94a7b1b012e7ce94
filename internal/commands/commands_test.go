package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subify/internal/services/plan"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
}

func runCtl(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&options{now: fixedNow})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--state", filepath.Join(dir, "state.json"), "--offline"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runCtl(t, dir, args...)
	require.NoError(t, err, out)
	return out
}

func TestList_SampleData(t *testing.T) {
	out := mustRun(t, t.TempDir(), "list")
	for _, name := range []string{"Netflix", "Spotify", "Apple Music"} {
		assert.Contains(t, out, name)
	}
}

func TestAdd_FreeLimitThenUpgrade(t *testing.T) {
	dir := t.TempDir()

	_, err := runCtl(t, dir, "add", "--name", "YouTube", "--price", "57.99")
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrLimitReached)
	assert.Contains(t, err.Error(), "limit_reached")

	mustRun(t, dir, "plan", "upgrade")
	out := mustRun(t, dir, "add", "--name", "YouTube", "--price", "57.99", "--next", "2024-07-01")
	assert.Contains(t, out, "Added YouTube")

	out = mustRun(t, dir, "list")
	assert.Contains(t, out, "YouTube")
	assert.Contains(t, out, "2024-07-01")
}

func TestAdd_Validation(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "plan", "upgrade")

	_, err := runCtl(t, dir, "add", "--name", "Gym", "--cycle", "weekly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")

	_, err = runCtl(t, dir, "add", "--name", "Gym", "--next", "tomorrow")
	require.Error(t, err)
}

func TestRenewAndRevert(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "renew", "1")
	assert.Contains(t, out, "next renewal 2024-06-20")

	out = mustRun(t, dir, "revert", "1")
	assert.Contains(t, out, "next renewal 2024-05-20")

	_, err := runCtl(t, dir, "renew", "missing")
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "update", "2", "--name", "Spotify Family", "--shared", "3")
	assert.Contains(t, out, "Updated Spotify Family")

	out = mustRun(t, dir, "list")
	assert.Contains(t, out, "Spotify Family")
}

func TestOverdue(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "overdue")
	assert.Contains(t, out, "Netflix")
	assert.Contains(t, out, "Spotify")
	assert.NotContains(t, out, "Apple Music")

	out = mustRun(t, dir, "overdue", "--as-of", "2023-01-01")
	assert.Contains(t, out, "Nothing is overdue")
}

func TestExportImportRoundTrip(t *testing.T) {
	src := t.TempDir()
	mustRun(t, src, "plan", "upgrade")
	mustRun(t, src, "add", "--name", "YouTube", "--price", "57.99")

	backup := filepath.Join(src, "backup.json")
	mustRun(t, src, "export", "-o", backup)

	dst := t.TempDir()
	out := mustRun(t, dst, "import", backup)
	assert.Contains(t, out, "Imported 4 subscription(s) from json")

	out = mustRun(t, dst, "list")
	assert.Contains(t, out, "YouTube")
	out = mustRun(t, dst, "plan")
	assert.Contains(t, out, "premium")
}

func TestExportCSVAndAppend(t *testing.T) {
	dir := t.TempDir()

	csvOut := mustRun(t, dir, "export", "--format", "csv")
	assert.Contains(t, csvOut, "Name,Price,Currency,Cycle,Category,NextRenewalDate,SharedWith")

	path := filepath.Join(dir, "extra.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("Name,Price,Currency,Cycle,Category,NextRenewalDate,SharedWith\nDisney+,64.99,TRY,monthly,entertainment,2024-07-01,0\n"), 0o600))
	out := mustRun(t, dir, "import", path)
	assert.Contains(t, out, "Imported 1 subscription(s) from csv")

	out = mustRun(t, dir, "list")
	assert.Contains(t, out, "Disney+")
	assert.Contains(t, out, "Netflix")

	_, err := runCtl(t, dir, "export", "--format", "xml")
	assert.Error(t, err)
}

func TestReport_Premium(t *testing.T) {
	dir := t.TempDir()

	_, err := runCtl(t, dir, "report")
	assert.ErrorIs(t, err, plan.ErrPremiumRequired)

	_, err = runCtl(t, dir, "insights")
	assert.ErrorIs(t, err, plan.ErrPremiumRequired)

	mustRun(t, dir, "plan", "upgrade")
	out := mustRun(t, dir, "report", "--month", "6", "--year", "2024")
	assert.Contains(t, out, "Paid")
	assert.Contains(t, out, "Annual projection")

	xlsx := filepath.Join(dir, "report.xlsx")
	mustRun(t, dir, "report", "--xlsx", xlsx)
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	out = mustRun(t, dir, "insights", "--lang", "en")
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestSummaryAndForecast(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "summary")
	assert.Contains(t, out, "Monthly total")
	assert.Contains(t, out, "music")

	out = mustRun(t, dir, "forecast", "--horizon", "3")
	assert.Contains(t, strings.ToUpper(out), "PERIOD")

	_, err := runCtl(t, dir, "forecast", "--unit", "week")
	assert.Error(t, err)
}

func TestProfileSettings(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "currency", "usd")
	assert.Contains(t, out, "Base currency: USD")
	out = mustRun(t, dir, "currency")
	assert.Contains(t, out, "Base currency: USD")

	_, err := runCtl(t, dir, "currency", "GBP")
	assert.Error(t, err)

	mustRun(t, dir, "budget", "500")
	out = mustRun(t, dir, "budget")
	assert.Contains(t, out, "500")

	mustRun(t, dir, "category", "add", "games")
	out = mustRun(t, dir, "category", "list")
	assert.Contains(t, out, "games")
	mustRun(t, dir, "category", "remove", "games")
	out = mustRun(t, dir, "category", "list")
	assert.NotContains(t, out, "games")

	out = mustRun(t, dir, "notifications", "on")
	assert.Contains(t, out, "Notifications: on")
	_, err = runCtl(t, dir, "notifications", "maybe")
	assert.Error(t, err)
}

func TestCalendar(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "calendar", "1")
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:Renew Netflix")
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))

	out = mustRun(t, dir, "calendar")
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
}
