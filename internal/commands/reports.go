package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subify/internal/services/insights"
	"github.com/magabrotheeeer/subify/internal/services/plan"
	"github.com/magabrotheeeer/subify/internal/services/report"
	"github.com/magabrotheeeer/subify/internal/transfer"
)

func newSummaryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the spending dashboard",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
			agg := report.New(e.store, e.converter)
			s := agg.Summary()
			m := e.money()

			t := newTable(e.out, table.Row{"Metric", "Value"})
			t.SetColumnConfigs([]table.ColumnConfig{{Name: "Value", Align: text.AlignRight}})
			t.AppendRows([]table.Row{
				{"Subscriptions", s.Count},
				{"Monthly total", m.format(s.MonthlyTotal, s.Currency)},
				{"Annual projection", m.format(s.AnnualProjection, s.Currency)},
				{"Paid this month", m.format(s.CurrentMonth.Paid, s.Currency)},
				{"Pending this month", m.format(s.CurrentMonth.Pending, s.Currency)},
				{"Overdue", s.Overdue},
			})
			if s.Budget.Enabled {
				budget := fmt.Sprintf("%s of %s (%s%%)",
					m.format(s.Budget.Spent, s.Currency), m.format(s.Budget.Budget, s.Currency), s.Budget.Percent.String())
				if s.Budget.Exceeded {
					budget = text.FgRed.Sprint(budget)
				}
				t.AppendRow(table.Row{"Budget", budget})
			}
			t.Render()

			printCategories(e, agg.Categories())
			return nil
		}),
	}
}

func printCategories(e *env, cats []report.CategoryAmount) {
	if len(cats) == 0 {
		return
	}
	m := e.money()
	base := e.converter.Base()
	t := newTable(e.out, table.Row{"Category", "Monthly"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Monthly", Align: text.AlignRight}})
	for _, c := range cats {
		t.AppendRow(table.Row{c.Category, m.format(c.Amount, base)})
	}
	t.Render()
}

func newForecastCommand(opts *options) *cobra.Command {
	var unit string
	var horizon int

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Show expected spending per month or year",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
			u := report.Unit(unit)
			if !u.IsKnown() {
				return fmt.Errorf("unknown unit %q: use month or year", unit)
			}
			if horizon <= 0 {
				return fmt.Errorf("horizon must be positive")
			}
			agg := report.New(e.store, e.converter)
			m := e.money()

			t := newTable(e.out, table.Row{"Period", "Amount"})
			t.SetColumnConfigs([]table.ColumnConfig{{Name: "Amount", Align: text.AlignRight}})
			for _, p := range agg.Forecast(u, horizon) {
				t.AppendRow(table.Row{p.Label, m.format(p.Amount, agg.Currency())})
			}
			t.Render()
			return nil
		}),
	}
	cmd.Flags().StringVar(&unit, "unit", string(report.UnitMonth), "month or year")
	cmd.Flags().IntVar(&horizon, "horizon", 6, "number of periods")
	return cmd
}

func newReportCommand(opts *options) *cobra.Command {
	var month, year int
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Paid and pending amounts for a month, annual projection (premium)",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
			if err := plan.Check(e.store.Profile().Plan, plan.FeatureReports); err != nil {
				return describe(err)
			}
			now := e.now()
			if month == 0 {
				month = int(now.Month())
			}
			if year == 0 {
				year = now.Year()
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("month must be between 1 and 12")
			}

			agg := report.New(e.store, e.converter)
			if xlsxPath != "" {
				return writeXLSX(e, agg, xlsxPath)
			}

			m := e.money()
			base := agg.Currency()
			mr := agg.MonthlyReport(time.Month(month), year)
			t := newTable(e.out, table.Row{"Report", "Amount"})
			t.SetColumnConfigs([]table.ColumnConfig{{Name: "Amount", Align: text.AlignRight}})
			t.SetTitle("%s %d", time.Month(month), year)
			t.AppendRows([]table.Row{
				{"Paid", m.format(mr.Paid, base)},
				{"Pending", m.format(mr.Pending, base)},
				{"Annual projection", m.format(agg.AnnualProjection(), base)},
			})
			t.Render()
			return nil
		}),
	}
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (defaults to the current one)")
	cmd.Flags().IntVar(&year, "year", 0, "year (defaults to the current one)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the full report to an Excel file")
	return cmd
}

func writeXLSX(e *env, agg *report.Aggregator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	data := transfer.ReportData{
		Summary:    agg.Summary(),
		Forecast:   agg.Forecast(report.UnitMonth, 12),
		Categories: agg.Categories(),
	}
	if err := transfer.WriteReportXLSX(f, data); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Report written to %s\n", path)
	return nil
}

func newInsightsCommand(opts *options) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Analyse spending and suggest savings (premium)",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
			if lang == "" {
				lang = os.Getenv("LANG")
				lang, _, _ = strings.Cut(lang, ".")
				lang = strings.ReplaceAll(lang, "_", "-")
			}
			a, err := insights.New(e.store, e.converter).Analyze(insights.MatchLanguage(lang))
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(e.out, a.Summary)
			for _, tip := range a.Tips {
				fmt.Fprintf(e.out, "  • %s\n", tip.Text)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&lang, "lang", "", "language of the analysis, e.g. en or tr (defaults to $LANG)")
	return cmd
}
