package transfer

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/subify/internal/services/report"
)

// Листы отчета.
const (
	SheetSummary    = "Summary"
	SheetForecast   = "Forecast"
	SheetCategories = "Categories"
)

// ReportData содержимое выгружаемого отчета.
type ReportData struct {
	Summary    report.Summary
	Forecast   []report.Point
	Categories []report.CategoryAmount
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// WriteReportXLSX пишет отчет книгой Excel из трех листов.
func WriteReportXLSX(w io.Writer, data ReportData) error {
	const op = "transfer.WriteReportXLSX"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, name := range []string{SheetForecast, SheetCategories} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s := data.Summary
	rows := [][]any{
		{"Currency", string(s.Currency)},
		{"Subscriptions", s.Count},
		{"Monthly total", money(s.MonthlyTotal)},
		{"Annual projection", money(s.AnnualProjection)},
		{"Monthly budget", money(s.Budget.Budget)},
		{"Budget remaining", money(s.Budget.Remaining)},
		{"Paid this month", money(s.CurrentMonth.Paid)},
		{"Pending this month", money(s.CurrentMonth.Pending)},
		{"Overdue", s.Overdue},
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows = [][]any{{"Period", "Amount"}}
	for _, p := range data.Forecast {
		rows = append(rows, []any{p.Label, money(p.Amount)})
	}
	if err := writeRows(f, SheetForecast, rows); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows = [][]any{{"Category", "Monthly amount"}}
	for _, c := range data.Categories {
		rows = append(rows, []any{c.Category, money(c.Amount)})
	}
	if err := writeRows(f, SheetCategories, rows); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
