package transfer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/models"
)

// BOM метка порядка байт UTF-8, нужна Excel для распознавания кодировки.
const BOM = "\ufeff"

// CSVHeader заголовок таблицы подписок.
var CSVHeader = []string{"Name", "Price", "Currency", "Cycle", "Category", "NextRenewalDate", "SharedWith"}

const (
	colName = iota
	colPrice
	colCurrency
	colCycle
	colCategory
	colNextRenewal
	colSharedWith

	minColumns = 3
)

var (
	// ErrTooShort в таблице нет строк данных.
	ErrTooShort = errors.New("csv needs a header and at least one row")
	// ErrNoRows ни одна строка не содержит нужного числа колонок.
	ErrNoRows = errors.New("csv has no usable rows")
)

// ExportCSV пишет подписки таблицей с BOM и заголовком.
func ExportCSV(w io.Writer, subs []models.Subscription) error {
	const op = "transfer.ExportCSV"

	if _, err := io.WriteString(w, BOM); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, sub := range subs {
		next := ""
		if !sub.NextRenewalDate.IsZero() {
			next = sub.NextRenewalDate.String()
		}
		rec := []string{
			sub.Name,
			sub.Price.String(),
			string(sub.Currency),
			string(sub.Cycle),
			sub.Category,
			next,
			strconv.Itoa(sub.SharedWith),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ParseCSV разбирает таблицу подписок. Первая строка считается заголовком,
// строки короче трех колонок пропускаются, пустые поля получают значения
// по умолчанию.
func ParseCSV(data []byte, today models.Date, newID func() string) ([]models.Subscription, error) {
	const op = "transfer.ParseCSV"

	data = bytes.TrimPrefix(data, []byte(BOM))
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: %w", op, ErrTooShort)
	}

	subs := make([]models.Subscription, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < minColumns {
			continue
		}
		subs = append(subs, parseRow(rec, today, newID()))
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoRows)
	}
	return subs, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseRow(rec []string, today models.Date, id string) models.Subscription {
	sub := models.Subscription{
		ID:              id,
		Name:            field(rec, colName),
		Price:           decimal.Zero,
		Currency:        models.CurrencyTRY,
		Cycle:           models.CycleMonthly,
		Category:        models.DefaultCategory,
		NextRenewalDate: today,
		PaymentHistory:  []models.PaymentRecord{},
	}
	if sub.Name == "" {
		sub.Name = "Unknown"
	}
	if p, err := decimal.NewFromString(field(rec, colPrice)); err == nil {
		sub.Price = p
	}
	if v := field(rec, colCurrency); v != "" {
		sub.Currency = models.Currency(strings.ToUpper(v))
	}
	if v := field(rec, colCycle); v != "" {
		sub.Cycle = models.Cycle(strings.ToLower(v))
	}
	if v := field(rec, colCategory); v != "" {
		sub.Category = v
	}
	if d, err := models.ParseDate(field(rec, colNextRenewal)); err == nil && !d.IsZero() {
		sub.NextRenewalDate = d
	}
	if n, err := strconv.Atoi(field(rec, colSharedWith)); err == nil && n > 0 {
		sub.SharedWith = n
	}
	return sub
}
