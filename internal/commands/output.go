package commands

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/currency"
	"github.com/magabrotheeeer/subify/internal/models"
)

const hiddenAmount = "••••"

// money форматирует суммы с учетом режима приватности профиля.
type money struct {
	hidden bool
}

func (e *env) money() money {
	return money{hidden: e.store.Profile().PrivacyMode}
}

func (m money) format(amount decimal.Decimal, code models.Currency) string {
	if m.hidden {
		return hiddenAmount
	}
	return currency.NewFormatter(code).Format(amount)
}

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

func printSubscriptions(e *env, subs []models.Subscription) {
	m := e.money()
	today := e.store.Today()

	t := newTable(e.out, table.Row{"ID", "Name", "Price", "Cycle", "Category", "Next renewal", "Shared"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Price", Align: text.AlignRight},
		{Name: "Shared", Align: text.AlignRight},
	})
	for _, sub := range subs {
		next := sub.NextRenewalDate.String()
		if sub.NextRenewalDate.Before(today) {
			next = text.FgRed.Sprint(next)
		}
		t.AppendRow(table.Row{
			sub.ID,
			sub.Name,
			m.format(sub.Price, sub.Currency),
			string(sub.Cycle),
			sub.Category,
			next,
			sub.SharedWith,
		})
	}
	t.AppendFooter(table.Row{"", "Total", len(subs)})
	t.Render()
}
