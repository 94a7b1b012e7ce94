package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/magabrotheeeer/subify/internal/models"
)

// symbolOverrides символы, которые x/text выводит не так, как принято в приложении.
var symbolOverrides = map[models.Currency]string{
	models.CurrencyTRY: "₺",
	models.CurrencyUSD: "$",
	models.CurrencyEUR: "€",
}

// defaultLocaleForCurrency "домашняя" локаль валюты для форматирования чисел.
var defaultLocaleForCurrency = map[models.Currency]language.Tag{
	models.CurrencyTRY: language.Turkish,
	models.CurrencyUSD: language.AmericanEnglish,
	models.CurrencyEUR: language.German,
}

// Formatter форматирует суммы в заданной валюте.
type Formatter struct {
	Code    models.Currency
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter возвращает Formatter для кода валюты в ее домашней локали.
func NewFormatter(code models.Currency) Formatter {
	tag, ok := defaultLocaleForCurrency[code]
	if !ok {
		tag = language.English
	}
	return NewFormatterWithLocale(code, tag)
}

// NewFormatterWithLocale возвращает Formatter с явной локалью.
func NewFormatterWithLocale(code models.Currency, tag language.Tag) Formatter {
	code = models.Currency(strings.ToUpper(string(code)))
	unit, err := currency.ParseISO(string(code))
	if err != nil {
		unit = currency.USD
	}
	return Formatter{Code: code, unit: unit, printer: message.NewPrinter(tag)}
}

func (f Formatter) symbol() string {
	if sym, ok := symbolOverrides[f.Code]; ok {
		return sym
	}
	if _, err := currency.ParseISO(string(f.Code)); err != nil {
		return string(f.Code)
	}
	return f.printer.Sprint(currency.NarrowSymbol(f.unit))
}

// Format форматирует сумму с двумя знаками после запятой и символом валюты.
func (f Formatter) Format(amount decimal.Decimal) string {
	formatted := f.printer.Sprint(number.Decimal(amount.Round(2).InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	return f.symbol() + formatted
}

// Symbol возвращает символ валюты, для неизвестных кодов сам код.
func Symbol(code models.Currency) string {
	return NewFormatter(code).symbol()
}
