// Package insights формирует советы по сокращению расходов для премиум
// пользователей.
package insights

import (
	"slices"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/services/plan"
	"github.com/magabrotheeeer/subify/internal/services/report"
)

const (
	// ManySubscriptions при большем числе подписок предлагается объединить часть из них.
	ManySubscriptions = 5
	// SavingsPercent доля месячных расходов, которую предположительно можно сэкономить.
	SavingsPercent = 15
)

// HighCategorySpend порог месячных расходов категории в базовой валюте.
var HighCategorySpend = decimal.NewFromInt(500)

// Коды советов.
const (
	TipConsolidate  = "consolidate"
	TipHighCategory = "high_category"
	TipYearlyPlans  = "yearly_plans"
)

const (
	keySummary     = "summary"
	keyConsolidate = "consolidate"
	keyHighCat     = "high_category"
	keyYearly      = "yearly_plans"
	keyUnknown     = "unknown_category"
)

// Supported языки советов.
var Supported = []language.Tag{language.English, language.Turkish}

var (
	messages = newCatalog()
	matcher  = language.NewMatcher(Supported)
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.English, keySummary, "%d%% of your total spending goes to %s.")
	set(language.English, keyConsolidate, "You have %d active subscriptions. Consider consolidating.")
	set(language.English, keyHighCat, "High saving potential in %s.")
	set(language.English, keyYearly, "Yearly plans are usually 20%% cheaper. Worth checking out.")
	set(language.English, keyUnknown, "unknown")

	set(language.Turkish, keySummary, "Toplam harcamanın %%%d'si %s kategorisine gidiyor.")
	set(language.Turkish, keyConsolidate, "%d farklı aboneliğin var. Bazılarını birleştirmeyi düşündün mü?")
	set(language.Turkish, keyHighCat, "%s kategorisinde tasarruf potansiyelin yüksek.")
	set(language.Turkish, keyYearly, "Yıllık ödeme planları genellikle %%20 daha ucuzdur. Kontrol etmeye değer.")
	set(language.Turkish, keyUnknown, "bilinmeyen")

	tr := map[string]string{
		"entertainment": "Eğlence",
		"software":      "Yazılım",
		"education":     "Eğitim",
		"music":         "Müzik",
		"other":         "Diğer",
	}
	for _, c := range models.DefaultCategories {
		set(language.English, "cat_"+c, c)
		if name, ok := tr[c]; ok {
			set(language.Turkish, "cat_"+c, name)
		}
	}
	return b
}

// MatchLanguage выбирает язык советов по заголовку Accept-Language.
func MatchLanguage(accept string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return Supported[idx]
}

// Tip один совет.
type Tip struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// Analysis результат анализа расходов.
type Analysis struct {
	Currency         models.Currency `json:"currency"`
	Summary          string          `json:"summary"`
	TopCategory      string          `json:"topCategory,omitempty"`
	TopCategoryShare int64           `json:"topCategoryShare"`
	MonthlyGross     decimal.Decimal `json:"monthlyGross"`
	EstimatedSavings decimal.Decimal `json:"estimatedSavings"`
	Tips             []Tip           `json:"tips"`
}

// Analyzer строит анализ по снимку состояния.
type Analyzer struct {
	source    report.StateSource
	converter report.Converter
}

// New создает Analyzer.
func New(source report.StateSource, converter report.Converter) *Analyzer {
	return &Analyzer{source: source, converter: converter}
}

// Analyze возвращает анализ на языке lang. На бесплатном плане возвращает
// *plan.DeniedError с plan.ErrPremiumRequired.
func (a *Analyzer) Analyze(lang language.Tag) (Analysis, error) {
	state := a.source.Snapshot()
	if err := plan.Check(state.Profile.Plan, plan.FeatureAIAnalysis); err != nil {
		return Analysis{}, err
	}
	return build(state.Subscriptions, report.SortCategories(report.Breakdown(a.converter, state.Subscriptions)),
		a.converter.Base(), lang), nil
}

func build(subs []models.Subscription, cats []report.CategoryAmount, base models.Currency, lang language.Tag) Analysis {
	p := message.NewPrinter(lang, message.Catalog(messages))

	total := decimal.Zero
	for _, c := range cats {
		total = total.Add(c.Amount)
	}

	res := Analysis{
		Currency:         base,
		MonthlyGross:     total,
		EstimatedSavings: total.Mul(decimal.NewFromInt(SavingsPercent)).Div(decimal.NewFromInt(100)).Floor(),
		Tips:             []Tip{},
	}

	topName := p.Sprintf(keyUnknown)
	topSpend := decimal.Zero
	if len(cats) > 0 {
		res.TopCategory = cats[0].Category
		topSpend = cats[0].Amount
		topName = categoryName(p, res.TopCategory)
		if total.IsPositive() {
			res.TopCategoryShare = topSpend.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		}
	}
	res.Summary = p.Sprintf(keySummary, res.TopCategoryShare, topName)

	if len(subs) > ManySubscriptions {
		res.Tips = append(res.Tips, Tip{Code: TipConsolidate, Text: p.Sprintf(keyConsolidate, len(subs))})
	}
	if topSpend.GreaterThan(HighCategorySpend) {
		res.Tips = append(res.Tips, Tip{Code: TipHighCategory, Text: p.Sprintf(keyHighCat, res.TopCategory)})
	}
	res.Tips = append(res.Tips, Tip{Code: TipYearlyPlans, Text: p.Sprintf(keyYearly)})
	return res
}

func categoryName(p *message.Printer, c string) string {
	if slices.Contains(models.DefaultCategories, c) {
		return p.Sprintf("cat_" + c)
	}
	return c
}
