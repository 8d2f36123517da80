package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cgtfolio/backend/src/models"
	"github.com/username/cgtfolio/backend/src/utils"
)

// TaxYearLabel returns the UK tax year containing the given date, formatted
// "2023/24". The tax year runs 6 April to 5 April: a disposal on 5 April
// belongs to the year ending that day, one on 6 April to the next.
func TaxYearLabel(t time.Time) string {
	year := t.Year()
	start := year
	if t.Month() < time.April || (t.Month() == time.April && t.Day() < 6) {
		start = year - 1
	}
	return fmt.Sprintf("%d/%02d", start, (start+1)%100)
}

// Aggregator groups disposal matches into per-tax-year summaries, nets
// gains against losses and applies the configured annual exempt amount.
// Rounding to the base currency's minor unit happens here and only here.
type Aggregator struct {
	baseCurrency  string
	exemptAmounts ExemptAmounts
}

func NewAggregator(baseCurrency string, exemptAmounts ExemptAmounts) *Aggregator {
	return &Aggregator{baseCurrency: baseCurrency, exemptAmounts: exemptAmounts}
}

// Aggregate produces one summary per tax year present in the matches,
// sorted by year. Years without a configured exempt amount are reported in
// the second return value and omitted from the summaries; the remaining
// years stay complete and consistent.
func (a *Aggregator) Aggregate(matches []models.DisposalMatch) ([]models.TaxYearSummary, []string) {
	byYear := make(map[string][]models.DisposalMatch)
	for _, match := range matches {
		label := TaxYearLabel(match.DisposalDate)
		byYear[label] = append(byYear[label], match)
	}

	years := make([]string, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Strings(years)

	var summaries []models.TaxYearSummary
	var yearErrors []string
	for _, year := range years {
		exempt, ok := a.exemptAmounts[year]
		if !ok {
			yearErrors = append(yearErrors, (&models.UnknownTaxYearRateError{TaxYear: year}).Error())
			continue
		}
		summaries = append(summaries, a.summarise(year, exempt, byYear[year]))
	}
	return summaries, yearErrors
}

func (a *Aggregator) summarise(year string, exempt decimal.Decimal, matches []models.DisposalMatch) models.TaxYearSummary {
	proceeds, costs := decimal.Zero, decimal.Zero
	gains, losses := decimal.Zero, decimal.Zero
	for _, match := range matches {
		proceeds = proceeds.Add(match.Proceeds)
		costs = costs.Add(match.AllowableCost)
		if match.Gain.IsNegative() {
			losses = losses.Add(match.Gain.Neg())
		} else {
			gains = gains.Add(match.Gain)
		}
	}
	net := gains.Sub(losses)

	taxable := decimal.Zero
	applied := decimal.Zero
	carryForward := decimal.Zero
	if net.IsPositive() {
		applied = decimal.Min(net, exempt)
		taxable = decimal.Max(net.Sub(exempt), decimal.Zero)
	} else {
		// Net losses never yield a negative taxable gain; they carry
		// forward as an informational figure.
		carryForward = net.Neg()
	}

	round := func(d decimal.Decimal) decimal.Decimal {
		return utils.RoundMinor(d, a.baseCurrency)
	}
	return models.TaxYearSummary{
		TaxYear:             year,
		TotalProceeds:       round(proceeds),
		TotalCosts:          round(costs),
		TotalGains:          round(gains),
		TotalLosses:         round(losses),
		NetGain:             round(net),
		ExemptAmountApplied: round(applied),
		TaxableGain:         round(taxable),
		LossCarryForward:    round(carryForward),
		DisposalCount:       len(matches),
	}
}
