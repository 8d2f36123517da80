package processors

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cgtfolio/backend/src/models"
)

// RateTable is an optional fallback source of trade-date exchange rates for
// rows whose feed carried none. Keyed by "YYYY-MM-DD|CCY", values are rates
// to the base currency.
type RateTable map[string]decimal.Decimal

// LoadHistoricalRates loads a rate table from a JSON file of the form
// {"2024-03-01|USD": "0.7912", ...}. Call once from main after config load.
func LoadHistoricalRates(filePath string) (RateTable, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading historical exchange rate file '%s': %w", filePath, err)
	}
	var asStrings map[string]string
	if err := json.Unmarshal(raw, &asStrings); err != nil {
		return nil, fmt.Errorf("error unmarshalling historical exchange rates from '%s': %w", filePath, err)
	}
	table := make(RateTable, len(asStrings))
	for key, value := range asStrings {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid exchange rate %q for %s in '%s': %w", value, key, filePath, err)
		}
		table[key] = rate
	}
	return table, nil
}

func (t RateTable) lookup(currency string, date time.Time) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	rate, ok := t[date.Format("2006-01-02")+"|"+currency]
	return rate, ok
}

// FXProcessor converts transaction monetary fields to the base currency
// using the feed-supplied trade-date rate. It does not fetch external rates.
type FXProcessor struct {
	baseCurrency string
	rates        RateTable // optional; nil means strict feed-rate-only mode
}

func NewFXProcessor(baseCurrency string, rates RateTable) *FXProcessor {
	return &FXProcessor{baseCurrency: baseCurrency, rates: rates}
}

// Convert rewrites price and commission of every non-base-currency
// transaction into the base currency, in place. Idempotent: records already
// in the base currency are left untouched.
func (p *FXProcessor) Convert(txs []models.Transaction) error {
	for i := range txs {
		if err := p.convertOne(&txs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *FXProcessor) convertOne(tx *models.Transaction) error {
	if tx.Currency == p.baseCurrency {
		return nil
	}
	rate := tx.FXRate
	if rate.IsZero() || rate.IsNegative() {
		if fallback, ok := p.rates.lookup(tx.Currency, tx.TradeDate); ok {
			rate = fallback
		} else {
			return &models.MissingFXRateError{
				Security: tx.Security,
				Date:     tx.TradeDate,
				Currency: tx.Currency,
			}
		}
	}
	tx.Price = tx.Price.Mul(rate)
	tx.Commission = tx.Commission.Mul(rate)
	tx.Currency = p.baseCurrency
	tx.FXRate = decimal.NewFromInt(1)
	return nil
}
