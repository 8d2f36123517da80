package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/username/cgtfolio/backend/src/models"
)

func fingerprintTx(rawText string) models.Transaction {
	return models.Transaction{
		Security:   "AAPL",
		TradeDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Side:       models.SideBuy,
		Quantity:   decimal.NewFromInt(100),
		Price:      decimal.RequireFromString("171.25"),
		Currency:   "USD",
		Commission: decimal.RequireFromString("1.50"),
		Source:     "ofx",
		RawText:    rawText,
	}
}

func TestHashTransactionIsStable(t *testing.T) {
	a := hashTransaction(fingerprintTx("FITID-0001"))
	b := hashTransaction(fingerprintTx("FITID-0001"))
	assert.Equal(t, a, b)
}

func TestHashTransactionSeparatesDistinctTradesWithEqualFields(t *testing.T) {
	// Two real same-day buys at the same price carry distinct broker row ids;
	// treating the second as a re-upload duplicate would understate holdings.
	a := hashTransaction(fingerprintTx("FITID-0001"))
	b := hashTransaction(fingerprintTx("FITID-0002"))
	assert.NotEqual(t, a, b)
}

func TestHashTransactionSeparatesCanonicalFieldChanges(t *testing.T) {
	base := fingerprintTx("FITID-0001")
	changed := base
	changed.Quantity = decimal.NewFromInt(200)
	assert.NotEqual(t, hashTransaction(base), hashTransaction(changed))
}
