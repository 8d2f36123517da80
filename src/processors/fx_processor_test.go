package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/cgtfolio/backend/src/models"
)

func usdTrade(rate float64) models.Transaction {
	tx := trade("AAPL", "2024-03-01", models.SideBuy, 10, 100, 4)
	tx.Currency = "USD"
	tx.FXRate = decimal.NewFromFloat(rate)
	return tx
}

func TestConvertAppliesFeedRate(t *testing.T) {
	fx := NewFXProcessor("GBP", nil)
	txs := []models.Transaction{usdTrade(0.8)}

	require.NoError(t, fx.Convert(txs))

	assert.Equal(t, "GBP", txs[0].Currency)
	assert.True(t, txs[0].Price.Equal(decimal.NewFromInt(80)), "got %s", txs[0].Price)
	assert.True(t, txs[0].Commission.Equal(decimal.RequireFromString("3.2")), "got %s", txs[0].Commission)
	assert.True(t, txs[0].FXRate.Equal(decimal.NewFromInt(1)))
}

func TestConvertIsIdempotent(t *testing.T) {
	fx := NewFXProcessor("GBP", nil)
	txs := []models.Transaction{usdTrade(0.8)}

	require.NoError(t, fx.Convert(txs))
	once := txs[0]
	require.NoError(t, fx.Convert(txs))

	assert.True(t, once.Price.Equal(txs[0].Price))
	assert.True(t, once.Commission.Equal(txs[0].Commission))
}

func TestConvertBaseCurrencyIsNoOp(t *testing.T) {
	fx := NewFXProcessor("GBP", nil)
	tx := trade("VOD.L", "2024-03-01", models.SideBuy, 10, 100, 4)
	txs := []models.Transaction{tx}

	require.NoError(t, fx.Convert(txs))
	assert.True(t, txs[0].Price.Equal(tx.Price))
	assert.True(t, txs[0].FXRate.Equal(tx.FXRate), "rate field untouched on base-currency rows")
}

func TestConvertMissingRateFails(t *testing.T) {
	fx := NewFXProcessor("GBP", nil)
	tx := usdTrade(0)
	require.True(t, tx.FXRate.IsZero())

	err := fx.Convert([]models.Transaction{tx})
	require.Error(t, err)

	var missing *models.MissingFXRateError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "USD", missing.Currency)
	assert.Equal(t, "AAPL", missing.Security)
}

func TestConvertFallsBackToHistoricalRates(t *testing.T) {
	rates := RateTable{"2024-03-01|USD": decimal.RequireFromString("0.75")}
	fx := NewFXProcessor("GBP", rates)
	txs := []models.Transaction{usdTrade(0)}

	require.NoError(t, fx.Convert(txs))
	assert.True(t, txs[0].Price.Equal(decimal.NewFromInt(75)), "got %s", txs[0].Price)
}
