package csvfmt

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/cgtfolio/backend/src/models"
)

const sampleCSV = `symbol,date,side,quantity,price,currency,commission,fx_rate
AAPL,2024-03-01,BUY,10,171.25,USD,1.50,0.7912
AAPL,2024-03-15,SELL,4,178.00,USD,1.50,0.7850
VOD.L,2024-04-02,BUY,250,0.68,GBP,4.95,
`

func TestParseWellFormedFile(t *testing.T) {
	p := NewParser(Options{})
	result, err := p.Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Empty(t, result.RowErrors)
	require.Len(t, result.Transactions, 3)

	buy := result.Transactions[0]
	assert.Equal(t, "AAPL", buy.Security)
	assert.Equal(t, models.SideBuy, buy.Side)
	assert.Equal(t, "2024-03-01", buy.TradeDate.Format("2006-01-02"))
	assert.True(t, buy.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, buy.Price.Equal(decimal.RequireFromString("171.25")))
	assert.Equal(t, "USD", buy.Currency)
	assert.True(t, buy.FXRate.Equal(decimal.RequireFromString("0.7912")))
	assert.Equal(t, models.TypeTrade, buy.Type)
	assert.Equal(t, "csv", buy.Source)

	sell := result.Transactions[1]
	assert.Equal(t, models.SideSell, sell.Side)
	assert.True(t, sell.Quantity.Equal(decimal.NewFromInt(-4)), "sells carry negative quantities, got %s", sell.Quantity)

	gbp := result.Transactions[2]
	assert.True(t, gbp.FXRate.IsZero(), "blank fx_rate stays zero")
}

func TestParseMissingRequiredColumns(t *testing.T) {
	p := NewParser(Options{})
	_, err := p.Parse(strings.NewReader("symbol,date,quantity\nAAPL,2024-03-01,10\n"))
	require.Error(t, err)

	var schema *models.SchemaValidationError
	require.ErrorAs(t, err, &schema)
	assert.ElementsMatch(t, []string{"price", "currency", "commission"}, schema.MissingColumns)
}

func TestParseCollectsRowErrors(t *testing.T) {
	bad := `symbol,date,quantity,price,currency,commission
AAPL,2024-03-01,10,171.25,USD,1.50
,2024-03-02,5,100,USD,0
MSFT,not-a-date,5,100,USD,0
MSFT,2024-03-03,abc,100,USD,0
MSFT,2024-03-04,0,100,USD,0
MSFT,2024-03-05,5,100,ZZZ,0
GOOG,2024-03-06,-5,100,USD,0
`
	p := NewParser(Options{Policy: models.PolicyCollect})
	result, err := p.Parse(strings.NewReader(bad))
	require.NoError(t, err)

	require.Len(t, result.Transactions, 2, "good rows survive bad neighbours")
	require.Len(t, result.RowErrors, 5)
	assert.Equal(t, 3, result.RowErrors[0].Row)
	assert.Equal(t, "symbol", result.RowErrors[0].Field)
	assert.Equal(t, "date", result.RowErrors[1].Field)
	assert.Equal(t, "quantity", result.RowErrors[2].Field)
	assert.Equal(t, "currency", result.RowErrors[4].Field)

	// No side column: the negative quantity marks the GOOG row as a sell.
	sell := result.Transactions[1]
	assert.Equal(t, models.SideSell, sell.Side)
	assert.True(t, sell.Quantity.Equal(decimal.NewFromInt(-5)))
}

func TestParseAbortPolicyStopsOnFirstBadRow(t *testing.T) {
	bad := `symbol,date,quantity,price,currency,commission
AAPL,2024-03-01,10,171.25,USD,1.50
MSFT,not-a-date,5,100,USD,0
`
	p := NewParser(Options{Policy: models.PolicyAbort})
	_, err := p.Parse(strings.NewReader(bad))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrParsingFailed)

	// The failing row stays addressable through the wrap chain.
	var rowErrs models.RowErrors
	require.ErrorAs(t, err, &rowErrs)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 3, rowErrs[0].Row)
	assert.Equal(t, "date", rowErrs[0].Field)
}

func TestParseColumnOverrides(t *testing.T) {
	custom := `Ticker,Trade Date,Units,Unit Price,CCY,Fees
AAPL,2024-03-01,10,171.25,USD,1.50
`
	p := NewParser(Options{Columns: map[string]string{
		ColSymbol:     "Ticker",
		ColDate:       "Trade Date",
		ColQuantity:   "Units",
		ColPrice:      "Unit Price",
		ColCurrency:   "CCY",
		ColCommission: "Fees",
	}})
	result, err := p.Parse(strings.NewReader(custom))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "AAPL", result.Transactions[0].Security)
}

func TestParseTagsCurrencyConversions(t *testing.T) {
	file := `symbol,date,side,quantity,price,currency,commission
EUR.GBP,2024-03-01,SELL,1000,0.8550,EUR,0
AAPL.US,2024-03-01,BUY,10,171.25,USD,0
`
	p := NewParser(Options{})
	result, err := p.Parse(strings.NewReader(file))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, models.TypeFxConversion, result.Transactions[0].Type)
	assert.Equal(t, models.TypeTrade, result.Transactions[1].Type, "dotted tickers are not currency pairs")
}

func TestParseSurvivesThousandsSeparators(t *testing.T) {
	file := `symbol,date,side,quantity,price,currency,commission
AAPL,2024-03-01,BUY,"1,500",171.25,USD,0
`
	p := NewParser(Options{})
	result, err := p.Parse(strings.NewReader(file))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.True(t, result.Transactions[0].Quantity.Equal(decimal.NewFromInt(1500)))
}
