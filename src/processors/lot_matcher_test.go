package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/cgtfolio/backend/src/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// trade builds a base-currency transaction; sells get negative quantities.
func trade(security, date, side string, qty, price, commission float64) models.Transaction {
	q := decimal.NewFromFloat(qty)
	if side == models.SideSell {
		q = q.Neg()
	}
	return models.Transaction{
		Security:   security,
		TradeDate:  day(date),
		Side:       side,
		Quantity:   q,
		Price:      decimal.NewFromFloat(price),
		Currency:   "GBP",
		Commission: decimal.NewFromFloat(commission),
		Type:       models.TypeTrade,
	}
}

func TestSameDayRuleTakesPriorityOverPool(t *testing.T) {
	m := NewSecurityMatcher("VOD.L")
	matches, err := m.Process([]models.Transaction{
		trade("VOD.L", "2024-01-02", models.SideBuy, 100, 5, 0),  // pool holding
		trade("VOD.L", "2024-03-11", models.SideSell, 100, 15, 0),
		trade("VOD.L", "2024-03-11", models.SideBuy, 100, 12, 0), // same calendar date
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, models.MatchSameDay, matches[0].MatchKind)
	assert.True(t, matches[0].Gain.Equal(decimal.NewFromInt(300)), "gain should be (15-12)*100, got %s", matches[0].Gain)
	// The pool must be untouched by the matched disposal.
	assert.True(t, m.pool.available().Equal(decimal.NewFromInt(100)))
}

func TestBedAndBreakfastMatchesLaterAcquisition(t *testing.T) {
	// BUY 100 @ 10 on day 1, SELL 100 @ 15 on day 5, BUY 100 @ 12 on day 20:
	// the day-20 buy retroactively matches the day-5 sell.
	matches, err := NewSecurityMatcher("BP.L").Process([]models.Transaction{
		trade("BP.L", "2024-02-01", models.SideBuy, 100, 10, 0),
		trade("BP.L", "2024-02-05", models.SideSell, 100, 15, 0),
		trade("BP.L", "2024-02-20", models.SideBuy, 100, 12, 0),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, models.MatchBedAndBreakfast, match.MatchKind)
	require.NotNil(t, match.AcquisitionDate)
	assert.Equal(t, day("2024-02-20"), *match.AcquisitionDate)
	assert.True(t, match.Gain.Equal(decimal.NewFromInt(300)), "gain should be (15-12)*100, not (15-10)*100, got %s", match.Gain)
}

func TestThirtyDayWindowBoundary(t *testing.T) {
	t.Run("buy exactly 30 days after sell matches", func(t *testing.T) {
		matches, err := NewSecurityMatcher("AZN.L").Process([]models.Transaction{
			trade("AZN.L", "2023-05-10", models.SideBuy, 50, 10, 0),
			trade("AZN.L", "2023-06-01", models.SideSell, 50, 20, 0),
			trade("AZN.L", "2023-07-01", models.SideBuy, 50, 12, 0), // +30 days
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, models.MatchBedAndBreakfast, matches[0].MatchKind)
	})

	t.Run("buy 31 days after sell falls back to the pool", func(t *testing.T) {
		matches, err := NewSecurityMatcher("AZN.L").Process([]models.Transaction{
			trade("AZN.L", "2023-05-10", models.SideBuy, 50, 10, 0),
			trade("AZN.L", "2023-06-01", models.SideSell, 50, 20, 0),
			trade("AZN.L", "2023-07-02", models.SideBuy, 50, 12, 0), // +31 days
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, models.MatchSection104, matches[0].MatchKind)
		assert.True(t, matches[0].AllowableCost.Equal(decimal.NewFromInt(500)), "pool cost from the May buy, got %s", matches[0].AllowableCost)
	})
}

func TestSection104PoolWeightedAverageCost(t *testing.T) {
	matches, err := NewSecurityMatcher("HSBA.L").Process([]models.Transaction{
		trade("HSBA.L", "2023-01-10", models.SideBuy, 100, 10, 0),
		trade("HSBA.L", "2023-02-10", models.SideBuy, 100, 20, 0),
		trade("HSBA.L", "2023-06-01", models.SideSell, 150, 20, 0),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, models.MatchSection104, match.MatchKind)
	assert.Nil(t, match.AcquisitionDate)
	// Pool: 200 units at 3000 total -> 15/unit. 150 units cost 2250.
	assert.True(t, match.AllowableCost.Equal(decimal.NewFromInt(2250)), "got %s", match.AllowableCost)
	assert.True(t, match.Gain.Equal(decimal.NewFromInt(750)), "got %s", match.Gain)
}

func TestDisposalSplitsAcrossAllThreeKinds(t *testing.T) {
	matches, err := NewSecurityMatcher("LLOY.L").Process([]models.Transaction{
		trade("LLOY.L", "2023-01-05", models.SideBuy, 100, 8, 0),  // pool
		trade("LLOY.L", "2023-04-12", models.SideSell, 150, 20, 0),
		trade("LLOY.L", "2023-04-12", models.SideBuy, 50, 18, 0),  // same day
		trade("LLOY.L", "2023-04-25", models.SideBuy, 30, 19, 0),  // within 30 days
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, models.MatchSameDay, matches[0].MatchKind)
	assert.Equal(t, models.MatchBedAndBreakfast, matches[1].MatchKind)
	assert.Equal(t, models.MatchSection104, matches[2].MatchKind)

	// No matched-quantity leakage: slices sum to the disposal quantity.
	total := decimal.Zero
	for _, m := range matches {
		total = total.Add(m.Quantity)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(150)), "got %s", total)
	assert.True(t, matches[2].Quantity.Equal(decimal.NewFromInt(70)))
}

func TestSameDayBuysMatchInInsertionOrder(t *testing.T) {
	matches, err := NewSecurityMatcher("TSCO.L").Process([]models.Transaction{
		trade("TSCO.L", "2024-05-01", models.SideSell, 80, 30, 0),
		trade("TSCO.L", "2024-05-01", models.SideBuy, 60, 25, 0), // recorded first
		trade("TSCO.L", "2024-05-01", models.SideBuy, 60, 28, 0), // recorded second
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// First-recorded buy consumed in full, second only partially.
	assert.True(t, matches[0].Quantity.Equal(decimal.NewFromInt(60)))
	assert.True(t, matches[0].AllowableCost.Equal(decimal.NewFromInt(1500)), "60*25, got %s", matches[0].AllowableCost)
	assert.True(t, matches[1].Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, matches[1].AllowableCost.Equal(decimal.NewFromInt(560)), "20*28, got %s", matches[1].AllowableCost)
}

func TestOversoldPositionFails(t *testing.T) {
	_, err := NewSecurityMatcher("RIO.L").Process([]models.Transaction{
		trade("RIO.L", "2024-01-10", models.SideBuy, 100, 10, 0),
		trade("RIO.L", "2024-06-10", models.SideSell, 120, 15, 0),
	})
	require.Error(t, err)

	var unmatched *models.UnmatchedDisposalError
	require.ErrorAs(t, err, &unmatched)
	assert.Equal(t, "RIO.L", unmatched.Security)
	assert.Equal(t, day("2024-06-10"), unmatched.Date)
	assert.True(t, unmatched.Quantity.Equal(decimal.NewFromInt(20)), "shortfall should be 20, got %s", unmatched.Quantity)
}

func TestCommissionAllocation(t *testing.T) {
	// Buy commission is added to cost, sell commission deducted from
	// proceeds, both pro-rata over the matched slice.
	matches, err := NewSecurityMatcher("GSK.L").Process([]models.Transaction{
		trade("GSK.L", "2024-01-10", models.SideBuy, 100, 10, 10),
		trade("GSK.L", "2024-06-10", models.SideSell, 50, 20, 5),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	// Cost: 50*10 + full-lot commission entered the pool with the buy -> 500 + 10*(50/100)... the whole
	// buy pooled at cost 1010, so 50 units cost 505.
	assert.True(t, match.AllowableCost.Equal(decimal.NewFromInt(505)), "got %s", match.AllowableCost)
	// Proceeds: 50*20 - 5 (whole sell matched in one slice).
	assert.True(t, match.Proceeds.Equal(decimal.NewFromInt(995)), "got %s", match.Proceeds)
	assert.True(t, match.Gain.Equal(decimal.NewFromInt(490)), "got %s", match.Gain)
}

func TestFractionalQuantitiesStayExact(t *testing.T) {
	matches, err := NewSecurityMatcher("FUND").Process([]models.Transaction{
		trade("FUND", "2024-01-10", models.SideBuy, 10.5, 3, 0),
		trade("FUND", "2024-06-10", models.SideSell, 3.5, 6, 0),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	// 3.5 units at pooled 3/unit: exactly 10.50 cost, 21.00 proceeds.
	assert.True(t, matches[0].AllowableCost.Equal(decimal.RequireFromString("10.5")), "got %s", matches[0].AllowableCost)
	assert.True(t, matches[0].Gain.Equal(decimal.RequireFromString("10.5")), "got %s", matches[0].Gain)
}

func TestNonTradeTransactionsAreIgnored(t *testing.T) {
	fx := trade("EUR.GBP", "2024-01-10", models.SideBuy, 100, 0.85, 0)
	fx.Type = models.TypeFxConversion
	matches, err := NewSecurityMatcher("EUR.GBP").Process([]models.Transaction{fx})
	require.NoError(t, err)
	assert.Empty(t, matches)
}
