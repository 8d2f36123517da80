package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundMinor(t *testing.T) {
	got := RoundMinor(decimal.RequireFromString("123.4567"), "GBP")
	assert.True(t, got.Equal(decimal.RequireFromString("123.46")), "got %s", got)

	// JPY has no minor unit.
	got = RoundMinor(decimal.RequireFromString("123.4567"), "JPY")
	assert.True(t, got.Equal(decimal.NewFromInt(123)), "got %s", got)
}

func TestIsKnownCurrency(t *testing.T) {
	assert.True(t, IsKnownCurrency("GBP"))
	assert.True(t, IsKnownCurrency("USD"))
	assert.False(t, IsKnownCurrency("ZZZ"))
	assert.False(t, IsKnownCurrency(""))
}
