package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	d := decimal.RequireFromString
	assert.Equal(t, "2.35", Round2(d("2.345")).StringFixed(2))
	assert.Equal(t, "-2.35", Round2(d("-2.345")).StringFixed(2))
	assert.Equal(t, "0.00", Round2(d("0.004")).StringFixed(2))
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount(" 1,200.505 ")
	require.NoError(t, err)
	assert.Equal(t, "1200.51", got.StringFixed(2))

	_, err = ParseAmount("")
	assert.Error(t, err)
	_, err = ParseAmount("12abc")
	assert.Error(t, err)
}

func TestSumAndClamp(t *testing.T) {
	d := decimal.RequireFromString
	assert.True(t, d("0.30").Equal(SumDecimal(d("0.1"), d("0.2"))))
	assert.True(t, SumDecimal().IsZero())
	assert.True(t, NonNegative(d("-1")).IsZero())
	assert.True(t, d("3").Equal(MinDecimal(d("3"), d("4"))))
	assert.Equal(t, "12.50 BDT", FormatMoney(d("12.5"), "BDT"))
	assert.Equal(t, "12.50", FormatMoney(d("12.5"), ""))
}
