package broker

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseIntTolerance(t *testing.T) {
	assert.Equal(t, int64(71200), parseInt("71200"))
	assert.Equal(t, int64(71200), parseInt(" 71200 "))
	assert.Equal(t, int64(1234), parseInt("1234.00"))
	assert.Equal(t, int64(0), parseInt(""))
	assert.Equal(t, int64(0), parseInt("-"))
	assert.Equal(t, int64(-500), parseInt("-500"))
}

func TestParseFloatTolerance(t *testing.T) {
	assert.InDelta(t, 1.25, parseFloat("1.25"), 1e-9)
	assert.InDelta(t, -0.71, parseFloat(" -0.71"), 1e-9)
	assert.Zero(t, parseFloat(""))
	assert.Zero(t, parseFloat("n/a"))
}

func TestParseDecimalTolerance(t *testing.T) {
	assert.True(t, parseDecimal("50000").Equal(decimal.NewFromInt(50_000)))
	assert.True(t, parseDecimal("").IsZero())
	assert.True(t, parseDecimal("garbage").IsZero())
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 1.23, round2(1.2345), 1e-9)
	assert.InDelta(t, 1.24, round2(1.236), 1e-9)
	assert.InDelta(t, -2.5, round2(-2.499), 1e-9)
}
