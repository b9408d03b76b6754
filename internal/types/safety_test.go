package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverjin839/riverflow/pkg/errors"
)

func TestDefaultTradeSafetyConfigIsValidAndConservative(t *testing.T) {
	cfg := DefaultTradeSafetyConfig()
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.Virtual)
}

func TestTradeSafetyConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *TradeSafetyConfig)
	}{
		{"zero quantity cap", func(cfg *TradeSafetyConfig) { cfg.MaxQuantityPerOrder = 0 }},
		{"zero amount cap", func(cfg *TradeSafetyConfig) { cfg.MaxAmountPerOrder = decimal.Zero }},
		{"negative daily amount", func(cfg *TradeSafetyConfig) { cfg.MaxDailyAmount = decimal.NewFromInt(-1) }},
		{"positive stop loss", func(cfg *TradeSafetyConfig) { cfg.StopLossRate = decimal.NewFromFloat(3.0) }},
		{"negative take profit", func(cfg *TradeSafetyConfig) { cfg.TakeProfitRate = decimal.NewFromFloat(-1.0) }},
		{"garbage trade start", func(cfg *TradeSafetyConfig) { cfg.TradeStart = "nine" }},
		{"inverted window", func(cfg *TradeSafetyConfig) {
			cfg.TradeStart = "15:15"
			cfg.TradeEnd = "09:05"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTradeSafetyConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSafetyConfig))
		})
	}
}

func TestClockContainsInclusiveWindow(t *testing.T) {
	start, err := ParseClock("09:05")
	require.NoError(t, err)
	end, err := ParseClock("15:15")
	require.NoError(t, err)

	at := func(hour, minute int) time.Time {
		return time.Date(2024, 6, 5, hour, minute, 30, 0, time.UTC)
	}

	assert.True(t, start.Contains(end, at(9, 5)), "window start is inclusive")
	assert.True(t, start.Contains(end, at(15, 15)), "window end is inclusive")
	assert.True(t, start.Contains(end, at(12, 0)))
	assert.False(t, start.Contains(end, at(9, 4)))
	assert.False(t, start.Contains(end, at(15, 16)))
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "9", "25:00", "12:61", "noon"} {
		_, err := ParseClock(s)
		assert.Error(t, err, "input %q", s)
	}
}
