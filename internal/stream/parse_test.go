package stream

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverjin839/riverflow/pkg/errors"
)

func framedPayload(ticker, price, changeRate, volume string) string {
	fields := make([]string, minFieldCount)
	for i := range fields {
		fields[i] = "0"
	}

	fields[fieldTicker] = ticker
	fields[fieldPrice] = price
	fields[fieldChangeRate] = changeRate
	fields[fieldVolume] = volume

	return "0|H0STCNT0|001|" + strings.Join(fields, "^")
}

func TestParseTickJSON(t *testing.T) {
	now := time.Now()

	tick, err := parseTick([]byte(`{"ticker":"005930","current_price":71200,"volume":1234567,"change_rate":1.25}`), now)
	require.NoError(t, err)

	assert.Equal(t, "005930", tick.Ticker)
	assert.Equal(t, int64(71200), tick.Price)
	assert.Equal(t, int64(1234567), tick.Volume)
	assert.InDelta(t, 1.25, tick.ChangeRate, 1e-9)
	assert.Equal(t, now, tick.ReceivedAt)
}

func TestParseTickFramed(t *testing.T) {
	now := time.Now()

	tick, err := parseTick([]byte(framedPayload("000660", "98500", "-0.71", "555000")), now)
	require.NoError(t, err)

	assert.Equal(t, "000660", tick.Ticker)
	assert.Equal(t, int64(98500), tick.Price)
	assert.InDelta(t, -0.71, tick.ChangeRate, 1e-9)
	assert.Equal(t, int64(555000), tick.Volume)
}

func TestParseTickDropsGarbage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty frame", ""},
		{"malformed json", `{"ticker":`},
		{"json without ticker", `{"current_price":100}`},
		{"too few segments", "0|H0STCNT0"},
		{"too few fields", "0|H0STCNT0|001|005930^100"},
		{"non-numeric price", framedPayload("005930", "abc", "1.0", "100")},
		{"non-numeric volume", framedPayload("005930", "100", "1.0", "xyz")},
		{"blank ticker", framedPayload(" ", "100", "1.0", "100")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTick([]byte(tt.raw), time.Now())
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeFrameDiscarded))
		})
	}
}
