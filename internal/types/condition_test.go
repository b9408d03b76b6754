package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFilterPredicateEvaluate(t *testing.T) {
	row := &StockSnapshot{
		Ticker:      "005930",
		Price:       71200,
		ChangeRate:  3.5,
		VolumeRatio: 2.0,
	}

	tests := []struct {
		name      string
		predicate FilterPredicate
		expected  bool
	}{
		{"gte passes at boundary", FilterPredicate{Field: "change_rate", Operator: OpGTE, Value: 3.5}, true},
		{"gt fails at boundary", FilterPredicate{Field: "change_rate", Operator: OpGT, Value: 3.5}, false},
		{"lte passes below", FilterPredicate{Field: "volume_ratio", Operator: OpLTE, Value: 5.0}, true},
		{"lt fails above", FilterPredicate{Field: "price", Operator: OpLT, Value: 70000}, false},
		{"eq matches exactly", FilterPredicate{Field: "price", Operator: OpEQ, Value: 71200}, true},
		{"between inclusive low", FilterPredicate{Field: "change_rate", Operator: OpBetween, Range: [2]float64{3.5, 10}}, true},
		{"between inclusive high", FilterPredicate{Field: "change_rate", Operator: OpBetween, Range: [2]float64{0, 3.5}}, true},
		{"between outside", FilterPredicate{Field: "change_rate", Operator: OpBetween, Range: [2]float64{4, 10}}, false},
		{"unknown field fails", FilterPredicate{Field: "astrology", Operator: OpGTE, Value: 0}, false},
		{"unknown operator fails", FilterPredicate{Field: "price", Operator: Operator("~="), Value: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.predicate.Evaluate(row))
		})
	}
}

func TestScanConditionValidate(t *testing.T) {
	valid := ScanCondition{
		Name:    "momentum",
		Markets: []string{"KOSPI"},
		Filters: []FilterPredicate{{Field: "change_rate", Operator: OpGTE, Value: 3}},
	}
	require.NoError(t, valid.Validate())

	noFilters := valid
	noFilters.Filters = nil
	assert.Error(t, noFilters.Validate())

	noMarkets := valid
	noMarkets.Markets = nil
	assert.Error(t, noMarkets.Validate())

	badOperator := valid
	badOperator.Filters = []FilterPredicate{{Field: "price", Operator: Operator("!="), Value: 1}}
	assert.Error(t, badOperator.Validate())
}

func TestScanConditionYAMLAutoTrade(t *testing.T) {
	raw := `
name: breakout
markets: [KOSDAQ]
is_active: true
filters:
  - field: change_rate
    operator: ">"
    value: 5.0
auto_trade:
  enabled: true
  virtual: true
  max_quantity_per_order: 5
  max_amount_per_order: 300000
  max_daily_amount: 1000000
  max_daily_orders: 3
  max_positions: 2
  stop_loss_rate: -2.0
  take_profit_rate: 4.0
  trailing_stop_rate: 1.5
  trade_start: "09:05"
  trade_end: "15:15"
`

	var cond ScanCondition
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cond))
	require.NoError(t, cond.Validate())

	require.True(t, cond.AutoTrade.IsSome())

	auto := cond.AutoTrade.Unwrap()
	assert.True(t, auto.Enabled)
	assert.Equal(t, int64(5), auto.MaxQuantityPerOrder)
	assert.True(t, auto.MaxAmountPerOrder.Equal(decimal.NewFromInt(300_000)))
	require.True(t, auto.TrailingStopRate.IsSome())
	assert.True(t, auto.TrailingStopRate.Unwrap().Equal(decimal.NewFromFloat(1.5)))
}

func TestScanConditionYAMLWithoutAutoTrade(t *testing.T) {
	raw := `
name: watch-only
markets: [KOSPI]
filters:
  - field: volume_ratio
    operator: ">"
    value: 2.0
`

	var cond ScanCondition
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cond))
	assert.True(t, cond.AutoTrade.IsNone())
}
