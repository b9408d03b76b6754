package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/riverjin839/riverflow/pkg/errors"
)

// TradeSafetyConfig is the immutable safety envelope applied to every buy
// order. Replacing the config swaps the whole value; fields are never mutated
// in place.
type TradeSafetyConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Virtual routes orders to the paper-trading environment.
	Virtual bool `yaml:"virtual" json:"virtual"`

	MaxQuantityPerOrder int64           `yaml:"max_quantity_per_order" json:"max_quantity_per_order" validate:"gt=0"`
	MaxAmountPerOrder   decimal.Decimal `yaml:"max_amount_per_order" json:"max_amount_per_order"`
	MaxDailyAmount      decimal.Decimal `yaml:"max_daily_amount" json:"max_daily_amount"`
	MaxDailyOrders      int             `yaml:"max_daily_orders" json:"max_daily_orders" validate:"gt=0"`
	MaxPositions        int             `yaml:"max_positions" json:"max_positions" validate:"gt=0"`

	// StopLossRate is the profit-rate floor, e.g. -3.0 sells at -3%.
	StopLossRate decimal.Decimal `yaml:"stop_loss_rate" json:"stop_loss_rate"`
	// TakeProfitRate is the profit-rate ceiling, e.g. 5.0 sells at +5%.
	TakeProfitRate decimal.Decimal `yaml:"take_profit_rate" json:"take_profit_rate"`
	// TrailingStopRate enables a trailing stop when set.
	TrailingStopRate Optional[decimal.Decimal] `yaml:"trailing_stop_rate" json:"trailing_stop_rate"`

	// TradeStart/TradeEnd bound the trading window in local market time,
	// formatted "HH:MM". The window is inclusive on both ends.
	TradeStart string `yaml:"trade_start" json:"trade_start" validate:"required"`
	TradeEnd   string `yaml:"trade_end" json:"trade_end" validate:"required"`
}

// DefaultTradeSafetyConfig mirrors the conservative defaults the assistant
// ships with: disabled, paper trading, small caps.
func DefaultTradeSafetyConfig() TradeSafetyConfig {
	return TradeSafetyConfig{
		Enabled:             false,
		Virtual:             true,
		MaxQuantityPerOrder: 10,
		MaxAmountPerOrder:   decimal.NewFromInt(500_000),
		MaxDailyAmount:      decimal.NewFromInt(2_000_000),
		MaxDailyOrders:      10,
		MaxPositions:        5,
		StopLossRate:        decimal.NewFromFloat(-3.0),
		TakeProfitRate:      decimal.NewFromFloat(5.0),
		TradeStart:          "09:05",
		TradeEnd:            "15:15",
	}
}

// Validate validates the TradeSafetyConfig struct.
func (c *TradeSafetyConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSafetyConfig, "invalid trade safety config", err)
	}

	if !c.MaxAmountPerOrder.IsPositive() {
		return errors.New(errors.ErrCodeInvalidSafetyConfig, "max_amount_per_order must be positive")
	}

	if !c.MaxDailyAmount.IsPositive() {
		return errors.New(errors.ErrCodeInvalidSafetyConfig, "max_daily_amount must be positive")
	}

	if c.StopLossRate.IsPositive() {
		return errors.New(errors.ErrCodeInvalidSafetyConfig, "stop_loss_rate must be zero or negative")
	}

	if c.TakeProfitRate.IsNegative() {
		return errors.New(errors.ErrCodeInvalidSafetyConfig, "take_profit_rate must be zero or positive")
	}

	start, err := ParseClock(c.TradeStart)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidSafetyConfig, err, "invalid trade_start %q", c.TradeStart)
	}

	end, err := ParseClock(c.TradeEnd)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidSafetyConfig, err, "invalid trade_end %q", c.TradeEnd)
	}

	if end.Before(start) {
		return errors.New(errors.ErrCodeInvalidSafetyConfig, "trade_end must not precede trade_start")
	}

	return nil
}

// Clock is a wall-clock minute of day, timezone-agnostic.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, err
	}

	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Before reports whether c is strictly earlier in the day than other.
func (c Clock) Before(other Clock) bool {
	if c.Hour != other.Hour {
		return c.Hour < other.Hour
	}

	return c.Minute < other.Minute
}

// Contains reports whether t's wall clock falls inside [c, end] inclusive.
func (c Clock) Contains(end Clock, t time.Time) bool {
	now := Clock{Hour: t.Hour(), Minute: t.Minute()}

	return !now.Before(c) && !end.Before(now)
}
