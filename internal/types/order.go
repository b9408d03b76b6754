package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/riverjin839/riverflow/pkg/errors"
)

type OrderSide string

type OrderType string

type OrderStatus string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

const (
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusRejected  OrderStatus = "rejected"
)

// OrderRequest describes one order before submission to a broker.
type OrderRequest struct {
	Ticker    string    `yaml:"ticker" json:"ticker" validate:"required"`
	Side      OrderSide `yaml:"side" json:"side" validate:"required,oneof=buy sell"`
	Quantity  int64     `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	OrderType OrderType `yaml:"order_type" json:"order_type" validate:"required,oneof=market limit"`
	// Price is the limit price. None means market execution.
	Price optional.Option[decimal.Decimal] `yaml:"price" json:"price"`
	// StrategyID records what produced the order, e.g. a condition name or
	// a stop-loss reason string.
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	if r.Price.IsSome() && !r.Price.Unwrap().IsPositive() {
		return errors.New(errors.ErrCodeInvalidOrder, "limit price must be positive")
	}

	return nil
}

// OrderResult is the broker's answer to one order submission. Immutable once
// returned; the gate appends one audit row per result.
type OrderResult struct {
	OrderID  string          `json:"order_id"`
	Ticker   string          `json:"ticker"`
	Side     OrderSide       `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Status   OrderStatus     `json:"status"`
	Broker   string          `json:"broker"`
	Message  string          `json:"message"`
}

// OrderExecution is one historical order row returned by the broker.
type OrderExecution struct {
	OrderID  string          `json:"order_id"`
	Ticker   string          `json:"ticker"`
	Name     string          `json:"name"`
	Side     OrderSide       `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Status   string          `json:"status"`
}

// Position is one held instrument in the account.
type Position struct {
	Ticker       string          `json:"ticker"`
	Name         string          `json:"name"`
	Quantity     int64           `json:"quantity"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	ProfitRate   decimal.Decimal `json:"profit_rate"`
	ProfitAmount decimal.Decimal `json:"profit_amount"`
}

// AccountBalance is the account summary plus current positions.
type AccountBalance struct {
	TotalAsset decimal.Decimal `json:"total_asset"`
	Cash       decimal.Decimal `json:"cash"`
	StockValue decimal.Decimal `json:"stock_value"`
	ProfitRate decimal.Decimal `json:"profit_rate"`
	Positions  []Position      `json:"positions"`
}
