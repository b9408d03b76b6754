// Package broker defines the capability surface the trading core consumes
// from a brokerage, plus the two concrete wire adapters: the KIS REST+WebSocket
// protocol and the relay-bridge HTTP protocol. Callers depend only on the
// Broker interface.
package broker

import (
	"context"

	"github.com/riverjin839/riverflow/internal/types"
)

// StreamAuth is what the stream ingestor needs to open a market-data
// subscription: the websocket endpoint and the session approval key obtained
// through the broker's key/approval exchange.
type StreamAuth struct {
	URL         string
	ApprovalKey string
}

// Broker is the capability contract consumed by the scanner, the stream
// ingestor, and the trading gate.
type Broker interface {
	// Name identifies the adapter in audit rows ("kis", "bridge").
	Name() string

	// Connect performs the adapter's auth handshake (token issuance or
	// bridge health check). Idempotent.
	Connect(ctx context.Context) error

	// GetQuote returns the current price info for one ticker.
	GetQuote(ctx context.Context, ticker string) (types.Quote, error)

	// GetUniverseSnapshot returns every instrument row for one market.
	GetUniverseSnapshot(ctx context.Context, market string) ([]types.StockSnapshot, error)

	// GetHistory returns up to periods daily closing prices for a ticker,
	// most recent first.
	GetHistory(ctx context.Context, ticker string, periods int) ([]int64, error)

	// GetBalance returns the account summary and current positions.
	GetBalance(ctx context.Context) (types.AccountBalance, error)

	// GetMarketIndex returns the index level and day-over-day change rate
	// for one market.
	GetMarketIndex(ctx context.Context, market string) (value float64, changeRate float64, err error)

	// GetInvestorFlows returns the foreign/institution/individual net-buy
	// volumes for one market.
	GetInvestorFlows(ctx context.Context, market string) (foreign, institution, individual int64, err error)

	// PlaceOrder submits one order and returns the broker's result.
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)

	// CancelOrder cancels a previously submitted order.
	CancelOrder(ctx context.Context, orderID string) (bool, error)

	// GetOrderHistory returns the day's order rows. date is "YYYYMMDD";
	// empty means today.
	GetOrderHistory(ctx context.Context, date string) ([]types.OrderExecution, error)

	// StreamAuth performs the key/approval exchange for the streaming
	// subscription primitive. Adapters without a streaming endpoint return
	// an error.
	StreamAuth(ctx context.Context) (StreamAuth, error)
}
