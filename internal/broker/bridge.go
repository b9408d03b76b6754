package broker

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

// BridgeBroker talks to a relay-bridge server that fronts a broker API only
// available on another host (the bridge exposes plain JSON over HTTP with
// bearer-token auth). Market analytics endpoints are not part of the bridge
// protocol; the bridge serves quoting, balance, and order routing.
type BridgeBroker struct {
	cfg    BridgeConfig
	client *resty.Client
	log    *logger.Logger
}

// NewBridgeBroker creates the relay-bridge adapter.
func NewBridgeBroker(cfg BridgeConfig, log *logger.Logger) (*BridgeBroker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(30 * time.Second).
		SetAuthToken(cfg.Token)

	return &BridgeBroker{
		cfg:    cfg,
		client: client,
		log:    log,
	}, nil
}

// Name implements Broker.
func (b *BridgeBroker) Name() string { return "bridge" }

// Connect checks bridge reachability.
func (b *BridgeBroker) Connect(ctx context.Context) error {
	resp, err := b.client.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerAuthFailed, "bridge health check failed", err)
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeBrokerAuthFailed, "bridge health check: %s", resp.Status())
	}

	b.log.Info("bridge connection verified")

	return nil
}

// GetQuote implements Broker.
func (b *BridgeBroker) GetQuote(ctx context.Context, ticker string) (types.Quote, error) {
	var out types.Quote

	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/price/" + ticker)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeBrokerRequestFailed, err, "bridge quote %s", ticker)
	}

	if resp.IsError() {
		return types.Quote{}, errors.Newf(errors.ErrCodeBrokerRequestFailed, "bridge quote %s: %s", ticker, resp.Status())
	}

	out.Ticker = ticker

	return out, nil
}

// GetUniverseSnapshot implements Broker.
func (b *BridgeBroker) GetUniverseSnapshot(ctx context.Context, market string) ([]types.StockSnapshot, error) {
	var out struct {
		Stocks []types.StockSnapshot `json:"stocks"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("market", market).
		SetResult(&out).
		Get("/api/universe")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeBrokerRequestFailed, err, "bridge universe %s", market)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeBrokerRequestFailed, "bridge universe %s: %s", market, resp.Status())
	}

	return out.Stocks, nil
}

// GetHistory implements Broker.
func (b *BridgeBroker) GetHistory(ctx context.Context, ticker string, periods int) ([]int64, error) {
	var out struct {
		Closes []int64 `json:"closes"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("periods", strconv.Itoa(periods)).
		SetResult(&out).
		Get("/api/history/" + ticker)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeHistoryUnavailable, err, "bridge history %s", ticker)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeHistoryUnavailable, "bridge history %s: %s", ticker, resp.Status())
	}

	return out.Closes, nil
}

type bridgePosition struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"ticker_name"`
	Quantity     int64   `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	ProfitRate   float64 `json:"profit_rate"`
	ProfitAmount float64 `json:"profit_amount"`
}

// GetBalance implements Broker.
func (b *BridgeBroker) GetBalance(ctx context.Context) (types.AccountBalance, error) {
	var out struct {
		TotalAsset float64          `json:"total_asset"`
		Cash       float64          `json:"cash"`
		StockValue float64          `json:"stock_value"`
		ProfitRate float64          `json:"profit_rate"`
		Positions  []bridgePosition `json:"positions"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/balance")
	if err != nil {
		return types.AccountBalance{}, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "bridge balance failed", err)
	}

	if resp.IsError() {
		return types.AccountBalance{}, errors.Newf(errors.ErrCodeBrokerRequestFailed, "bridge balance: %s", resp.Status())
	}

	positions := make([]types.Position, 0, len(out.Positions))
	for _, p := range out.Positions {
		positions = append(positions, types.Position{
			Ticker:       p.Ticker,
			Name:         p.Name,
			Quantity:     p.Quantity,
			AvgPrice:     decimal.NewFromFloat(p.AvgPrice),
			CurrentPrice: decimal.NewFromFloat(p.CurrentPrice),
			ProfitRate:   decimal.NewFromFloat(p.ProfitRate),
			ProfitAmount: decimal.NewFromFloat(p.ProfitAmount),
		})
	}

	return types.AccountBalance{
		TotalAsset: decimal.NewFromFloat(out.TotalAsset),
		Cash:       decimal.NewFromFloat(out.Cash),
		StockValue: decimal.NewFromFloat(out.StockValue),
		ProfitRate: decimal.NewFromFloat(out.ProfitRate),
		Positions:  positions,
	}, nil
}

// GetMarketIndex implements Broker. Not part of the bridge protocol.
func (b *BridgeBroker) GetMarketIndex(ctx context.Context, market string) (float64, float64, error) {
	return 0, 0, errors.New(errors.ErrCodeBrokerRequestFailed, "market index not available through the bridge")
}

// GetInvestorFlows implements Broker. Not part of the bridge protocol.
func (b *BridgeBroker) GetInvestorFlows(ctx context.Context, market string) (int64, int64, int64, error) {
	return 0, 0, 0, errors.New(errors.ErrCodeBrokerRequestFailed, "investor flows not available through the bridge")
}

// PlaceOrder implements Broker.
func (b *BridgeBroker) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	var priceBody optional.Option[string]
	if req.Price.IsSome() {
		priceBody = optional.Some(req.Price.Unwrap().String())
	}

	var out struct {
		OrderID string  `json:"order_id"`
		Price   float64 `json:"price"`
		Status  string  `json:"status"`
		Message string  `json:"message"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"ticker":      req.Ticker,
			"side":        req.Side,
			"quantity":    req.Quantity,
			"order_type":  req.OrderType,
			"price":       priceBody,
			"strategy_id": req.StrategyID,
		}).
		SetResult(&out).
		Post("/api/order")
	if err != nil {
		return types.OrderResult{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "bridge order %s %s", req.Side, req.Ticker)
	}

	if resp.IsError() {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeOrderFailed, "bridge order %s %s: %s", req.Side, req.Ticker, resp.Status())
	}

	price := req.Price.TakeOr(decimal.Zero)
	if out.Price > 0 {
		price = decimal.NewFromFloat(out.Price)
	}

	status := types.OrderStatus(out.Status)
	if status == "" {
		status = types.OrderStatusSubmitted
	}

	return types.OrderResult{
		OrderID:  out.OrderID,
		Ticker:   req.Ticker,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    price,
		Status:   status,
		Broker:   b.Name(),
		Message:  out.Message,
	}, nil
}

// CancelOrder implements Broker.
func (b *BridgeBroker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&out).
		Post("/api/order/" + orderID + "/cancel")
	if err != nil {
		return false, errors.Wrapf(errors.ErrCodeOrderFailed, err, "bridge cancel %s", orderID)
	}

	if resp.IsError() {
		return false, errors.Newf(errors.ErrCodeOrderFailed, "bridge cancel %s: %s", orderID, resp.Status())
	}

	return out.Success, nil
}

// GetOrderHistory implements Broker.
func (b *BridgeBroker) GetOrderHistory(ctx context.Context, date string) ([]types.OrderExecution, error) {
	req := b.client.R().SetContext(ctx)
	if date != "" {
		req = req.SetQueryParam("date", date)
	}

	var out struct {
		Orders []struct {
			OrderID  string  `json:"order_id"`
			Ticker   string  `json:"ticker"`
			Name     string  `json:"name"`
			Side     string  `json:"side"`
			Quantity int64   `json:"quantity"`
			Price    float64 `json:"price"`
			Status   string  `json:"status"`
		} `json:"orders"`
	}

	resp, err := req.SetResult(&out).Get("/api/orders")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "bridge order history failed", err)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeBrokerRequestFailed, "bridge order history: %s", resp.Status())
	}

	executions := make([]types.OrderExecution, 0, len(out.Orders))
	for _, o := range out.Orders {
		executions = append(executions, types.OrderExecution{
			OrderID:  o.OrderID,
			Ticker:   o.Ticker,
			Name:     o.Name,
			Side:     types.OrderSide(o.Side),
			Quantity: o.Quantity,
			Price:    decimal.NewFromFloat(o.Price),
			Status:   o.Status,
		})
	}

	return executions, nil
}

// StreamAuth implements Broker. The bridge relays its own realtime feed; the
// streaming subscription primitive is only available on the wire broker.
func (b *BridgeBroker) StreamAuth(ctx context.Context) (StreamAuth, error) {
	return StreamAuth{}, errors.New(errors.ErrCodeSubscribeFailed, "streaming not supported through the bridge")
}
