// Package gate is the safety layer every order passes through. It enforces
// the configured trade envelope (trading hours, daily caps, position caps,
// sizing) before anything reaches the broker, keeps the daily counters, and
// writes one audit row per submission.
package gate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/riverjin839/riverflow/internal/broker"
	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/notify"
	"github.com/riverjin839/riverflow/internal/store"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

// AuditStore is the slice of the store the gate writes through.
type AuditStore interface {
	SaveAudit(rec store.AuditRecord) error
}

// Gate serializes all order decisions behind one mutex so the counter checks
// and increments are atomic end to end.
type Gate struct {
	broker   broker.Broker
	store    AuditStore
	notifier notify.Notifier
	log      *logger.Logger

	cfg      atomic.Pointer[types.TradeSafetyConfig]
	location *time.Location

	mu               sync.Mutex
	dailyOrderCount  int
	dailyOrderAmount decimal.Decimal
	now              func() time.Time
}

// NewGate creates the gate with the given safety config. tz names the market
// timezone for the trading-hours check; empty defaults to Asia/Seoul.
func NewGate(b broker.Broker, auditStore AuditStore, notifier notify.Notifier, log *logger.Logger, cfg types.TradeSafetyConfig, tz string) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if tz == "" {
		tz = "Asia/Seoul"
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", tz)
	}

	g := &Gate{
		broker:           b,
		store:            auditStore,
		notifier:         notifier,
		log:              log,
		location:         loc,
		dailyOrderAmount: decimal.Zero,
		now:              time.Now,
	}
	g.cfg.Store(&cfg)

	return g, nil
}

// Config returns the current safety config value.
func (g *Gate) Config() types.TradeSafetyConfig {
	return *g.cfg.Load()
}

// UpdateConfig validates the new config and swaps it in whole.
func (g *Gate) UpdateConfig(cfg types.TradeSafetyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	g.cfg.Store(&cfg)
	g.log.Info("safety config updated",
		zap.Bool("enabled", cfg.Enabled),
		zap.Bool("virtual", cfg.Virtual))

	return nil
}

// DailyCounters returns the running order count and notional for the day.
func (g *Gate) DailyCounters() (int, decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.dailyOrderCount, g.dailyOrderAmount
}

// ResetDailyCounters zeroes the day's counters. The scheduler calls this at
// the start of each trading day.
func (g *Gate) ResetDailyCounters() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyOrderCount = 0
	g.dailyOrderAmount = decimal.Zero

	g.log.Info("daily order counters reset")
}

// RestoreDailyCounters seeds the counters, used to rebuild state from the
// audit trail after a restart.
func (g *Gate) RestoreDailyCounters(count int, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyOrderCount = count
	g.dailyOrderAmount = amount
}

// ExecuteBuy runs the full safety check sequence and, when every check
// passes, submits a limit buy at the current quoted price. A broker transport
// failure comes back as a rejected result with a nil error; safety refusals
// come back as typed errors.
func (g *Gate) ExecuteBuy(ctx context.Context, ticker, reason string) (types.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.executeBuyLocked(ctx, g.cfg.Load(), ticker, reason)
}

// ExecuteBuyWith runs the same buy sequence under a per-call safety config.
// Scan conditions wired to auto execution carry their own envelope; the daily
// counters stay shared across all configs.
func (g *Gate) ExecuteBuyWith(ctx context.Context, ticker, reason string, cfg types.TradeSafetyConfig) (types.OrderResult, error) {
	if err := cfg.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.executeBuyLocked(ctx, &cfg, ticker, reason)
}

func (g *Gate) executeBuyLocked(ctx context.Context, cfg *types.TradeSafetyConfig, ticker, reason string) (types.OrderResult, error) {
	if !cfg.Enabled {
		return types.OrderResult{}, errors.New(errors.ErrCodeTradingDisabled, "auto trading is disabled")
	}

	if err := g.checkTradingHours(cfg); err != nil {
		return types.OrderResult{}, err
	}

	if g.dailyOrderCount >= cfg.MaxDailyOrders {
		g.notifier.Alert(ctx, fmt.Sprintf("daily order limit reached (%d), buy %s refused", cfg.MaxDailyOrders, ticker))

		return types.OrderResult{}, errors.Newf(errors.ErrCodeDailyLimitReached, "daily order count %d reached", cfg.MaxDailyOrders)
	}

	if g.dailyOrderAmount.GreaterThanOrEqual(cfg.MaxDailyAmount) {
		g.notifier.Alert(ctx, fmt.Sprintf("daily amount limit reached (%s), buy %s refused", cfg.MaxDailyAmount.String(), ticker))

		return types.OrderResult{}, errors.Newf(errors.ErrCodeDailyLimitReached, "daily order amount %s reached", cfg.MaxDailyAmount.String())
	}

	balance, err := g.broker.GetBalance(ctx)
	if err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "balance check failed", err)
	}

	if countOpenPositions(balance.Positions) >= cfg.MaxPositions {
		return types.OrderResult{}, errors.Newf(errors.ErrCodePositionLimitReached, "position count %d reached", cfg.MaxPositions)
	}

	quote, err := g.broker.GetQuote(ctx, ticker)
	if err != nil {
		return types.OrderResult{}, errors.Wrapf(errors.ErrCodeBrokerRequestFailed, err, "quote failed for %s", ticker)
	}

	price := decimal.NewFromInt(quote.Price)
	if !price.IsPositive() {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeInsufficientFunds, "no tradable price for %s", ticker)
	}

	quantity := orderQuantity(cfg, price)
	if quantity <= 0 {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeInsufficientFunds, "max amount %s cannot buy one share at %s", cfg.MaxAmountPerOrder.String(), price.String())
	}

	result, submitErr := g.broker.PlaceOrder(ctx, types.OrderRequest{
		Ticker:     ticker,
		Side:       types.OrderSideBuy,
		Quantity:   quantity,
		OrderType:  types.OrderTypeLimit,
		Price:      optional.Some(price),
		StrategyID: reason,
	})
	if submitErr != nil {
		result = types.OrderResult{
			Ticker:   ticker,
			Side:     types.OrderSideBuy,
			Quantity: quantity,
			Price:    price,
			Status:   types.OrderStatusRejected,
			Broker:   g.broker.Name(),
			Message:  submitErr.Error(),
		}
	}

	if result.Status == types.OrderStatusSubmitted {
		g.dailyOrderCount++
		g.dailyOrderAmount = g.dailyOrderAmount.Add(price.Mul(decimal.NewFromInt(quantity)))
	}

	g.audit(result, reason)
	g.notifyOrder(ctx, cfg, result, reason)

	return result, nil
}

// ExecuteSell exits an existing position at the current price. Sells bypass
// the hours, daily, and position-count checks; only the master switch and the
// position itself gate them.
func (g *Gate) ExecuteSell(ctx context.Context, ticker, reason string) (types.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.executeSellLocked(ctx, ticker, reason)
}

func (g *Gate) executeSellLocked(ctx context.Context, ticker, reason string) (types.OrderResult, error) {
	cfg := g.cfg.Load()

	if !cfg.Enabled {
		return types.OrderResult{}, errors.New(errors.ErrCodeTradingDisabled, "auto trading is disabled")
	}

	balance, err := g.broker.GetBalance(ctx)
	if err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "balance check failed", err)
	}

	position, found := findPosition(balance.Positions, ticker)
	if !found || position.Quantity <= 0 {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeInsufficientFunds, "no sellable position in %s", ticker)
	}

	quote, err := g.broker.GetQuote(ctx, ticker)
	if err != nil {
		return types.OrderResult{}, errors.Wrapf(errors.ErrCodeBrokerRequestFailed, err, "quote failed for %s", ticker)
	}

	price := decimal.NewFromInt(quote.Price)
	if !price.IsPositive() {
		price = position.CurrentPrice
	}

	result, submitErr := g.broker.PlaceOrder(ctx, types.OrderRequest{
		Ticker:     ticker,
		Side:       types.OrderSideSell,
		Quantity:   position.Quantity,
		OrderType:  types.OrderTypeLimit,
		Price:      optional.Some(price),
		StrategyID: reason,
	})
	if submitErr != nil {
		result = types.OrderResult{
			Ticker:   ticker,
			Side:     types.OrderSideSell,
			Quantity: position.Quantity,
			Price:    price,
			Status:   types.OrderStatusRejected,
			Broker:   g.broker.Name(),
			Message:  submitErr.Error(),
		}
	}

	g.audit(result, reason)
	g.notifyOrder(ctx, cfg, result, reason)

	return result, nil
}

// CheckStopLoss sweeps every position against the configured stop-loss and
// take-profit rates and sells the breaches. A failing sell logs and does not
// stop the sweep.
func (g *Gate) CheckStopLoss(ctx context.Context) ([]types.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg := g.cfg.Load()

	if !cfg.Enabled {
		return nil, errors.New(errors.ErrCodeTradingDisabled, "auto trading is disabled")
	}

	balance, err := g.broker.GetBalance(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "balance check failed", err)
	}

	var results []types.OrderResult

	for _, position := range balance.Positions {
		if position.Quantity <= 0 {
			continue
		}

		reason, triggered := exitReason(cfg, position)
		if !triggered {
			continue
		}

		result, err := g.executeSellLocked(ctx, position.Ticker, reason)
		if err != nil {
			g.log.Warn("stop-loss sell failed",
				zap.String("ticker", position.Ticker),
				zap.String("reason", reason),
				zap.Error(err))

			continue
		}

		results = append(results, result)
	}

	return results, nil
}

func exitReason(cfg *types.TradeSafetyConfig, position types.Position) (string, bool) {
	rate := position.ProfitRate

	if rate.LessThanOrEqual(cfg.StopLossRate) {
		return fmt.Sprintf("stop_loss: %s%% <= %s%%",
			rate.StringFixed(2), cfg.StopLossRate.StringFixed(2)), true
	}

	if rate.GreaterThanOrEqual(cfg.TakeProfitRate) {
		return fmt.Sprintf("take_profit: %s%% >= %s%%",
			rate.StringFixed(2), cfg.TakeProfitRate.StringFixed(2)), true
	}

	return "", false
}

func (g *Gate) checkTradingHours(cfg *types.TradeSafetyConfig) error {
	start, err := types.ParseClock(cfg.TradeStart)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSafetyConfig, "invalid trade_start", err)
	}

	end, err := types.ParseClock(cfg.TradeEnd)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSafetyConfig, "invalid trade_end", err)
	}

	now := g.now().In(g.location)
	if !start.Contains(end, now) {
		return errors.Newf(errors.ErrCodeOutsideTradingHours, "outside trading window %s-%s", cfg.TradeStart, cfg.TradeEnd)
	}

	return nil
}

// orderQuantity sizes a buy: the per-order quantity cap, shrunk so the
// notional stays under the per-order amount cap.
func orderQuantity(cfg *types.TradeSafetyConfig, price decimal.Decimal) int64 {
	byAmount := cfg.MaxAmountPerOrder.Div(price).IntPart()
	if byAmount < cfg.MaxQuantityPerOrder {
		return byAmount
	}

	return cfg.MaxQuantityPerOrder
}

func countOpenPositions(positions []types.Position) int {
	count := 0

	for _, p := range positions {
		if p.Quantity > 0 {
			count++
		}
	}

	return count
}

func findPosition(positions []types.Position, ticker string) (types.Position, bool) {
	for _, p := range positions {
		if p.Ticker == ticker {
			return p, true
		}
	}

	return types.Position{}, false
}

func (g *Gate) audit(result types.OrderResult, reason string) {
	err := g.store.SaveAudit(store.AuditRecord{
		OrderID:    result.OrderID,
		Ticker:     result.Ticker,
		Side:       result.Side,
		Quantity:   result.Quantity,
		Price:      result.Price,
		Status:     result.Status,
		Broker:     result.Broker,
		Reason:     reason,
		StrategyID: reason,
		RecordedAt: g.now(),
	})
	if err != nil {
		g.log.Error("audit write failed",
			zap.String("ticker", result.Ticker),
			zap.Error(err))
	}
}

func (g *Gate) notifyOrder(ctx context.Context, cfg *types.TradeSafetyConfig, result types.OrderResult, reason string) {
	mode := "live"
	if cfg.Virtual {
		mode = "virtual"
	}

	message := fmt.Sprintf("[%s] %s %s x%d @ %s (%s): %s",
		mode, result.Side, result.Ticker, result.Quantity,
		result.Price.String(), reason, result.Status)

	if result.Status == types.OrderStatusRejected {
		g.notifier.Alert(ctx, message)

		return
	}

	g.notifier.Send(ctx, message)
}
