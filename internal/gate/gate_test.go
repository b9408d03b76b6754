package gate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/riverjin839/riverflow/internal/broker"
	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/notify"
	"github.com/riverjin839/riverflow/internal/store"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

// tradeBroker is a scriptable broker for gate tests.
type tradeBroker struct {
	quote      types.Quote
	quoteErr   error
	balance    types.AccountBalance
	balanceErr error
	orderErr   error
	rejectAll  bool
	orders     []types.OrderRequest
}

func (b *tradeBroker) Name() string                      { return "stub" }
func (b *tradeBroker) Connect(ctx context.Context) error { return nil }

func (b *tradeBroker) GetQuote(ctx context.Context, ticker string) (types.Quote, error) {
	if b.quoteErr != nil {
		return types.Quote{}, b.quoteErr
	}

	quote := b.quote
	quote.Ticker = ticker

	return quote, nil
}

func (b *tradeBroker) GetUniverseSnapshot(ctx context.Context, market string) ([]types.StockSnapshot, error) {
	return nil, nil
}

func (b *tradeBroker) GetHistory(ctx context.Context, ticker string, periods int) ([]int64, error) {
	return nil, nil
}

func (b *tradeBroker) GetBalance(ctx context.Context) (types.AccountBalance, error) {
	if b.balanceErr != nil {
		return types.AccountBalance{}, b.balanceErr
	}

	return b.balance, nil
}

func (b *tradeBroker) GetMarketIndex(ctx context.Context, market string) (float64, float64, error) {
	return 0, 0, nil
}

func (b *tradeBroker) GetInvestorFlows(ctx context.Context, market string) (int64, int64, int64, error) {
	return 0, 0, 0, nil
}

func (b *tradeBroker) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if b.orderErr != nil {
		return types.OrderResult{}, b.orderErr
	}

	b.orders = append(b.orders, req)

	status := types.OrderStatusSubmitted
	if b.rejectAll {
		status = types.OrderStatusRejected
	}

	return types.OrderResult{
		OrderID:  "ORD-1",
		Ticker:   req.Ticker,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price.TakeOr(decimal.Zero),
		Status:   status,
		Broker:   b.Name(),
	}, nil
}

func (b *tradeBroker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	return true, nil
}

func (b *tradeBroker) GetOrderHistory(ctx context.Context, date string) ([]types.OrderExecution, error) {
	return nil, nil
}

func (b *tradeBroker) StreamAuth(ctx context.Context) (broker.StreamAuth, error) {
	return broker.StreamAuth{}, nil
}

var _ broker.Broker = (*tradeBroker)(nil)

// memoryAuditStore records audit rows in memory.
type memoryAuditStore struct {
	records []store.AuditRecord
}

func (m *memoryAuditStore) SaveAudit(rec store.AuditRecord) error {
	m.records = append(m.records, rec)

	return nil
}

type GateTestSuite struct {
	suite.Suite
	broker *tradeBroker
	audit  *memoryAuditStore
	gate   *Gate
}

func (s *GateTestSuite) SetupTest() {
	s.broker = &tradeBroker{
		quote: types.Quote{Price: 50_000},
	}
	s.audit = &memoryAuditStore{}

	cfg := types.DefaultTradeSafetyConfig()
	cfg.Enabled = true

	g, err := NewGate(s.broker, s.audit, notify.NopNotifier{}, logger.NewNopLogger(), cfg, "Asia/Seoul")
	s.Require().NoError(err)

	s.gate = g
	s.setClock(11, 0)
}

// setClock pins the gate's clock to a weekday at the given market-local time.
func (s *GateTestSuite) setClock(hour, minute int) {
	loc, err := time.LoadLocation("Asia/Seoul")
	s.Require().NoError(err)

	// 2024-06-05 is a Wednesday.
	fixed := time.Date(2024, 6, 5, hour, minute, 0, 0, loc)
	s.gate.now = func() time.Time { return fixed }
}

func (s *GateTestSuite) updateConfig(mutate func(cfg *types.TradeSafetyConfig)) {
	cfg := s.gate.Config()
	mutate(&cfg)
	s.Require().NoError(s.gate.UpdateConfig(cfg))
}

func (s *GateTestSuite) TestBuyRefusedWhenDisabled() {
	s.updateConfig(func(cfg *types.TradeSafetyConfig) { cfg.Enabled = false })

	_, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeTradingDisabled))
	s.Empty(s.broker.orders)
	s.Empty(s.audit.records)
}

func (s *GateTestSuite) TestBuyWithConditionConfigOverridesBase() {
	s.updateConfig(func(cfg *types.TradeSafetyConfig) { cfg.Enabled = false })

	override := types.DefaultTradeSafetyConfig()
	override.Enabled = true
	override.MaxQuantityPerOrder = 3

	result, err := s.gate.ExecuteBuyWith(context.Background(), "005930", "condition: momentum", override)
	s.Require().NoError(err)
	s.Equal(types.OrderStatusSubmitted, result.Status)
	s.Equal(int64(3), result.Quantity)

	// Counters are shared across configs.
	count, amount := s.gate.DailyCounters()
	s.Equal(1, count)
	s.True(amount.Equal(decimal.NewFromInt(150_000)))
}

func (s *GateTestSuite) TestBuyWithDisabledConfigRefused() {
	_, err := s.gate.ExecuteBuyWith(context.Background(), "005930", "test", types.DefaultTradeSafetyConfig())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeTradingDisabled))
	s.Empty(s.broker.orders)
}

func (s *GateTestSuite) TestBuyWithRejectsInvalidConfig() {
	override := types.DefaultTradeSafetyConfig()
	override.StopLossRate = decimal.NewFromFloat(2.0)

	_, err := s.gate.ExecuteBuyWith(context.Background(), "005930", "test", override)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidSafetyConfig))
	s.Empty(s.broker.orders)
}

func (s *GateTestSuite) TestBuyRefusedOutsideTradingHours() {
	s.setClock(8, 0)

	_, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeOutsideTradingHours))
}

func (s *GateTestSuite) TestBuyAllowedAtWindowEdges() {
	for _, clock := range [][2]int{{9, 5}, {15, 15}} {
		s.setClock(clock[0], clock[1])

		result, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
		s.Require().NoError(err)
		s.Equal(types.OrderStatusSubmitted, result.Status)
	}
}

func (s *GateTestSuite) TestBuySizesQuantityByAmountCap() {
	// 500k cap at 50k/share: amount allows 10, quantity cap allows 10.
	result, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().NoError(err)
	s.Equal(int64(10), result.Quantity)

	// Triple the price: amount cap shrinks the order to 3 shares.
	s.broker.quote.Price = 150_000

	result, err = s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().NoError(err)
	s.Equal(int64(3), result.Quantity)
}

func (s *GateTestSuite) TestBuyQuantityNeverExceedsCaps() {
	prices := []int64{1, 137, 49_999, 50_000, 500_000, 500_001, 7_777_777}

	for _, price := range prices {
		s.SetupTest()
		s.broker.quote.Price = price

		cfg := s.gate.Config()

		result, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
		if err != nil {
			s.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))
			s.Greater(price, cfg.MaxAmountPerOrder.IntPart())

			continue
		}

		s.LessOrEqual(result.Quantity, cfg.MaxQuantityPerOrder)

		notional := decimal.NewFromInt(price).Mul(decimal.NewFromInt(result.Quantity))
		s.True(notional.LessThanOrEqual(cfg.MaxAmountPerOrder),
			"notional %s exceeds cap at price %d", notional.String(), price)
	}
}

func (s *GateTestSuite) TestBuyRefusedWhenUnaffordable() {
	s.broker.quote.Price = 600_000

	_, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))
}

func (s *GateTestSuite) TestDailyOrderCountBound() {
	s.updateConfig(func(cfg *types.TradeSafetyConfig) { cfg.MaxDailyOrders = 3 })

	submitted := 0

	for i := 0; i < 10; i++ {
		_, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
		if err == nil {
			submitted++

			continue
		}

		s.True(errors.HasCode(err, errors.ErrCodeDailyLimitReached))
	}

	s.Equal(3, submitted)
	s.Len(s.broker.orders, 3)

	count, _ := s.gate.DailyCounters()
	s.Equal(3, count)
}

func (s *GateTestSuite) TestDailyAmountBound() {
	// Each order is 10 x 50k = 500k; the 2M daily cap admits four.
	for i := 0; i < 4; i++ {
		_, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
		s.Require().NoError(err)
	}

	_, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeDailyLimitReached))

	_, amount := s.gate.DailyCounters()
	s.True(amount.Equal(decimal.NewFromInt(2_000_000)))
}

func (s *GateTestSuite) TestRejectedOrderDoesNotCount() {
	s.broker.rejectAll = true

	result, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusRejected, result.Status)

	count, amount := s.gate.DailyCounters()
	s.Equal(0, count)
	s.True(amount.IsZero())
	s.Len(s.audit.records, 1)
}

func (s *GateTestSuite) TestPositionCountBound() {
	s.updateConfig(func(cfg *types.TradeSafetyConfig) { cfg.MaxPositions = 2 })
	s.broker.balance.Positions = []types.Position{
		{Ticker: "000660", Quantity: 5},
		{Ticker: "035420", Quantity: 1},
		{Ticker: "closed", Quantity: 0},
	}

	_, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodePositionLimitReached))
}

func (s *GateTestSuite) TestTransportFailureBecomesRejectedResult() {
	s.broker.orderErr = errors.New(errors.ErrCodeBrokerRequestFailed, "connection reset")

	result, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusRejected, result.Status)
	s.Contains(result.Message, "connection reset")
	s.Len(s.audit.records, 1)
	s.Equal(types.OrderStatusRejected, s.audit.records[0].Status)
}

func (s *GateTestSuite) TestSellBypassesHoursAndDailyCaps() {
	s.setClock(20, 0)
	s.updateConfig(func(cfg *types.TradeSafetyConfig) { cfg.MaxDailyOrders = 1 })
	s.broker.balance.Positions = []types.Position{
		{Ticker: "005930", Quantity: 7, CurrentPrice: decimal.NewFromInt(50_000)},
	}

	result, err := s.gate.ExecuteSell(context.Background(), "005930", "manual")
	s.Require().NoError(err)
	s.Equal(types.OrderSideSell, result.Side)
	s.Equal(int64(7), result.Quantity)
}

func (s *GateTestSuite) TestSellRefusedWithoutPosition() {
	_, err := s.gate.ExecuteSell(context.Background(), "005930", "manual")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))
}

func (s *GateTestSuite) TestStopLossSweep() {
	s.broker.balance.Positions = []types.Position{
		{Ticker: "LOSS", Quantity: 5, ProfitRate: decimal.NewFromFloat(-3.42)},
		{Ticker: "GAIN", Quantity: 5, ProfitRate: decimal.NewFromFloat(6.10)},
		{Ticker: "HOLD", Quantity: 5, ProfitRate: decimal.NewFromFloat(1.00)},
	}

	results, err := s.gate.CheckStopLoss(context.Background())
	s.Require().NoError(err)
	s.Len(results, 2)

	reasons := make(map[string]string)
	for _, rec := range s.audit.records {
		reasons[rec.Ticker] = rec.Reason
	}

	s.Equal("stop_loss: -3.42% <= -3.00%", reasons["LOSS"])
	s.Equal("take_profit: 6.10% >= 5.00%", reasons["GAIN"])
	s.NotContains(reasons, "HOLD")
}

func (s *GateTestSuite) TestResetDailyCounters() {
	_, err := s.gate.ExecuteBuy(context.Background(), "005930", "test")
	s.Require().NoError(err)

	s.gate.ResetDailyCounters()

	count, amount := s.gate.DailyCounters()
	s.Equal(0, count)
	s.True(amount.IsZero())
}

func (s *GateTestSuite) TestUpdateConfigRejectsInvalid() {
	cfg := s.gate.Config()
	cfg.StopLossRate = decimal.NewFromFloat(3.0)

	err := s.gate.UpdateConfig(cfg)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidSafetyConfig))
}

func TestGateTestSuite(t *testing.T) {
	suite.Run(t, new(GateTestSuite))
}

func TestOrderQuantity(t *testing.T) {
	cfg := types.DefaultTradeSafetyConfig()

	tests := []struct {
		name     string
		price    int64
		expected int64
	}{
		{"cheap share hits quantity cap", 100, 10},
		{"amount cap binds", 200_000, 2},
		{"exactly one share affordable", 500_000, 1},
		{"unaffordable", 500_001, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orderQuantity(&cfg, decimal.NewFromInt(tt.price))
			if got != tt.expected {
				t.Fatalf("price %d: got %d, want %d", tt.price, got, tt.expected)
			}
		})
	}
}
