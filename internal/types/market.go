package types

import "time"

// Tick is one real-time price/volume update for an instrument. Ticks are
// buffered in memory and either cached (latest per ticker) or flushed.
type Tick struct {
	Ticker     string    `json:"ticker"`
	Price      int64     `json:"current_price"`
	Volume     int64     `json:"volume"`
	ChangeRate float64   `json:"change_rate"`
	ReceivedAt time.Time `json:"received_at"`
}

// PriceEntry is the latest known price state for one ticker. Last write wins.
type PriceEntry struct {
	Price      int64     `json:"price"`
	Volume     int64     `json:"volume"`
	ChangeRate float64   `json:"change_rate"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Quote is a single-instrument price lookup through the broker.
type Quote struct {
	Ticker     string  `json:"ticker"`
	Price      int64   `json:"current_price"`
	ChangeRate float64 `json:"change_rate"`
	Volume     int64   `json:"volume"`
	High       int64   `json:"high"`
	Low        int64   `json:"low"`
	Open       int64   `json:"open"`
}

// StockSnapshot is one instrument row inside a full-universe snapshot.
type StockSnapshot struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Market string `json:"market"`
	Sector string `json:"sector"`

	Price      int64   `json:"price"`
	Open       int64   `json:"open"`
	High       int64   `json:"high"`
	Low        int64   `json:"low"`
	Volume     int64   `json:"volume"`
	ChangeRate float64 `json:"change_rate"`

	// VolumeRatio is today's volume over the prior session's volume.
	VolumeRatio float64 `json:"volume_ratio"`
	MarketCap   int64   `json:"market_cap"`
	// TradeAmount is the accumulated traded value for the session.
	TradeAmount int64 `json:"trade_amount"`
	// TradeAmountRatio is today's traded value over the prior session's.
	TradeAmountRatio float64 `json:"trade_amount_ratio"`
	// TurnoverRate is traded volume as a percentage of listed shares.
	TurnoverRate float64 `json:"turnover_rate"`
}

// Field returns a named numeric field of the snapshot for filter evaluation.
// The second return is false when the field name is unknown.
func (s *StockSnapshot) Field(name string) (float64, bool) {
	switch name {
	case "price":
		return float64(s.Price), true
	case "open":
		return float64(s.Open), true
	case "high":
		return float64(s.High), true
	case "low":
		return float64(s.Low), true
	case "volume":
		return float64(s.Volume), true
	case "change_rate":
		return s.ChangeRate, true
	case "volume_ratio":
		return s.VolumeRatio, true
	case "market_cap":
		return float64(s.MarketCap), true
	case "trade_amount":
		return float64(s.TradeAmount), true
	case "trade_amount_ratio":
		return s.TradeAmountRatio, true
	case "turnover_rate":
		return s.TurnoverRate, true
	default:
		return 0, false
	}
}

// TrendDirection classifies a rolling window of net-buy values.
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendFlat    TrendDirection = "flat"
)

// SupplySnapshot is one per-market index/investor-flow observation. Snapshots
// are members of a fixed-size rolling window per market.
type SupplySnapshot struct {
	Time   time.Time `json:"snapshot_time"`
	Market string    `json:"market"`

	IndexValue      float64 `json:"index_value"`
	IndexChangeRate float64 `json:"index_change_rate"`

	ForeignNetBuy     int64 `json:"foreign_net_buy"`
	InstitutionNetBuy int64 `json:"institution_net_buy"`
	IndividualNetBuy  int64 `json:"individual_net_buy"`

	ForeignTrend     TrendDirection `json:"foreign_trend"`
	InstitutionTrend TrendDirection `json:"institution_trend"`
}
