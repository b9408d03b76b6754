package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riverjin839/riverflow/pkg/errors"
)

// Operator is a comparison operator inside a filter predicate.
type Operator string

const (
	OpGTE     Operator = ">="
	OpLTE     Operator = "<="
	OpGT      Operator = ">"
	OpLT      Operator = "<"
	OpEQ      Operator = "=="
	OpBetween Operator = "between"
)

// FilterPredicate is one pure, stateless condition evaluated against a single
// snapshot row. Predicates inside a condition are conjunctive.
type FilterPredicate struct {
	Field    string   `yaml:"field" json:"field" validate:"required"`
	Operator Operator `yaml:"operator" json:"operator" validate:"required,oneof=>= <= > < == between"`
	Value    float64  `yaml:"value" json:"value"`
	// Range is the inclusive [low, high] bound used by the between operator.
	Range [2]float64 `yaml:"range" json:"range"`
}

// Evaluate reports whether the snapshot row passes this predicate.
// A missing field fails the predicate.
func (p *FilterPredicate) Evaluate(row *StockSnapshot) bool {
	value, ok := row.Field(p.Field)
	if !ok {
		return false
	}

	switch p.Operator {
	case OpGTE:
		return value >= p.Value
	case OpLTE:
		return value <= p.Value
	case OpGT:
		return value > p.Value
	case OpLT:
		return value < p.Value
	case OpEQ:
		return value == p.Value
	case OpBetween:
		return p.Range[0] <= value && value <= p.Range[1]
	default:
		return false
	}
}

// SortOrder is the result ordering direction of a scan condition.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ScanCondition is a named, user-owned set of filter predicates plus ranking
// rules. Conditions with an AutoTrade config buy their top match when the
// scheduler runs them.
type ScanCondition struct {
	ID         int64             `yaml:"id" json:"id"`
	Name       string            `yaml:"name" json:"name" validate:"required"`
	Markets    []string          `yaml:"markets" json:"markets" validate:"required,min=1"`
	Filters    []FilterPredicate `yaml:"filters" json:"filters" validate:"required,min=1,dive"`
	SortBy     string            `yaml:"sort_by" json:"sort_by"`
	SortOrder  SortOrder         `yaml:"sort_order" json:"sort_order" validate:"omitempty,oneof=asc desc"`
	MaxResults int               `yaml:"max_results" json:"max_results" validate:"gte=0"`
	IsActive   bool              `yaml:"is_active" json:"is_active"`
	// AutoTrade carries the safety config for conditions wired to auto
	// execution. None disables auto-buying for this condition.
	AutoTrade Optional[TradeSafetyConfig] `yaml:"auto_trade" json:"auto_trade"`
}

// Validate validates the ScanCondition struct.
func (c *ScanCondition) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidCondition, "invalid scan condition", err)
	}

	if c.AutoTrade.IsSome() {
		cfg := c.AutoTrade.Unwrap()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ScanCandidate is one matched instrument at scan time. Immutable once written.
type ScanCandidate struct {
	ConditionID int64     `json:"condition_id"`
	Ticker      string    `json:"ticker"`
	Name        string    `json:"name"`
	Price       int64     `json:"price_at_match"`
	Volume      int64     `json:"volume_at_match"`
	ChangeRate  float64   `json:"change_rate"`
	VolumeRatio float64   `json:"volume_ratio"`
	MatchedAt   time.Time `json:"matched_at"`
	// Detail is the free-form match payload persisted alongside the row.
	Detail map[string]any `json:"detail"`
}

// SectorMover is one of the top-3 instruments backing a sector snapshot.
type SectorMover struct {
	Ticker      string  `json:"ticker"`
	Name        string  `json:"name"`
	ChangeRate  float64 `json:"change_rate"`
	VolumeRatio float64 `json:"volume_ratio"`
	Price       int64   `json:"price"`
}

// SectorSnapshot is a per-sector aggregate at analysis time. Derived, never
// mutated; later runs supersede earlier ones.
type SectorSnapshot struct {
	SectorName        string        `json:"sector_name"`
	Market            string        `json:"market"`
	StockCount        int           `json:"stock_count"`
	Top3AvgChangeRate float64       `json:"top3_avg_change_rate"`
	SectorVolumeRatio float64       `json:"sector_volume_ratio"`
	IsLeading         bool          `json:"is_leading"`
	LeaderTicker      string        `json:"leader_ticker"`
	LeaderName        string        `json:"leader_name"`
	LeaderChangeRate  float64       `json:"leader_change_rate"`
	TopMovers         []SectorMover `json:"top_movers"`
}

// Overheat warning tags.
const (
	WarnDisparityOverheat = "disparity_overheat"
	WarnSpikeOverheat     = "spike_overheat"
	WarnVolumeExplosion   = "volume_explosion"
)

// OverheatFlag marks one instrument with its triggered warning tags.
// Ephemeral; recomputed each run.
type OverheatFlag struct {
	Ticker       string   `json:"ticker"`
	Name         string   `json:"name"`
	ChangeRate   float64  `json:"change_rate"`
	Disparity    float64  `json:"disparity_20d"`
	Warnings     []string `json:"overheat_warnings"`
	IsOverheated bool     `json:"is_overheated"`
}
