// Package scanner evaluates user-defined scan conditions against full-market
// snapshots and derives sector leadership and overheat analytics.
package scanner

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/riverjin839/riverflow/internal/broker"
	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

const (
	leadingTop3Threshold   = 3.0
	leadingVolumeThreshold = 200.0
	minSectorMembers       = 3
	maxSectorSnapshots     = 20

	disparityThreshold     = 130.0
	spikeChangeThreshold   = 15.0
	spikeTurnoverThreshold = 200.0
	explosionChange        = 10.0
	explosionVolumeRatio   = 5.0
)

// ResultStore is the slice of the store the scanner writes through.
type ResultStore interface {
	SaveCandidates(candidates []types.ScanCandidate) (int, error)
	SaveSectorSnapshots(snapshots []types.SectorSnapshot, analyzedAt time.Time) error
}

// Scanner runs conditions and analytics against broker snapshots.
type Scanner struct {
	broker broker.Broker
	store  ResultStore
	log    *logger.Logger
}

// NewScanner creates the scanner.
func NewScanner(b broker.Broker, store ResultStore, log *logger.Logger) *Scanner {
	return &Scanner{
		broker: b,
		store:  store,
		log:    log,
	}
}

// Scan evaluates one condition and returns its matches, best first. A market
// whose snapshot fetch fails is logged and skipped; the scan still returns
// the surviving markets' matches.
func (s *Scanner) Scan(ctx context.Context, cond types.ScanCondition) ([]types.ScanCandidate, error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()

	var matched []types.ScanCandidate

	for _, market := range cond.Markets {
		rows, err := s.broker.GetUniverseSnapshot(ctx, market)
		if err != nil {
			s.log.Warn("market snapshot failed, skipping",
				zap.String("market", market),
				zap.String("condition", cond.Name),
				zap.Error(err))

			continue
		}

		for i := range rows {
			if !matchesAll(&rows[i], cond.Filters) {
				continue
			}

			matched = append(matched, candidateFromRow(&rows[i], cond.ID, now))
		}
	}

	sortCandidates(matched, cond.SortBy, cond.SortOrder)

	if cond.MaxResults > 0 && len(matched) > cond.MaxResults {
		matched = matched[:cond.MaxResults]
	}

	s.log.Info("scan complete",
		zap.String("condition", cond.Name),
		zap.Int("matches", len(matched)))

	return matched, nil
}

// matchesAll evaluates the conjunctive predicate set with short-circuit.
func matchesAll(row *types.StockSnapshot, filters []types.FilterPredicate) bool {
	for i := range filters {
		if !filters[i].Evaluate(row) {
			return false
		}
	}

	return true
}

func candidateFromRow(row *types.StockSnapshot, conditionID int64, matchedAt time.Time) types.ScanCandidate {
	return types.ScanCandidate{
		ConditionID: conditionID,
		Ticker:      row.Ticker,
		Name:        row.Name,
		Price:       row.Price,
		Volume:      row.Volume,
		ChangeRate:  row.ChangeRate,
		VolumeRatio: row.VolumeRatio,
		MatchedAt:   matchedAt,
		Detail: map[string]any{
			"market":        row.Market,
			"sector":        row.Sector,
			"market_cap":    row.MarketCap,
			"trade_amount":  row.TradeAmount,
			"turnover_rate": row.TurnoverRate,
		},
	}
}

func sortCandidates(candidates []types.ScanCandidate, sortBy string, order types.SortOrder) {
	if sortBy == "" {
		sortBy = "change_rate"
	}

	desc := order != types.SortAsc

	key := func(c *types.ScanCandidate) float64 {
		switch sortBy {
		case "price":
			return float64(c.Price)
		case "volume":
			return float64(c.Volume)
		case "volume_ratio":
			return c.VolumeRatio
		default:
			return c.ChangeRate
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if desc {
			return key(&candidates[i]) > key(&candidates[j])
		}

		return key(&candidates[i]) < key(&candidates[j])
	})
}

// SaveResults persists one scan run's matches and returns the row count.
func (s *Scanner) SaveResults(ctx context.Context, candidates []types.ScanCandidate) (int, error) {
	count, err := s.store.SaveCandidates(candidates)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// AnalyzeSectors groups the markets' instruments by sector, measures each
// sector's top-3 strength and relative volume, flags leaders, and persists
// the hottest snapshots.
func (s *Scanner) AnalyzeSectors(ctx context.Context, markets []string) ([]types.SectorSnapshot, error) {
	type sectorGroup struct {
		market string
		rows   []types.StockSnapshot
	}

	groups := make(map[string]*sectorGroup)
	fetched := 0

	for _, market := range markets {
		rows, err := s.broker.GetUniverseSnapshot(ctx, market)
		if err != nil {
			s.log.Warn("market snapshot failed, skipping",
				zap.String("market", market),
				zap.Error(err))

			continue
		}

		fetched++

		for _, row := range rows {
			if row.Sector == "" {
				continue
			}

			g, ok := groups[row.Sector]
			if !ok {
				g = &sectorGroup{market: market}
				groups[row.Sector] = g
			}

			g.rows = append(g.rows, row)
		}
	}

	if fetched == 0 {
		return nil, errors.New(errors.ErrCodeBrokerRequestFailed, "no market snapshot available for sector analysis")
	}

	var snapshots []types.SectorSnapshot

	for sector, g := range groups {
		if len(g.rows) < minSectorMembers {
			continue
		}

		sort.Slice(g.rows, func(i, j int) bool {
			return g.rows[i].ChangeRate > g.rows[j].ChangeRate
		})

		top3 := g.rows[:3]
		top3Avg := (top3[0].ChangeRate + top3[1].ChangeRate + top3[2].ChangeRate) / 3.0

		volumeRatio := sectorVolumeRatio(g.rows)

		movers := make([]types.SectorMover, 0, len(top3))
		for _, row := range top3 {
			movers = append(movers, types.SectorMover{
				Ticker:      row.Ticker,
				Name:        row.Name,
				ChangeRate:  row.ChangeRate,
				VolumeRatio: row.VolumeRatio,
				Price:       row.Price,
			})
		}

		snapshots = append(snapshots, types.SectorSnapshot{
			SectorName:        sector,
			Market:            g.market,
			StockCount:        len(g.rows),
			Top3AvgChangeRate: top3Avg,
			SectorVolumeRatio: volumeRatio,
			IsLeading:         top3Avg > leadingTop3Threshold && volumeRatio > leadingVolumeThreshold,
			LeaderTicker:      top3[0].Ticker,
			LeaderName:        top3[0].Name,
			LeaderChangeRate:  top3[0].ChangeRate,
			TopMovers:         movers,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].IsLeading != snapshots[j].IsLeading {
			return snapshots[i].IsLeading
		}

		return snapshots[i].Top3AvgChangeRate > snapshots[j].Top3AvgChangeRate
	})

	if len(snapshots) > maxSectorSnapshots {
		snapshots = snapshots[:maxSectorSnapshots]
	}

	if err := s.store.SaveSectorSnapshots(snapshots, time.Now()); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// sectorVolumeRatio relates today's traded value to the sector's baseline
// implied by each member's own ratio.
func sectorVolumeRatio(rows []types.StockSnapshot) float64 {
	var traded, baseline float64

	for _, row := range rows {
		ratio := row.TradeAmountRatio
		if ratio < 0.01 {
			ratio = 0.01
		}

		traded += float64(row.TradeAmount)
		baseline += float64(row.TradeAmount) / ratio
	}

	if baseline == 0 {
		return 0
	}

	return traded / baseline * 100.0
}

// CheckOverheat flags instruments whose price ran ahead of their 20-day
// average or whose session move looks disorderly. Flagged rows come back
// sorted by change rate, hottest first.
func (s *Scanner) CheckOverheat(ctx context.Context, markets []string) ([]types.OverheatFlag, error) {
	var flagged []types.OverheatFlag

	fetched := 0

	for _, market := range markets {
		rows, err := s.broker.GetUniverseSnapshot(ctx, market)
		if err != nil {
			s.log.Warn("market snapshot failed, skipping",
				zap.String("market", market),
				zap.Error(err))

			continue
		}

		fetched++

		for _, row := range rows {
			flag := s.classifyOverheat(ctx, row)
			if flag.IsOverheated {
				flagged = append(flagged, flag)
			}
		}
	}

	if fetched == 0 {
		return nil, errors.New(errors.ErrCodeBrokerRequestFailed, "no market snapshot available for overheat check")
	}

	sort.Slice(flagged, func(i, j int) bool {
		return flagged[i].ChangeRate > flagged[j].ChangeRate
	})

	return flagged, nil
}

func (s *Scanner) classifyOverheat(ctx context.Context, row types.StockSnapshot) types.OverheatFlag {
	flag := types.OverheatFlag{
		Ticker:     row.Ticker,
		Name:       row.Name,
		ChangeRate: row.ChangeRate,
	}

	if disparity, ok := s.disparity20(ctx, row); ok {
		flag.Disparity = disparity
		if disparity >= disparityThreshold {
			flag.Warnings = append(flag.Warnings, types.WarnDisparityOverheat)
		}
	}

	switch {
	case row.ChangeRate > spikeChangeThreshold && row.TurnoverRate > spikeTurnoverThreshold:
		flag.Warnings = append(flag.Warnings, types.WarnSpikeOverheat)
	case row.ChangeRate > explosionChange && row.VolumeRatio > explosionVolumeRatio:
		flag.Warnings = append(flag.Warnings, types.WarnVolumeExplosion)
	}

	flag.IsOverheated = len(flag.Warnings) > 0

	return flag
}

// disparity20 computes price relative to the 20-day moving average. A short
// or failed history skips the disparity signal for that instrument.
func (s *Scanner) disparity20(ctx context.Context, row types.StockSnapshot) (float64, bool) {
	closes, err := s.broker.GetHistory(ctx, row.Ticker, 20)
	if err != nil || len(closes) < 20 {
		return 0, false
	}

	var sum int64
	for _, c := range closes[:20] {
		sum += c
	}

	ma20 := float64(sum) / 20.0
	if ma20 == 0 {
		return 0, false
	}

	return float64(row.Price) / ma20 * 100.0, true
}
