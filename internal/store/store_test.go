package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

type StoreTestSuite struct {
	suite.Suite
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	st, err := Open(":memory:", logger.NewNopLogger())
	s.Require().NoError(err)
	s.store = st
}

func (s *StoreTestSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreTestSuite) TestCandidateRoundTrip() {
	matchedAt := time.Now().Truncate(time.Millisecond)

	candidates := []types.ScanCandidate{
		{
			ConditionID: 7,
			Ticker:      "005930",
			Name:        "Samsung Electronics",
			Price:       71200,
			Volume:      1234567,
			ChangeRate:  1.25,
			VolumeRatio: 2.5,
			MatchedAt:   matchedAt,
			Detail:      map[string]any{"market": "KOSPI", "sector": "semis"},
		},
		{
			ConditionID: 7,
			Ticker:      "000660",
			Name:        "SK hynix",
			Price:       98500,
			Volume:      555000,
			ChangeRate:  -0.71,
			VolumeRatio: 1.1,
			MatchedAt:   matchedAt,
		},
	}

	count, err := s.store.SaveCandidates(candidates)
	s.Require().NoError(err)
	s.Equal(2, count)

	loaded, err := s.store.RecentCandidates(matchedAt.Add(-time.Minute), 0)
	s.Require().NoError(err)
	s.Require().Len(loaded, 2)

	byTicker := make(map[string]types.ScanCandidate)
	for _, c := range loaded {
		byTicker[c.Ticker] = c
	}

	got := byTicker["005930"]
	s.Equal(int64(7), got.ConditionID)
	s.Equal("Samsung Electronics", got.Name)
	s.Equal(int64(71200), got.Price)
	s.InDelta(1.25, got.ChangeRate, 1e-9)
	s.Equal("KOSPI", got.Detail["market"])
	s.Equal("semis", got.Detail["sector"])
}

func (s *StoreTestSuite) TestSaveCandidatesEmptyIsNoop() {
	count, err := s.store.SaveCandidates(nil)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *StoreTestSuite) TestUpdateCandidatePricesPatchesRecentRows() {
	now := time.Now()

	_, err := s.store.SaveCandidates([]types.ScanCandidate{
		{ConditionID: 1, Ticker: "005930", Price: 70000, MatchedAt: now.Add(-time.Hour)},
		{ConditionID: 1, Ticker: "005930", Price: 69000, MatchedAt: now.Add(-48 * time.Hour)},
	})
	s.Require().NoError(err)

	touched, err := s.store.UpdateCandidatePrices(map[string]int64{"005930": 71500})
	s.Require().NoError(err)
	s.Equal(1, touched)

	recent, err := s.store.RecentCandidates(now.Add(-2*time.Hour), 0)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(int64(71500), recent[0].Price)

	all, err := s.store.RecentCandidates(now.Add(-72*time.Hour), 0)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(int64(69000), all[1].Price)
}

func (s *StoreTestSuite) TestSectorSnapshotRoundTrip() {
	analyzedAt := time.Now()

	snapshots := []types.SectorSnapshot{
		{
			SectorName:        "semis",
			Market:            "KOSPI",
			StockCount:        12,
			Top3AvgChangeRate: 4.2,
			SectorVolumeRatio: 260.0,
			IsLeading:         true,
			LeaderTicker:      "005930",
			LeaderName:        "Samsung Electronics",
			LeaderChangeRate:  5.5,
			TopMovers: []types.SectorMover{
				{Ticker: "005930", Name: "Samsung Electronics", ChangeRate: 5.5, Price: 71200},
			},
		},
		{
			SectorName:        "banks",
			Market:            "KOSPI",
			StockCount:        8,
			Top3AvgChangeRate: 1.0,
			SectorVolumeRatio: 90.0,
		},
	}

	s.Require().NoError(s.store.SaveSectorSnapshots(snapshots, analyzedAt))

	leading, err := s.store.LeadingSectors(analyzedAt.Add(-time.Minute))
	s.Require().NoError(err)
	s.Require().Len(leading, 1)
	s.Equal("semis", leading[0].SectorName)
	s.Require().Len(leading[0].TopMovers, 1)
	s.Equal("005930", leading[0].TopMovers[0].Ticker)
}

func (s *StoreTestSuite) TestSupplySnapshotRoundTrip() {
	snap := types.SupplySnapshot{
		Time:              time.Now().Truncate(time.Millisecond),
		Market:            "KOSPI",
		IndexValue:        2512.3,
		IndexChangeRate:   0.42,
		ForeignNetBuy:     120000,
		InstitutionNetBuy: -34000,
		IndividualNetBuy:  -86000,
		ForeignTrend:      types.TrendRising,
		InstitutionTrend:  types.TrendFalling,
	}

	s.Require().NoError(s.store.SaveSupplySnapshot(snap))

	loaded, err := s.store.LatestSupplySnapshot("KOSPI")
	s.Require().NoError(err)
	s.Equal(snap.Market, loaded.Market)
	s.InDelta(snap.IndexValue, loaded.IndexValue, 1e-9)
	s.Equal(snap.ForeignNetBuy, loaded.ForeignNetBuy)
	s.Equal(types.TrendRising, loaded.ForeignTrend)
	s.Equal(types.TrendFalling, loaded.InstitutionTrend)
}

func (s *StoreTestSuite) TestLatestSupplySnapshotMissingMarket() {
	_, err := s.store.LatestSupplySnapshot("KOSDAQ")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (s *StoreTestSuite) TestAuditRoundTripAndDailyStats() {
	dayStart := time.Now().Add(-time.Hour)

	records := []AuditRecord{
		{
			OrderID:  "ORD-1",
			Ticker:   "005930",
			Side:     types.OrderSideBuy,
			Quantity: 10,
			Price:    decimal.NewFromInt(50_000),
			Status:   types.OrderStatusSubmitted,
			Broker:   "kis",
			Reason:   "condition: momentum",
		},
		{
			OrderID:  "ORD-2",
			Ticker:   "000660",
			Side:     types.OrderSideBuy,
			Quantity: 3,
			Price:    decimal.NewFromInt(100_000),
			Status:   types.OrderStatusRejected,
			Broker:   "kis",
			Reason:   "condition: momentum",
		},
		{
			OrderID:  "ORD-3",
			Ticker:   "005930",
			Side:     types.OrderSideSell,
			Quantity: 10,
			Price:    decimal.NewFromInt(52_000),
			Status:   types.OrderStatusSubmitted,
			Broker:   "kis",
			Reason:   "take_profit: 4.00% >= 3.00%",
		},
	}

	for _, rec := range records {
		s.Require().NoError(s.store.SaveAudit(rec))
	}

	trail, err := s.store.AuditTrail(dayStart)
	s.Require().NoError(err)
	s.Require().Len(trail, 3)

	// Only the submitted buy counts toward the daily envelope.
	count, amount, err := s.store.DailyOrderStats(dayStart)
	s.Require().NoError(err)
	s.Equal(1, count)
	s.True(amount.Equal(decimal.NewFromInt(500_000)), "got %s", amount.String())
}

func (s *StoreTestSuite) TestClosedStoreRefusesWrites() {
	s.Require().NoError(s.store.Close())

	_, err := s.store.SaveCandidates([]types.ScanCandidate{{Ticker: "005930"}})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStoreClosed))

	// Reopen so TearDownTest's close is a no-op on a fresh handle.
	st, err := Open(":memory:", logger.NewNopLogger())
	s.Require().NoError(err)
	s.store = st
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
