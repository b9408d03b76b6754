// Package store persists scan results, sector analysis, supply snapshots,
// and the order audit trail in an embedded DuckDB database.
package store

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"

	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

// Store owns the DuckDB connection. All methods are safe for concurrent use.
type Store struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
	mu  sync.Mutex
}

// Open opens (or creates) the database at path and ensures the schema.
// An empty path defaults to an in-memory database.
func Open(path string, log *logger.Logger) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open database", err)
	}

	s := &Store{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *Store) initialize() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS scan_candidates (
			id TEXT PRIMARY KEY,
			condition_id BIGINT,
			ticker TEXT,
			name TEXT,
			price BIGINT,
			volume BIGINT,
			change_rate DOUBLE,
			volume_ratio DOUBLE,
			matched_at TIMESTAMP,
			detail TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sector_analysis (
			id TEXT PRIMARY KEY,
			sector_name TEXT,
			market TEXT,
			stock_count INTEGER,
			top3_avg_change_rate DOUBLE,
			sector_volume_ratio DOUBLE,
			is_leading BOOLEAN,
			leader_ticker TEXT,
			leader_name TEXT,
			leader_change_rate DOUBLE,
			top_movers TEXT,
			analyzed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS supply_snapshots (
			id TEXT PRIMARY KEY,
			market TEXT,
			index_value DOUBLE,
			index_change_rate DOUBLE,
			foreign_net_buy BIGINT,
			institution_net_buy BIGINT,
			individual_net_buy BIGINT,
			foreign_trend TEXT,
			institution_trend TEXT,
			snapshot_time TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS order_audit (
			id TEXT PRIMARY KEY,
			order_id TEXT,
			ticker TEXT,
			side TEXT,
			quantity BIGINT,
			price TEXT,
			status TEXT,
			broker TEXT,
			reason TEXT,
			strategy_id TEXT,
			recorded_at TIMESTAMP
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create table", err)
		}
	}

	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to close database", err)
	}

	return nil
}

func (s *Store) ensureOpen() error {
	if s.db == nil {
		return errors.New(errors.ErrCodeStoreClosed, "store is closed")
	}

	return nil
}

// SaveCandidates writes one scan run's matches in a single transaction and
// returns the number of rows written.
func (s *Store) SaveCandidates(candidates []types.ScanCandidate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return 0, err
	}

	if len(candidates) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	insert := s.sq.
		Insert("scan_candidates").
		Columns("id", "condition_id", "ticker", "name", "price", "volume",
			"change_rate", "volume_ratio", "matched_at", "detail")

	for _, c := range candidates {
		detail, merr := json.Marshal(c.Detail)
		if merr != nil {
			tx.Rollback()

			return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to encode candidate detail", merr)
		}

		insert = insert.Values(uuid.New().String(), c.ConditionID, c.Ticker, c.Name,
			c.Price, c.Volume, c.ChangeRate, c.VolumeRatio, c.MatchedAt, string(detail))
	}

	if _, err := insert.RunWith(tx).Exec(); err != nil {
		tx.Rollback()

		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert scan candidates", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit scan candidates", err)
	}

	return len(candidates), nil
}

// RecentCandidates returns candidates matched since cutoff, newest first.
func (s *Store) RecentCandidates(cutoff time.Time, limit int) ([]types.ScanCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	query := s.sq.
		Select("condition_id", "ticker", "name", "price", "volume",
			"change_rate", "volume_ratio", "matched_at", "detail").
		From("scan_candidates").
		Where(squirrel.GtOrEq{"matched_at": cutoff}).
		OrderBy("matched_at DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query scan candidates", err)
	}
	defer rows.Close()

	var out []types.ScanCandidate

	for rows.Next() {
		var (
			c      types.ScanCandidate
			detail string
		)

		if err := rows.Scan(&c.ConditionID, &c.Ticker, &c.Name, &c.Price, &c.Volume,
			&c.ChangeRate, &c.VolumeRatio, &c.MatchedAt, &detail); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candidate row", err)
		}

		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &c.Detail); err != nil {
				return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode candidate detail", err)
			}
		}

		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "candidate row iteration failed", err)
	}

	return out, nil
}

// UpdateCandidatePrices patches the stored price of candidates matched within
// the last day, keyed by ticker. Returns the number of rows touched.
func (s *Store) UpdateCandidatePrices(prices map[string]int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return 0, err
	}

	if len(prices) == 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	touched := 0

	for ticker, price := range prices {
		res, err := s.sq.
			Update("scan_candidates").
			Set("price", price).
			Where(squirrel.Eq{"ticker": ticker}).
			Where(squirrel.GtOrEq{"matched_at": cutoff}).
			RunWith(s.db).
			Exec()
		if err != nil {
			return touched, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to update price for %s", ticker)
		}

		if n, aerr := res.RowsAffected(); aerr == nil {
			touched += int(n)
		}
	}

	return touched, nil
}

// SaveSectorSnapshots persists one sector analysis run.
func (s *Store) SaveSectorSnapshots(snapshots []types.SectorSnapshot, analyzedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}

	if len(snapshots) == 0 {
		return nil
	}

	insert := s.sq.
		Insert("sector_analysis").
		Columns("id", "sector_name", "market", "stock_count", "top3_avg_change_rate",
			"sector_volume_ratio", "is_leading", "leader_ticker", "leader_name",
			"leader_change_rate", "top_movers", "analyzed_at")

	for _, snap := range snapshots {
		movers, merr := json.Marshal(snap.TopMovers)
		if merr != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to encode top movers", merr)
		}

		insert = insert.Values(uuid.New().String(), snap.SectorName, snap.Market,
			snap.StockCount, snap.Top3AvgChangeRate, snap.SectorVolumeRatio,
			snap.IsLeading, snap.LeaderTicker, snap.LeaderName, snap.LeaderChangeRate,
			string(movers), analyzedAt)
	}

	if _, err := insert.RunWith(s.db).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert sector snapshots", err)
	}

	return nil
}

// LeadingSectors returns sectors flagged as leading since the cutoff, hottest
// first.
func (s *Store) LeadingSectors(since time.Time) ([]types.SectorSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := s.sq.
		Select("sector_name", "market", "stock_count", "top3_avg_change_rate",
			"sector_volume_ratio", "is_leading", "leader_ticker", "leader_name",
			"leader_change_rate", "top_movers").
		From("sector_analysis").
		Where(squirrel.Eq{"is_leading": true}).
		Where(squirrel.GtOrEq{"analyzed_at": since}).
		OrderBy("top3_avg_change_rate DESC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query leading sectors", err)
	}
	defer rows.Close()

	var out []types.SectorSnapshot

	for rows.Next() {
		var (
			snap   types.SectorSnapshot
			movers string
		)

		if err := rows.Scan(&snap.SectorName, &snap.Market, &snap.StockCount,
			&snap.Top3AvgChangeRate, &snap.SectorVolumeRatio, &snap.IsLeading,
			&snap.LeaderTicker, &snap.LeaderName, &snap.LeaderChangeRate, &movers); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan sector row", err)
		}

		if movers != "" {
			if err := json.Unmarshal([]byte(movers), &snap.TopMovers); err != nil {
				return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode top movers", err)
			}
		}

		out = append(out, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "sector row iteration failed", err)
	}

	return out, nil
}

// SaveSupplySnapshot persists one market supply reading.
func (s *Store) SaveSupplySnapshot(snap types.SupplySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}

	_, err := s.sq.
		Insert("supply_snapshots").
		Columns("id", "market", "index_value", "index_change_rate",
			"foreign_net_buy", "institution_net_buy", "individual_net_buy",
			"foreign_trend", "institution_trend", "snapshot_time").
		Values(uuid.New().String(), snap.Market, snap.IndexValue, snap.IndexChangeRate,
			snap.ForeignNetBuy, snap.InstitutionNetBuy, snap.IndividualNetBuy,
			string(snap.ForeignTrend), string(snap.InstitutionTrend), snap.Time).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert supply snapshot", err)
	}

	return nil
}

// LatestSupplySnapshot returns the most recent supply reading for a market.
func (s *Store) LatestSupplySnapshot(market string) (types.SupplySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return types.SupplySnapshot{}, err
	}

	var (
		snap             types.SupplySnapshot
		foreignTrend     string
		institutionTrend string
	)

	err := s.sq.
		Select("market", "index_value", "index_change_rate",
			"foreign_net_buy", "institution_net_buy", "individual_net_buy",
			"foreign_trend", "institution_trend", "snapshot_time").
		From("supply_snapshots").
		Where(squirrel.Eq{"market": market}).
		OrderBy("snapshot_time DESC").
		Limit(1).
		RunWith(s.db).
		QueryRow().
		Scan(&snap.Market, &snap.IndexValue, &snap.IndexChangeRate,
			&snap.ForeignNetBuy, &snap.InstitutionNetBuy, &snap.IndividualNetBuy,
			&foreignTrend, &institutionTrend, &snap.Time)
	if err == sql.ErrNoRows {
		return types.SupplySnapshot{}, errors.Newf(errors.ErrCodeDataNotFound, "no supply snapshot for %s", market)
	}

	if err != nil {
		return types.SupplySnapshot{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query supply snapshot", err)
	}

	snap.ForeignTrend = types.TrendDirection(foreignTrend)
	snap.InstitutionTrend = types.TrendDirection(institutionTrend)

	return snap, nil
}

// AuditRecord is one row of the order audit trail. Every gate decision that
// reaches the broker gets one, including rejected submissions.
type AuditRecord struct {
	OrderID    string
	Ticker     string
	Side       types.OrderSide
	Quantity   int64
	Price      decimal.Decimal
	Status     types.OrderStatus
	Broker     string
	Reason     string
	StrategyID string
	RecordedAt time.Time
}

// SaveAudit appends one order audit row.
func (s *Store) SaveAudit(rec AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}

	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	_, err := s.sq.
		Insert("order_audit").
		Columns("id", "order_id", "ticker", "side", "quantity", "price",
			"status", "broker", "reason", "strategy_id", "recorded_at").
		Values(uuid.New().String(), rec.OrderID, rec.Ticker, string(rec.Side), rec.Quantity,
			rec.Price.String(), string(rec.Status), rec.Broker, rec.Reason, rec.StrategyID, rec.RecordedAt).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert audit row", err)
	}

	return nil
}

// AuditTrail returns audit rows recorded since cutoff, newest first.
func (s *Store) AuditTrail(cutoff time.Time) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := s.sq.
		Select("order_id", "ticker", "side", "quantity", "price",
			"status", "broker", "reason", "strategy_id", "recorded_at").
		From("order_audit").
		Where(squirrel.GtOrEq{"recorded_at": cutoff}).
		OrderBy("recorded_at DESC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query audit trail", err)
	}
	defer rows.Close()

	var out []AuditRecord

	for rows.Next() {
		var (
			rec           AuditRecord
			side          string
			status, price string
		)

		if err := rows.Scan(&rec.OrderID, &rec.Ticker, &side, &rec.Quantity, &price,
			&status, &rec.Broker, &rec.Reason, &rec.StrategyID, &rec.RecordedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan audit row", err)
		}

		rec.Side = types.OrderSide(side)
		rec.Status = types.OrderStatus(status)

		if parsed, perr := decimal.NewFromString(price); perr == nil {
			rec.Price = parsed
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "audit row iteration failed", err)
	}

	return out, nil
}

// DailyOrderStats sums the day's audited buy submissions so the safety
// counters can be rebuilt after a restart.
func (s *Store) DailyOrderStats(dayStart time.Time) (int, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return 0, decimal.Zero, err
	}

	rows, err := s.sq.
		Select("quantity", "price").
		From("order_audit").
		Where(squirrel.GtOrEq{"recorded_at": dayStart}).
		Where(squirrel.Eq{"side": string(types.OrderSideBuy)}).
		Where(squirrel.Eq{"status": []string{
			string(types.OrderStatusSubmitted),
			string(types.OrderStatusFilled),
		}}).
		RunWith(s.db).
		Query()
	if err != nil {
		return 0, decimal.Zero, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query daily stats", err)
	}
	defer rows.Close()

	count := 0
	amount := decimal.Zero

	for rows.Next() {
		var (
			qty   int64
			price string
		)

		if err := rows.Scan(&qty, &price); err != nil {
			return 0, decimal.Zero, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan daily stats row", err)
		}

		p, perr := decimal.NewFromString(price)
		if perr != nil {
			continue
		}

		count++
		amount = amount.Add(p.Mul(decimal.NewFromInt(qty)))
	}

	if err := rows.Err(); err != nil {
		return 0, decimal.Zero, errors.Wrap(errors.ErrCodeQueryFailed, "daily stats iteration failed", err)
	}

	return count, amount, nil
}
