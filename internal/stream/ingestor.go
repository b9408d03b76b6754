// Package stream ingests the realtime market-data feed: it dials the broker's
// streaming endpoint, subscribes the watch list, decodes tick frames into an
// in-memory cache, and periodically flushes latest prices and market supply
// snapshots into the store.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/riverjin839/riverflow/internal/broker"
	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

const (
	subscribeTrID    = "H0STCNT0"
	defaultFlush     = 10 * time.Second
	defaultSupply    = 60 * time.Second
	defaultReconnect = 5 * time.Second
)

// SnapshotStore is the slice of the store the ingestor writes through.
type SnapshotStore interface {
	UpdateCandidatePrices(prices map[string]int64) (int, error)
	SaveSupplySnapshot(snap types.SupplySnapshot) error
}

// Options tune the ingestor's periodic work. Zero values take defaults.
type Options struct {
	FlushInterval  time.Duration
	SupplyInterval time.Duration
	ReconnectDelay time.Duration
	// Markets are the index markets tracked by the supply task.
	Markets []string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.FlushInterval <= 0 {
		out.FlushInterval = defaultFlush
	}

	if out.SupplyInterval <= 0 {
		out.SupplyInterval = defaultSupply
	}

	if out.ReconnectDelay <= 0 {
		out.ReconnectDelay = defaultReconnect
	}

	if len(out.Markets) == 0 {
		out.Markets = []string{"KOSPI", "KOSDAQ"}
	}

	return out
}

// Ingestor owns the feed connection and the tick/supply caches.
type Ingestor struct {
	broker broker.Broker
	store  SnapshotStore
	log    *logger.Logger
	opts   Options

	mu     sync.Mutex
	buffer []types.Tick
	cache  map[string]types.PriceEntry

	supplyMu sync.Mutex
	foreign  map[string]*supplyWindow
	inst     map[string]*supplyWindow
}

// NewIngestor creates the ingestor.
func NewIngestor(b broker.Broker, store SnapshotStore, log *logger.Logger, opts Options) *Ingestor {
	return &Ingestor{
		broker:  b,
		store:   store,
		log:     log,
		opts:    opts.withDefaults(),
		cache:   make(map[string]types.PriceEntry),
		foreign: make(map[string]*supplyWindow),
		inst:    make(map[string]*supplyWindow),
	}
}

// Run connects, subscribes the watch list, and pumps the feed until ctx is
// cancelled. Connection loss waits a fixed delay and reconnects, starting a
// fresh subscribe cycle each time.
func (in *Ingestor) Run(ctx context.Context, watchList []string) error {
	go in.flushLoop(ctx)
	go in.supplyLoop(ctx)

	policy := backoff.WithContext(backoff.NewConstantBackOff(in.opts.ReconnectDelay), ctx)

	operation := func() error {
		if err := in.runSession(ctx, watchList); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}

			in.log.Warn("feed session ended, reconnecting",
				zap.Error(err),
				zap.Duration("delay", in.opts.ReconnectDelay))

			return err
		}

		return backoff.Permanent(nil)
	}

	err := backoff.Retry(operation, policy)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}

// runSession performs one connect + subscribe + receive cycle.
func (in *Ingestor) runSession(ctx context.Context, watchList []string) error {
	defer in.flush(ctx)

	auth, err := in.broker.StreamAuth(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConnectionFailed, "stream approval failed", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, auth.URL, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConnectionFailed, "feed dial failed", err)
	}
	defer conn.Close()

	for _, ticker := range watchList {
		if err := in.subscribe(conn, auth.ApprovalKey, ticker); err != nil {
			return err
		}
	}

	in.log.Info("feed connected",
		zap.Int("subscriptions", len(watchList)))

	// Unblock ReadMessage on cancel.
	sessionDone := make(chan struct{})
	defer close(sessionDone)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-sessionDone:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return errors.Wrap(errors.ErrCodeConnectionFailed, "feed read failed", err)
		}

		tick, err := parseTick(raw, time.Now())
		if err != nil {
			in.log.Debug("dropping feed frame", zap.Error(err))

			continue
		}

		in.processTick(tick)
	}
}

type subscribeEnvelope struct {
	Header subscribeHeader `json:"header"`
	Body   subscribeBody   `json:"body"`
}

type subscribeHeader struct {
	ApprovalKey string `json:"approval_key"`
	CustType    string `json:"custtype"`
	TrType      string `json:"tr_type"`
	ContentType string `json:"content-type"`
}

type subscribeBody struct {
	Input subscribeInput `json:"input"`
}

type subscribeInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

func (in *Ingestor) subscribe(conn *websocket.Conn, approvalKey, ticker string) error {
	envelope := subscribeEnvelope{
		Header: subscribeHeader{
			ApprovalKey: approvalKey,
			CustType:    "P",
			TrType:      "1",
			ContentType: "utf-8",
		},
		Body: subscribeBody{
			Input: subscribeInput{
				TrID:  subscribeTrID,
				TrKey: ticker,
			},
		},
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSubscribeFailed, "failed to encode subscribe envelope", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrapf(errors.ErrCodeSubscribeFailed, err, "subscribe failed for %s", ticker)
	}

	return nil
}

// processTick applies a decoded tick: last write wins in the cache, every
// tick lands in the buffer.
func (in *Ingestor) processTick(tick types.Tick) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.buffer = append(in.buffer, tick)
	in.cache[tick.Ticker] = types.PriceEntry{
		Price:      tick.Price,
		Volume:     tick.Volume,
		ChangeRate: tick.ChangeRate,
		UpdatedAt:  tick.ReceivedAt,
	}
}

// LatestPrice returns the cached entry for a ticker.
func (in *Ingestor) LatestPrice(ticker string) (types.PriceEntry, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	entry, ok := in.cache[ticker]

	return entry, ok
}

func (in *Ingestor) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(in.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			in.flush(ctx)
		}
	}
}

// flush swaps the buffer out under the lock, collapses it to the last tick
// per ticker, and patches stored candidate prices.
func (in *Ingestor) flush(ctx context.Context) {
	in.mu.Lock()
	buffered := in.buffer
	in.buffer = nil
	in.mu.Unlock()

	if len(buffered) == 0 {
		return
	}

	prices := make(map[string]int64, len(buffered))
	for _, tick := range buffered {
		prices[tick.Ticker] = tick.Price
	}

	touched, err := in.store.UpdateCandidatePrices(prices)
	if err != nil {
		in.log.Warn("price flush failed", zap.Error(err))

		return
	}

	in.log.Debug("flushed tick buffer",
		zap.Int("ticks", len(buffered)),
		zap.Int("rows", touched))
}

func (in *Ingestor) supplyLoop(ctx context.Context) {
	ticker := time.NewTicker(in.opts.SupplyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			in.captureSupply(ctx)
		}
	}
}

// captureSupply snapshots index level and investor net-buys per tracked
// market. A failing market logs and does not block the others.
func (in *Ingestor) captureSupply(ctx context.Context) {
	for _, market := range in.opts.Markets {
		snap, err := in.snapshotMarket(ctx, market)
		if err != nil {
			in.log.Warn("supply snapshot failed",
				zap.String("market", market),
				zap.Error(err))

			continue
		}

		if err := in.store.SaveSupplySnapshot(snap); err != nil {
			in.log.Warn("supply snapshot persist failed",
				zap.String("market", market),
				zap.Error(err))
		}
	}
}

func (in *Ingestor) snapshotMarket(ctx context.Context, market string) (types.SupplySnapshot, error) {
	value, changeRate, err := in.broker.GetMarketIndex(ctx, market)
	if err != nil {
		return types.SupplySnapshot{}, err
	}

	foreign, institution, individual, err := in.broker.GetInvestorFlows(ctx, market)
	if err != nil {
		return types.SupplySnapshot{}, err
	}

	in.supplyMu.Lock()
	defer in.supplyMu.Unlock()

	fw, ok := in.foreign[market]
	if !ok {
		fw = &supplyWindow{}
		in.foreign[market] = fw
	}

	iw, ok := in.inst[market]
	if !ok {
		iw = &supplyWindow{}
		in.inst[market] = iw
	}

	fw.Push(foreign)
	iw.Push(institution)

	return types.SupplySnapshot{
		Time:              time.Now(),
		Market:            market,
		IndexValue:        value,
		IndexChangeRate:   changeRate,
		ForeignNetBuy:     foreign,
		InstitutionNetBuy: institution,
		IndividualNetBuy:  individual,
		ForeignTrend:      classifyTrend(fw.Values()),
		InstitutionTrend:  classifyTrend(iw.Values()),
	}, nil
}
