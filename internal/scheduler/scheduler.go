// Package scheduler drives the periodic trading work: condition scans,
// stop-loss sweeps, sector and overheat analytics, and the daily counter
// reset, all on market-local cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/riverjin839/riverflow/internal/gate"
	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/notify"
	"github.com/riverjin839/riverflow/internal/scanner"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

// Default schedules, standard five-field cron specs in market-local time.
const (
	DefaultScanSpec     = "*/5 9-15 * * 1-5"
	DefaultSweepSpec    = "* 9-15 * * 1-5"
	DefaultAnalysisSpec = "0,30 9-15 * * 1-5"
	DefaultResetSpec    = "5 0 * * 1-5"
)

// Specs carries the cron expressions for each job. Empty fields take the
// defaults above.
type Specs struct {
	Scan     string `yaml:"scan"`
	Sweep    string `yaml:"sweep"`
	Analysis string `yaml:"analysis"`
	Reset    string `yaml:"reset"`
}

func (s Specs) withDefaults() Specs {
	if s.Scan == "" {
		s.Scan = DefaultScanSpec
	}

	if s.Sweep == "" {
		s.Sweep = DefaultSweepSpec
	}

	if s.Analysis == "" {
		s.Analysis = DefaultAnalysisSpec
	}

	if s.Reset == "" {
		s.Reset = DefaultResetSpec
	}

	return s
}

// Scheduler owns the cron runner and the job wiring.
type Scheduler struct {
	cron       *cron.Cron
	scanner    *scanner.Scanner
	gate       *gate.Gate
	notifier   notify.Notifier
	log        *logger.Logger
	conditions func() []types.ScanCondition
	markets    []string
	baseCtx    context.Context
}

// NewScheduler creates the scheduler in the given market timezone. conditions
// is called at scan time so condition edits take effect without a restart.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, g *gate.Gate, notifier notify.Notifier, log *logger.Logger, tz string, markets []string, conditions func() []types.ScanCondition) (*Scheduler, error) {
	if tz == "" {
		tz = "Asia/Seoul"
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", tz)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		scanner:    sc,
		gate:       g,
		notifier:   notifier,
		log:        log,
		conditions: conditions,
		markets:    markets,
		baseCtx:    ctx,
	}, nil
}

// Register adds every job to the cron runner.
func (s *Scheduler) Register(specs Specs) error {
	specs = specs.withDefaults()

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"scan", specs.Scan, s.runScans},
		{"stop-loss sweep", specs.Sweep, s.runSweep},
		{"market analysis", specs.Analysis, s.runAnalysis},
		{"daily reset", specs.Reset, s.runReset},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run)); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid cron spec for %s: %q", job.name, job.spec)
		}
	}

	return nil
}

// Start launches the cron runner.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop halts the runner and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Entries exposes the scheduled entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// wrap guards a job against panics so one bad run cannot kill the runner.
func (s *Scheduler) wrap(name string, run func(context.Context)) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scheduled job panicked",
					zap.String("job", name),
					zap.Any("panic", r))
				s.notifier.Alert(s.baseCtx, fmt.Sprintf("job %s panicked: %v", name, r))
			}
		}()

		run(s.baseCtx)
	}
}

// runScans evaluates every active condition, persists matches, and buys the
// top match of auto-trade conditions.
func (s *Scheduler) runScans(ctx context.Context) {
	for _, cond := range s.conditions() {
		if !cond.IsActive {
			continue
		}

		matches, err := s.scanner.Scan(ctx, cond)
		if err != nil {
			s.log.Warn("scheduled scan failed",
				zap.String("condition", cond.Name),
				zap.Error(err))

			continue
		}

		if len(matches) == 0 {
			continue
		}

		if _, err := s.scanner.SaveResults(ctx, matches); err != nil {
			s.log.Warn("scan result persist failed",
				zap.String("condition", cond.Name),
				zap.Error(err))
		}

		if cond.AutoTrade.IsNone() {
			continue
		}

		top := matches[0]

		// The condition's own envelope governs its buys; daily counters
		// stay shared through the gate.
		result, err := s.gate.ExecuteBuyWith(ctx, top.Ticker, "condition: "+cond.Name, cond.AutoTrade.Unwrap())
		if err != nil {
			if errors.IsSafetyViolation(err) {
				s.log.Info("auto buy refused",
					zap.String("condition", cond.Name),
					zap.String("ticker", top.Ticker),
					zap.Error(err))
			} else {
				s.log.Warn("auto buy failed",
					zap.String("condition", cond.Name),
					zap.String("ticker", top.Ticker),
					zap.Error(err))
			}

			continue
		}

		s.log.Info("auto buy submitted",
			zap.String("condition", cond.Name),
			zap.String("ticker", top.Ticker),
			zap.String("status", string(result.Status)))
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	results, err := s.gate.CheckStopLoss(ctx)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeTradingDisabled) {
			s.log.Warn("stop-loss sweep failed", zap.Error(err))
		}

		return
	}

	if len(results) > 0 {
		s.log.Info("stop-loss sweep sold positions", zap.Int("orders", len(results)))
	}
}

func (s *Scheduler) runAnalysis(ctx context.Context) {
	if _, err := s.scanner.AnalyzeSectors(ctx, s.markets); err != nil {
		s.log.Warn("sector analysis failed", zap.Error(err))
	}

	flagged, err := s.scanner.CheckOverheat(ctx, s.markets)
	if err != nil {
		s.log.Warn("overheat check failed", zap.Error(err))

		return
	}

	if len(flagged) > 0 {
		s.log.Info("overheated instruments flagged", zap.Int("count", len(flagged)))
	}
}

func (s *Scheduler) runReset(ctx context.Context) {
	s.gate.ResetDailyCounters()
	s.notifier.Send(ctx, "daily order counters reset")
}
