// riverflow is a single-account automated equity-trading assistant: it
// ingests the realtime feed, scans the market against user conditions, and
// routes orders through a safety gate to a brokerage adapter.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/riverjin839/riverflow/internal/broker"
	"github.com/riverjin839/riverflow/internal/config"
	"github.com/riverjin839/riverflow/internal/gate"
	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/notify"
	"github.com/riverjin839/riverflow/internal/scanner"
	"github.com/riverjin839/riverflow/internal/scheduler"
	"github.com/riverjin839/riverflow/internal/store"
	"github.com/riverjin839/riverflow/internal/stream"
	"github.com/riverjin839/riverflow/internal/types"
)

// app bundles the wired components shared by every subcommand.
type app struct {
	cfg      config.AppConfig
	log      *logger.Logger
	store    *store.Store
	broker   broker.Broker
	notifier notify.Notifier
	gate     *gate.Gate
	scanner  *scanner.Scanner
}

func newApp(ctx context.Context, configPath string, debug bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(debug)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StorePath, log)
	if err != nil {
		return nil, err
	}

	b, err := broker.New(cfg.Broker, cfg.BrokerConfig(), log)
	if err != nil {
		st.Close()

		return nil, err
	}

	if err := b.Connect(ctx); err != nil {
		st.Close()

		return nil, err
	}

	notifier := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)

	g, err := gate.NewGate(b, st, notifier, log, cfg.Safety, cfg.Timezone)
	if err != nil {
		st.Close()

		return nil, err
	}

	// Rebuild the day's counters from the audit trail so a restart cannot
	// widen the daily envelope.
	year, month, day := time.Now().Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, time.Local)

	if count, amount, err := st.DailyOrderStats(dayStart); err == nil {
		g.RestoreDailyCounters(count, amount)
	} else {
		log.Warn("failed to restore daily counters", zap.Error(err))
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		broker:   b,
		notifier: notifier,
		gate:     g,
		scanner:  scanner.NewScanner(b, st, log),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", zap.Error(err))
	}
}

func (a *app) ingestor() *stream.Ingestor {
	return stream.NewIngestor(a.broker, a.store, a.log, stream.Options{
		FlushInterval:  a.cfg.Stream.FlushInterval.Std(),
		SupplyInterval: a.cfg.Stream.SupplyInterval.Std(),
		ReconnectDelay: a.cfg.Stream.ReconnectDelay.Std(),
		Markets:        a.cfg.Markets,
	})
}

func (a *app) scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	conditions := func() []types.ScanCondition { return a.cfg.Conditions }

	return scheduler.NewScheduler(ctx, a.scanner, a.gate, a.notifier, a.log,
		a.cfg.Timezone, a.cfg.Markets, conditions)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func withApp(run func(ctx context.Context, a *app, cmd *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := newApp(ctx, cmd.String("config"), cmd.Bool("debug"))
		if err != nil {
			return err
		}
		defer a.close()

		return run(ctx, a, cmd)
	}
}

func feedAction(ctx context.Context, a *app, cmd *cli.Command) error {
	watchList := cmd.StringSlice("ticker")
	if len(watchList) == 0 {
		watchList = a.cfg.Stream.WatchList
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.ingestor().Run(ctx, watchList)
}

func scanAction(ctx context.Context, a *app, cmd *cli.Command) error {
	name := cmd.String("condition")

	ran := 0

	for _, cond := range a.cfg.Conditions {
		if name != "" && cond.Name != name {
			continue
		}

		if name == "" && !cond.IsActive {
			continue
		}

		matches, err := a.scanner.Scan(ctx, cond)
		if err != nil {
			return err
		}

		ran++

		if _, err := a.scanner.SaveResults(ctx, matches); err != nil {
			return err
		}

		if err := printJSON(map[string]any{
			"condition": cond.Name,
			"matches":   matches,
		}); err != nil {
			return err
		}
	}

	if ran == 0 {
		return fmt.Errorf("no matching active condition to scan")
	}

	return nil
}

func sectorsAction(ctx context.Context, a *app, cmd *cli.Command) error {
	snapshots, err := a.scanner.AnalyzeSectors(ctx, a.cfg.Markets)
	if err != nil {
		return err
	}

	return printJSON(snapshots)
}

func overheatAction(ctx context.Context, a *app, cmd *cli.Command) error {
	flagged, err := a.scanner.CheckOverheat(ctx, a.cfg.Markets)
	if err != nil {
		return err
	}

	return printJSON(flagged)
}

func sweepAction(ctx context.Context, a *app, cmd *cli.Command) error {
	results, err := a.gate.CheckStopLoss(ctx)
	if err != nil {
		return err
	}

	return printJSON(results)
}

func runAction(ctx context.Context, a *app, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched, err := a.scheduler(ctx)
	if err != nil {
		return err
	}

	if err := sched.Register(a.cfg.Schedules); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	a.notifier.Send(ctx, "trading assistant started")

	err = a.ingestor().Run(ctx, a.cfg.Stream.WatchList)
	if err != nil && ctx.Err() == nil {
		return err
	}

	a.log.Info("shutting down")

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "riverflow",
		Usage: "Automated equity-trading assistant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "config.yaml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug-level logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "feed",
				Usage: "Run the realtime feed ingestor",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "ticker",
						Aliases: []string{"t"},
						Usage:   "Ticker to subscribe (repeatable, defaults to the configured watch list)",
					},
				},
				Action: withApp(feedAction),
			},
			{
				Name:  "scan",
				Usage: "Run one scan pass over the configured conditions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "condition",
						Usage: "Run only the named condition (active or not)",
					},
				},
				Action: withApp(scanAction),
			},
			{
				Name:   "sectors",
				Usage:  "Analyze sector leadership across the configured markets",
				Action: withApp(sectorsAction),
			},
			{
				Name:   "overheat",
				Usage:  "Flag overheated instruments across the configured markets",
				Action: withApp(overheatAction),
			},
			{
				Name:   "sweep",
				Usage:  "Run one stop-loss/take-profit sweep over open positions",
				Action: withApp(sweepAction),
			},
			{
				Name:   "run",
				Usage:  "Run the full assistant: feed, schedules, and trading gate",
				Action: withApp(runAction),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
