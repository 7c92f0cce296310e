// Command zonedash runs the intraday dashboard backend: the engine HTTP
// surface, the aggregated strategy snapshot, the GO alert watcher and the
// replay recorder, locked to SPY.
//
// Usage:
//
//	zonedash --config config.yaml
//	zonedash (uses built-in defaults)
//
// Required environment variables:
//
//	POLYGON_API_KEY for market data
//	PUSHOVER_TOKEN, PUSHOVER_USER for GO alerts (watcher disabled without them)
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smzlabs/zonedash/config"
	"github.com/smzlabs/zonedash/internal/services/alerts"
	"github.com/smzlabs/zonedash/internal/services/dashboard"
	"github.com/smzlabs/zonedash/internal/services/engine/confluence"
	"github.com/smzlabs/zonedash/internal/services/engine/wave"
	"github.com/smzlabs/zonedash/internal/services/market"
	"github.com/smzlabs/zonedash/internal/services/replay"
	"github.com/smzlabs/zonedash/internal/services/zones"
	"github.com/smzlabs/zonedash/internal/storage/alerthistory"
	"github.com/smzlabs/zonedash/internal/web"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zoneStore := zones.NewStore(cfg.DataDir, logger)
	bars := market.NewAggregatesClient(cfg.AggregatorBaseURL, cfg.AggregatorAPIKey, cfg.AggregatorTimeout, logger)
	fibs := wave.NewCatalog(cfg.DataDir)
	engines := confluence.NewClient(cfg.EngineBaseURL, cfg.AggregatorTimeout)
	aggregator := dashboard.NewAggregator(cfg.Symbol, engines, zoneStore, bars, fibs, logger)
	recorder := replay.NewRecorder(cfg.ReplayRoot, logger)

	history, err := alerthistory.NewWALStore(cfg.AlertHistoryDir)
	if err != nil {
		log.Fatal(err)
	}
	defer history.Close()

	var watcher *alerts.Watcher
	if cfg.WatcherEnabled && cfg.PushoverToken != "" && cfg.PushoverUser != "" {
		pusher := alerts.NewPushoverClient(cfg.PushoverToken, cfg.PushoverUser, cfg.PushPriority, cfg.PushTimeout)
		ledger := alerts.NewLedgerStore(cfg.DataDir, logger)
		minInterval := time.Duration(cfg.MinIntervalSec) * time.Second
		watcher = alerts.NewWatcher(cfg.Symbol, minInterval, aggregator, ledger, pusher, history, recorder, logger)
	} else {
		logger.Warn("GO watcher disabled, pushover credentials missing or watcher turned off")
	}

	var stream *market.Stream
	if cfg.StreamEnabled && cfg.AggregatorAPIKey != "" {
		stream = market.NewStream(cfg.AggregatorWSURL, cfg.AggregatorAPIKey, cfg.Symbol, logger)
	}

	handlers := web.NewHandlers(cfg.Symbol, zoneStore, bars, fibs, aggregator, watcher, history, stream, logger)
	server := web.NewServer(cfg.ListenAddr, cfg.Symbol, handlers, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		return recorder.RunCleanup(gctx, cfg.ReplayKeepDays)
	})
	g.Go(func() error {
		return runCadence(gctx, aggregator, recorder, cfg.CadenceInterval, logger)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx, cfg.GoPollInterval)
		})
	}
	if stream != nil {
		g.Go(func() error {
			return stream.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Fatal("shutdown with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// runCadence records a full dashboard snapshot for replay on a fixed cadence.
func runCadence(ctx context.Context, aggregator *dashboard.Aggregator, recorder *replay.Recorder, interval time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap := aggregator.Snapshot(ctx, false)
			if err := recorder.RecordCadence(snap); err != nil {
				logger.Warn("cadence snapshot failed", zap.Error(err))
			}
		}
	}
}
