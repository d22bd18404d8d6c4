package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/patrickwarner/adsynth/internal/analytics"
	"github.com/patrickwarner/adsynth/internal/config"
	"github.com/patrickwarner/adsynth/internal/db"
	"github.com/patrickwarner/adsynth/internal/observability"
	"github.com/patrickwarner/adsynth/internal/perfgen"
)

var (
	baseSeed    int64
	replace     bool
	conc        int
	stats       bool
	debug       bool
	label       string
	metricsAddr string
)

var logger *zap.Logger

const statsInterval = 5 * time.Second

var (
	countDone    uint64
	countRows    uint64
	countSkipped uint64
	countLocked  uint64
	countErrors  uint64
)

func main() {
	flag.Int64Var(&baseSeed, "seed", 0, "base rng seed, each campaign uses seed+campaign_id; 0 falls back to DEFAULT_SEED, then the current time")
	flag.BoolVar(&replace, "replace", true, "delete each campaign's prior rows before inserting")
	flag.IntVar(&conc, "concurrency", 4, "campaigns regenerated concurrently")
	flag.BoolVar(&stats, "stats", false, "print aggregated stats periodically")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running (empty to disable)")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "backfill")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	cfg := config.Load()

	if baseSeed == 0 {
		baseSeed = cfg.DefaultSeed
	}
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		logger.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	locks, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, runs will not be serialized", zap.Error(err))
		locks = nil
	} else {
		defer locks.Close()
	}

	var mirror analytics.Service
	ch, err := analytics.InitClickHouse(cfg.ClickHouseDSN)
	if err != nil {
		logger.Warn("clickhouse unavailable, skipping warehouse mirror", zap.Error(err))
	} else {
		defer ch.Close()
		mirror = ch
	}

	registry := observability.MetricsRegistry(observability.NewNoOpRegistry())
	if metricsAddr != "" {
		registry = observability.NewPrometheusRegistry()
		go func() {
			logger.Info("metrics listening", zap.String("addr", metricsAddr))
			if err := http.ListenAndServe(metricsAddr, promhttp.Handler()); err != nil {
				logger.Error("metrics listener", zap.Error(err))
			}
		}()
	}

	engine := perfgen.NewEngine(pg, mirror, locks, registry, logger)
	engine.LockTTL = cfg.GenerationLockTTL

	campaigns, err := pg.LoadCampaigns()
	if err != nil {
		logger.Fatal("load campaigns", zap.Error(err))
	}
	if len(campaigns) == 0 {
		logger.Warn("no campaigns to backfill")
		return
	}
	logger.Info("backfill starting",
		zap.String("run", label),
		zap.Int("campaigns", len(campaigns)),
		zap.Int64("base_seed", baseSeed),
		zap.Int("concurrency", conc))

	var wg sync.WaitGroup
	sem := make(chan struct{}, conc)
	done := make(chan struct{})

	if stats {
		go func() {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					printStats()
				case <-done:
					printStats()
					return
				}
			}
		}()
	}

	for _, camp := range campaigns {
		wg.Add(1)
		sem <- struct{}{}
		go func(id int, name string) {
			defer wg.Done()
			defer func() { <-sem }()

			// Per-campaign seed derived from the base so the whole backfill
			// is reproducible from one number.
			rows, err := engine.Regenerate(context.Background(), id, baseSeed+int64(id), replace)
			switch {
			case errors.Is(err, perfgen.ErrGenerationInProgress):
				atomic.AddUint64(&countLocked, 1)
				logger.Warn("campaign locked, skipping", zap.Int("campaign_id", id))
			case err != nil:
				atomic.AddUint64(&countErrors, 1)
				logger.Error("regenerate failed", zap.Int("campaign_id", id), zap.Error(err))
			case rows == 0:
				atomic.AddUint64(&countSkipped, 1)
				logger.Debug("nothing generated", zap.Int("campaign_id", id), zap.String("campaign", name))
			default:
				atomic.AddUint64(&countDone, 1)
				atomic.AddUint64(&countRows, uint64(rows))
				logger.Debug("campaign regenerated", zap.Int("campaign_id", id), zap.String("campaign", name), zap.Int("rows", rows))
			}
		}(camp.ID, camp.Name)
	}
	wg.Wait()
	close(done)
	if !stats {
		printStats()
	}
	observability.LogSamplingStats(logger)
}

func printStats() {
	regenerated := atomic.LoadUint64(&countDone)
	rows := atomic.LoadUint64(&countRows)
	skipped := atomic.LoadUint64(&countSkipped)
	locked := atomic.LoadUint64(&countLocked)
	errs := atomic.LoadUint64(&countErrors)
	logger.Info("stats",
		zap.String("run", label),
		zap.Uint64("regenerated", regenerated),
		zap.Uint64("rows", rows),
		zap.Uint64("skipped", skipped),
		zap.Uint64("locked", locked),
		zap.Uint64("errors", errs))
}
