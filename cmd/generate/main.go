// Generate rebuilds the synthetic hourly performance rows for one campaign.
//
// Usage:
//
//	go run ./cmd/generate -campaign-id=123 -seed=42
//
// The run resolves the campaign's flight window, regenerates one row per UTC
// hour from the seeded stream, and replaces the campaign's prior rows. A JSON
// object {campaign_id, seed, rows} is printed on stdout; all logs go to
// stderr so the output stays machine-readable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickwarner/adsynth/internal/analytics"
	"github.com/patrickwarner/adsynth/internal/config"
	"github.com/patrickwarner/adsynth/internal/db"
	"github.com/patrickwarner/adsynth/internal/observability"
	"github.com/patrickwarner/adsynth/internal/perfgen"

	"go.uber.org/zap"
)

// result is the JSON object printed on stdout after a successful run.
type result struct {
	CampaignID int   `json:"campaign_id"`
	Seed       int64 `json:"seed"`
	Rows       int   `json:"rows"`
}

func main() {
	var (
		campaignID = flag.Int("campaign-id", 0, "Campaign ID to generate performance for")
		seed       = flag.Int64("seed", 0, "rng seed; 0 falls back to DEFAULT_SEED, then the current time")
		replace    = flag.Bool("replace", true, "delete the campaign's prior rows before inserting")
	)
	flag.Parse()

	if *campaignID == 0 {
		fmt.Fprintf(os.Stderr, "Error: campaign-id is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Load()

	runSeed := *seed
	if runSeed == 0 {
		runSeed = cfg.DefaultSeed
	}
	if runSeed == 0 {
		runSeed = time.Now().UnixNano()
	}

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg, *campaignID, runSeed, *replace); err != nil {
		logger.Error("generate error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config, campaignID int, seed int64, replace bool) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			logger.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer shutdown()
		}
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	// Redis only serializes concurrent runs; a one-shot invocation can
	// proceed without it.
	locks, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, running without the generation lock", zap.Error(err))
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

	engine := perfgen.NewEngine(pg, mirror, locks, observability.NewNoOpRegistry(), logger)
	engine.LockTTL = cfg.GenerationLockTTL

	rows, err := engine.Regenerate(ctx, campaignID, seed, replace)
	if err != nil {
		return fmt.Errorf("regenerate campaign %d: %w", campaignID, err)
	}

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(result{CampaignID: campaignID, Seed: seed, Rows: rows}); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	return nil
}
