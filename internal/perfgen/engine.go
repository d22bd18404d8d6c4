package perfgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/adsynth/internal/analytics"
	"github.com/patrickwarner/adsynth/internal/db"
	"github.com/patrickwarner/adsynth/internal/models"
	"github.com/patrickwarner/adsynth/internal/observability"
)

var tracer = otel.Tracer("adsynth")

// ErrGenerationInProgress is returned when another run holds the
// per-campaign regeneration lock.
var ErrGenerationInProgress = errors.New("generation already in progress")

const defaultLockTTL = 2 * time.Minute

// Engine orchestrates hourly performance generation for campaigns.
type Engine struct {
	Store     models.PerformanceStore
	Analytics analytics.Service
	Locks     *db.RedisStore
	Metrics   observability.MetricsRegistry
	Logger    *zap.Logger
	LockTTL   time.Duration
}

// NewEngine creates a new generation engine. Analytics and Locks may be nil;
// the engine then skips warehouse mirroring and lock serialization.
func NewEngine(store models.PerformanceStore, analyticsSvc analytics.Service, locks *db.RedisStore, metrics observability.MetricsRegistry, logger *zap.Logger) *Engine {
	return &Engine{
		Store:     store,
		Analytics: analyticsSvc,
		Locks:     locks,
		Metrics:   metrics,
		Logger:    logger,
		LockTTL:   defaultLockTTL,
	}
}

// Regenerate rebuilds the hourly performance rows for one campaign. It
// resolves the campaign's flight window, generates one row per UTC hour from
// a stream seeded with seed, and replaces any prior rows for the campaign in
// a single atomic store operation. The returned count is the number of rows
// written. A missing campaign or flight is not an error: the run writes
// nothing and returns zero.
func (e *Engine) Regenerate(ctx context.Context, campaignID int, seed int64, replace bool) (int, error) {
	ctx, span := tracer.Start(ctx, "Regenerate",
		trace.WithAttributes(
			attribute.Int("campaign_id", campaignID),
			attribute.Int64("seed", seed),
			attribute.Bool("replace", replace),
		))
	defer span.End()

	start := time.Now()
	runID := uuid.New().String()
	logger := e.Logger.With(zap.String("run_id", runID), zap.Int("campaign_id", campaignID))

	if e.Locks != nil {
		ttl := e.LockTTL
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		ok, err := e.Locks.AcquireGenerationLock(campaignID, ttl)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lock acquire failed")
			e.Metrics.IncrementGenerationRuns("error")
			return 0, fmt.Errorf("acquire generation lock: %w", err)
		}
		if !ok {
			logger.Warn("generation already in progress")
			e.Metrics.IncrementGenerationRuns("locked")
			return 0, ErrGenerationInProgress
		}
		defer func() {
			if err := e.Locks.ReleaseGenerationLock(campaignID); err != nil {
				logger.Warn("release generation lock", zap.Error(err))
			}
		}()
	}

	campaign, flight, err := e.Store.GetCampaignFlight(ctx, campaignID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn("campaign or flight not found, nothing generated")
			e.Metrics.IncrementGenerationRuns("not_found")
			return 0, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "campaign lookup failed")
		e.Metrics.IncrementGenerationRuns("error")
		return 0, fmt.Errorf("resolve campaign %d: %w", campaignID, err)
	}

	windowStart, windowEnd := flight.HourlyWindow()
	hours := flight.Hours()
	if len(hours) == 0 {
		logger.Warn("flight window is empty, nothing generated",
			zap.Time("window_start", windowStart), zap.Time("window_end", windowEnd))
		e.Metrics.IncrementGenerationRuns("empty")
		return 0, nil
	}

	rng := rand.New(rand.NewSource(seed))
	sampleRate := observability.GetSamplingRate()
	raw := make([]models.RawHourlyMetrics, 0, len(hours))
	derived := make([]models.DerivedHourlyMetrics, 0, len(hours))
	var totalSpendCents int64
	for _, hour := range hours {
		f := Factor(windowStart, hour, windowEnd)
		row := GenerateHour(campaignID, hour, f, rng)
		raw = append(raw, row)
		derived = append(derived, Derive(row))
		totalSpendCents += row.SpendCents
		if observability.ShouldSample(sampleRate) {
			logger.Debug("generated hour",
				zap.Time("hour", hour),
				zap.Float64("factor", f),
				zap.Int64("impressions", row.Impressions),
				zap.Int64("clicks", row.Clicks),
			)
		}
	}

	written, err := e.Store.ReplaceHourlyPerformance(ctx, campaignID, raw, derived, replace)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace failed")
		e.Metrics.IncrementPersistErrors()
		e.Metrics.IncrementGenerationRuns("error")
		return 0, fmt.Errorf("replace hourly performance: %w", err)
	}

	// Mirror to the warehouse. Failure here is logged, not fatal: the
	// primary store already committed.
	if e.Analytics != nil {
		if err := e.Analytics.RecordHourlyBatch(ctx, raw); err != nil {
			logger.Warn("mirror hourly batch", zap.Error(err))
			e.Metrics.IncrementMirrorFailures()
		}
	}

	if e.Locks != nil {
		if _, err := e.Locks.IncrementRunCount(campaignID); err != nil {
			logger.Warn("increment run count", zap.Error(err))
		}
		if err := e.Locks.SetLastSeed(campaignID, seed); err != nil {
			logger.Warn("record last seed", zap.Error(err))
		}
	}

	e.Metrics.IncrementGenerationRuns("success")
	e.Metrics.AddRowsGenerated(written)
	e.Metrics.RecordGenerationDuration(time.Since(start))
	e.Metrics.SetSpendCentsTotal(strconv.Itoa(campaignID), float64(totalSpendCents))
	span.SetAttributes(attribute.Int("rows", written))

	logger.Info("hourly performance regenerated",
		zap.String("campaign", campaign.Name),
		zap.Int64("seed", seed),
		zap.Time("window_start", windowStart),
		zap.Time("window_end", windowEnd),
		zap.Int("rows", written),
		zap.Bool("replace", replace),
		zap.Duration("duration", time.Since(start)),
	)

	return written, nil
}
