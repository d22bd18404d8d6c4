package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/patrickwarner/adsynth/internal/models"
)

// Service defines the interface for the analytics warehouse mirror.
// Implementations should handle cases where underlying storage is unavailable
// by returning ErrUnavailable.
type Service interface {
	// RecordHourlyBatch mirrors a batch of generated hourly rows.
	RecordHourlyBatch(ctx context.Context, rows []models.RawHourlyMetrics) error
	// CampaignTotals aggregates the mirrored rows for one campaign.
	CampaignTotals(ctx context.Context, campaignID int) (*CampaignTotals, error)
	// RecentRows returns the newest mirrored rows for a campaign.
	RecentRows(ctx context.Context, campaignID, limit int) ([]HourlyRecord, error)
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB *sql.DB
}

// HourlyRecord mirrors a row in the campaign_performance_hourly table.
type HourlyRecord struct {
	CampaignID          int32     `json:"campaign_id"`
	HourTS              time.Time `json:"hour_ts"`
	Requests            int64     `json:"requests"`
	Impressions         int64     `json:"impressions"`
	ViewableImpressions int64     `json:"viewable_impressions"`
	VideoStarts         int64     `json:"video_starts"`
	VideoQ100           int64     `json:"video_q100"`
	Clicks              int64     `json:"clicks"`
	Reach               int64     `json:"reach"`
	SpendCents          int64     `json:"spend_cents"`
	EffectiveCPMCents   int64     `json:"effective_cpm_cents"`
	ErrorCount          int64     `json:"error_count"`
}

// CampaignTotals aggregates the mirrored hourly rows for one campaign.
type CampaignTotals struct {
	CampaignID  int     `json:"campaign_id"`
	Hours       int64   `json:"hours"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	VideoStarts int64   `json:"video_starts"`
	Completions int64   `json:"completions"`
	SpendCents  int64   `json:"spend_cents"`
	CTR         float64 `json:"ctr"`
}

// InitClickHouse connects to ClickHouse and ensures the mirror table exists.
// The ReplacingMergeTree engine deduplicates rows that share a
// (campaign_id, hour_ts) key, so regeneration never leaves stale duplicates.
func InitClickHouse(dsn string) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS campaign_performance_hourly (
       campaign_id             Int32,
       hour_ts                 DateTime,
       requests                Int64,
       responses               Int64,
       eligible_impressions    Int64,
       auctions_won            Int64,
       impressions             Int64,
       viewable_impressions    Int64,
       audible_impressions     Int64,
       video_starts            Int64,
       video_q25               Int64,
       video_q50               Int64,
       video_q75               Int64,
       video_q100              Int64,
       skips                   Int64,
       avg_watch_time_seconds  Float64,
       clicks                  Int64,
       qr_scans                Int64,
       interactive_engagements Int64,
       reach                   Int64,
       frequency               Int64,
       spend_cents             Int64,
       effective_cpm_cents     Int64,
       error_count             Int64,
       timeout_count           Int64
   ) ENGINE=ReplacingMergeTree() ORDER BY (campaign_id, hour_ts)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db}, nil
}

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

// RecordHourlyBatch inserts generated rows into the mirror table in a single
// prepared batch.
func (a *Analytics) RecordHourlyBatch(ctx context.Context, rows []models.RawHourlyMetrics) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO campaign_performance_hourly (
       campaign_id, hour_ts, requests, responses, eligible_impressions, auctions_won,
       impressions, viewable_impressions, audible_impressions, video_starts,
       video_q25, video_q50, video_q75, video_q100, skips, avg_watch_time_seconds,
       clicks, qr_scans, interactive_engagements, reach, frequency,
       spend_cents, effective_cpm_cents, error_count, timeout_count
   ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			int32(r.CampaignID), r.HourTS, r.Requests, r.Responses, r.EligibleImpressions, r.AuctionsWon,
			r.Impressions, r.ViewableImpressions, r.AudibleImpressions, r.VideoStarts,
			r.VideoQ25, r.VideoQ50, r.VideoQ75, r.VideoQ100, r.Skips, r.AvgWatchTimeSeconds,
			r.Clicks, r.QRScans, r.InteractiveEngagements, r.Reach, r.Frequency,
			r.SpendCents, r.EffectiveCPMCents, r.ErrorCount, r.TimeoutCount,
		); err != nil {
			_ = tx.Rollback()
			zap.L().Error("clickhouse batch append failed", zap.Error(err),
				zap.Int("campaign_id", r.CampaignID), zap.Time("hour_ts", r.HourTS))
			return fmt.Errorf("append hourly row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// CampaignTotals aggregates the mirrored hourly rows for one campaign.
// FINAL collapses any rows superseded by a later regeneration.
func (a *Analytics) CampaignTotals(ctx context.Context, campaignID int) (*CampaignTotals, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	query := `SELECT
       count() AS hours,
       sum(impressions) AS impressions,
       sum(clicks) AS clicks,
       sum(video_starts) AS video_starts,
       sum(video_q100) AS completions,
       sum(spend_cents) AS spend_cents
   FROM campaign_performance_hourly FINAL
   WHERE campaign_id = ?`

	t := &CampaignTotals{CampaignID: campaignID}
	row := a.DB.QueryRowContext(ctx, query, int32(campaignID))
	if err := row.Scan(&t.Hours, &t.Impressions, &t.Clicks, &t.VideoStarts, &t.Completions, &t.SpendCents); err != nil {
		return nil, fmt.Errorf("scan campaign totals: %w", err)
	}
	if t.Impressions > 0 {
		t.CTR = float64(t.Clicks) / float64(t.Impressions)
	}
	return t, nil
}

// RecentRows returns the newest mirrored rows for a campaign ordered by hour descending.
func (a *Analytics) RecentRows(ctx context.Context, campaignID, limit int) ([]HourlyRecord, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 24
	}
	query := `SELECT campaign_id, hour_ts, requests, impressions, viewable_impressions,
       video_starts, video_q100, clicks, reach, spend_cents, effective_cpm_cents, error_count
   FROM campaign_performance_hourly FINAL
   WHERE campaign_id = ?
   ORDER BY hour_ts DESC
   LIMIT ?`
	rows, err := a.DB.QueryContext(ctx, query, int32(campaignID), limit)
	if err != nil {
		return nil, fmt.Errorf("query hourly rows: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var records []HourlyRecord
	for rows.Next() {
		var rec HourlyRecord
		if err := rows.Scan(&rec.CampaignID, &rec.HourTS, &rec.Requests, &rec.Impressions, &rec.ViewableImpressions,
			&rec.VideoStarts, &rec.VideoQ100, &rec.Clicks, &rec.Reach, &rec.SpendCents, &rec.EffectiveCPMCents, &rec.ErrorCount); err != nil {
			return nil, fmt.Errorf("scan hourly row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

// Close terminates the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
