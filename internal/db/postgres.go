package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/patrickwarner/adsynth/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist. The two
// performance tables share a (campaign_id, hour_ts) primary key so a
// campaign can never hold two rows for the same hour.
const schemaSQL = `CREATE TABLE IF NOT EXISTS advertisers (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    contact_email TEXT NOT NULL DEFAULT '',
    agency_name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS campaigns (
    id SERIAL PRIMARY KEY,
    advertiser_id INT REFERENCES advertisers(id),
    name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    objective TEXT NOT NULL DEFAULT '',
    target_cpm_cents BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flights (
    id SERIAL PRIMARY KEY,
    campaign_id INT NOT NULL REFERENCES campaigns(id),
    start_date TIMESTAMPTZ NOT NULL,
    end_date TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS campaign_performance (
    campaign_id INT NOT NULL,
    hour_ts TIMESTAMPTZ NOT NULL,
    requests BIGINT NOT NULL,
    responses BIGINT NOT NULL,
    eligible_impressions BIGINT NOT NULL,
    auctions_won BIGINT NOT NULL,
    impressions BIGINT NOT NULL,
    viewable_impressions BIGINT NOT NULL,
    audible_impressions BIGINT NOT NULL,
    video_starts BIGINT NOT NULL,
    video_q25 BIGINT NOT NULL,
    video_q50 BIGINT NOT NULL,
    video_q75 BIGINT NOT NULL,
    video_q100 BIGINT NOT NULL,
    skips BIGINT NOT NULL,
    avg_watch_time_seconds DOUBLE PRECISION NOT NULL,
    clicks BIGINT NOT NULL,
    qr_scans BIGINT NOT NULL,
    interactive_engagements BIGINT NOT NULL,
    reach BIGINT NOT NULL,
    frequency BIGINT NOT NULL,
    audience_mix JSONB,
    spend_cents BIGINT NOT NULL,
    effective_cpm_cents BIGINT NOT NULL,
    error_count BIGINT NOT NULL,
    timeout_count BIGINT NOT NULL,
    hour_of_day INT NOT NULL,
    day_of_week INT NOT NULL,
    is_business_hour BOOLEAN NOT NULL,
    human_readable TEXT NOT NULL,
    daily_day_date TIMESTAMPTZ NOT NULL,
    weekly_start_day_date TIMESTAMPTZ NOT NULL,
    monthly_start_day_date TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (campaign_id, hour_ts)
);

CREATE TABLE IF NOT EXISTS campaign_performance_rates (
    campaign_id INT NOT NULL,
    hour_ts TIMESTAMPTZ NOT NULL,
    ctr DOUBLE PRECISION NOT NULL,
    fill_rate DOUBLE PRECISION NOT NULL,
    auction_win_rate DOUBLE PRECISION NOT NULL,
    response_rate DOUBLE PRECISION NOT NULL,
    viewability_rate DOUBLE PRECISION NOT NULL,
    audibility_rate DOUBLE PRECISION NOT NULL,
    video_start_rate DOUBLE PRECISION NOT NULL,
    video_completion_rate DOUBLE PRECISION NOT NULL,
    video_skip_rate DOUBLE PRECISION NOT NULL,
    qr_scan_rate DOUBLE PRECISION NOT NULL,
    interactive_rate DOUBLE PRECISION NOT NULL,
    error_rate DOUBLE PRECISION NOT NULL,
    timeout_rate DOUBLE PRECISION NOT NULL,
    supply_funnel_efficiency DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (campaign_id, hour_ts)
);

-- Lookup indexes for report and backfill paths
CREATE INDEX IF NOT EXISTS idx_flights_campaign_id ON flights (campaign_id);
CREATE INDEX IF NOT EXISTS idx_campaigns_advertiser_id ON campaigns (advertiser_id);
CREATE INDEX IF NOT EXISTS idx_campaign_performance_day ON campaign_performance (campaign_id, daily_day_date);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.connection_string", dsn),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	// Configure connection pooling for production use
	db.SetMaxOpenConns(maxOpenConns)       // Maximum number of open connections
	db.SetMaxIdleConns(maxIdleConns)       // Maximum number of idle connections
	db.SetConnMaxLifetime(connMaxLifetime) // Maximum lifetime of a connection
	db.SetConnMaxIdleTime(connMaxIdleTime) // Maximum idle time before closing connection

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertAdvertiser inserts a new advertiser record and returns the generated ID.
func (p *Postgres) InsertAdvertiser(a *models.Advertiser) error {
	err := p.DB.QueryRowContext(context.Background(), `INSERT INTO advertisers (name, status, contact_email, agency_name) VALUES ($1,$2,$3,$4) RETURNING id`, a.Name, a.Status, a.ContactEmail, a.AgencyName).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert advertiser: %w", err)
	}
	return nil
}

// InsertCampaign inserts a new campaign and returns the generated ID.
func (p *Postgres) InsertCampaign(c *models.Campaign) error {
	err := p.DB.QueryRowContext(context.Background(), `INSERT INTO campaigns (advertiser_id, name, status, objective, target_cpm_cents) VALUES ($1,$2,$3,$4,$5) RETURNING id`, c.AdvertiserID, c.Name, c.Status, c.Objective, c.TargetCPMCents).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// InsertFlight inserts a new flight window and returns the generated ID.
func (p *Postgres) InsertFlight(f *models.Flight) error {
	err := p.DB.QueryRowContext(context.Background(), `INSERT INTO flights (campaign_id, start_date, end_date) VALUES ($1,$2,$3) RETURNING id`, f.CampaignID, f.StartDate, f.EndDate).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert flight: %w", err)
	}
	return nil
}

// LoadCampaigns retrieves all campaigns ordered by ID.
func (p *Postgres) LoadCampaigns() ([]models.Campaign, error) {
	rows, err := p.DB.QueryContext(context.Background(), `SELECT id, advertiser_id, name, status, objective, target_cpm_cents, created_at FROM campaigns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.AdvertiserID, &c.Name, &c.Status, &c.Objective, &c.TargetCPMCents, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return campaigns, nil
}

// GetCampaignFlight resolves a campaign and its flight window. Returns
// models.ErrNotFound when either record is absent.
func (p *Postgres) GetCampaignFlight(ctx context.Context, campaignID int) (*models.Campaign, *models.Flight, error) {
	var c models.Campaign
	err := p.DB.QueryRowContext(ctx, `SELECT id, advertiser_id, name, status, objective, target_cpm_cents, created_at FROM campaigns WHERE id=$1`, campaignID).
		Scan(&c.ID, &c.AdvertiserID, &c.Name, &c.Status, &c.Objective, &c.TargetCPMCents, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, models.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query campaign: %w", err)
	}

	var f models.Flight
	err = p.DB.QueryRowContext(ctx, `SELECT id, campaign_id, start_date, end_date, created_at FROM flights WHERE campaign_id=$1 ORDER BY start_date LIMIT 1`, campaignID).
		Scan(&f.ID, &f.CampaignID, &f.StartDate, &f.EndDate, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, models.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query flight: %w", err)
	}
	return &c, &f, nil
}

// ReplaceHourlyPerformance writes a generated batch for one campaign inside
// a single transaction. With replace set, prior rows for the campaign are
// deleted first; without it the insert relies on the (campaign_id, hour_ts)
// primary key to reject clashes with existing rows. Either way the
// transaction commits fully or not at all.
func (p *Postgres) ReplaceHourlyPerformance(ctx context.Context, campaignID int, raw []models.RawHourlyMetrics, derived []models.DerivedHourlyMetrics, replace bool) (int, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace tx: %w", err)
	}

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_performance_rates WHERE campaign_id=$1`, campaignID); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("delete prior rates: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_performance WHERE campaign_id=$1`, campaignID); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("delete prior rows: %w", err)
		}
	}

	if err := copyRawRows(ctx, tx, raw); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := copyRateRows(ctx, tx, derived); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace tx: %w", err)
	}
	return len(raw), nil
}

// copyRawRows streams raw metric rows through the COPY protocol.
func copyRawRows(ctx context.Context, tx *sql.Tx, rows []models.RawHourlyMetrics) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("campaign_performance",
		"campaign_id", "hour_ts", "requests", "responses", "eligible_impressions",
		"auctions_won", "impressions", "viewable_impressions", "audible_impressions",
		"video_starts", "video_q25", "video_q50", "video_q75", "video_q100",
		"skips", "avg_watch_time_seconds", "clicks", "qr_scans",
		"interactive_engagements", "reach", "frequency", "audience_mix",
		"spend_cents", "effective_cpm_cents", "error_count", "timeout_count",
		"hour_of_day", "day_of_week", "is_business_hour", "human_readable",
		"daily_day_date", "weekly_start_day_date", "monthly_start_day_date"))
	if err != nil {
		return fmt.Errorf("prepare performance copy: %w", err)
	}

	for _, r := range rows {
		var mix interface{}
		if r.AudienceMix != nil {
			b, err := json.Marshal(r.AudienceMix)
			if err != nil {
				_ = stmt.Close()
				return fmt.Errorf("marshal audience mix: %w", err)
			}
			mix = string(b)
		}
		if _, err := stmt.ExecContext(ctx,
			r.CampaignID, r.HourTS, r.Requests, r.Responses, r.EligibleImpressions,
			r.AuctionsWon, r.Impressions, r.ViewableImpressions, r.AudibleImpressions,
			r.VideoStarts, r.VideoQ25, r.VideoQ50, r.VideoQ75, r.VideoQ100,
			r.Skips, r.AvgWatchTimeSeconds, r.Clicks, r.QRScans,
			r.InteractiveEngagements, r.Reach, r.Frequency, mix,
			r.SpendCents, r.EffectiveCPMCents, r.ErrorCount, r.TimeoutCount,
			r.HourOfDay, r.DayOfWeek, r.IsBusinessHour, r.HumanReadable,
			r.DailyDayDate, r.WeeklyStartDayDate, r.MonthlyStartDayDate,
		); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy performance row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush performance copy: %w", err)
	}
	return stmt.Close()
}

// copyRateRows streams derived rate rows through the COPY protocol.
func copyRateRows(ctx context.Context, tx *sql.Tx, rows []models.DerivedHourlyMetrics) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("campaign_performance_rates",
		"campaign_id", "hour_ts", "ctr", "fill_rate", "auction_win_rate",
		"response_rate", "viewability_rate", "audibility_rate", "video_start_rate",
		"video_completion_rate", "video_skip_rate", "qr_scan_rate",
		"interactive_rate", "error_rate", "timeout_rate", "supply_funnel_efficiency"))
	if err != nil {
		return fmt.Errorf("prepare rates copy: %w", err)
	}

	for _, d := range rows {
		if _, err := stmt.ExecContext(ctx,
			d.CampaignID, d.HourTS, d.CTR, d.FillRate, d.AuctionWinRate,
			d.ResponseRate, d.ViewabilityRate, d.AudibilityRate, d.VideoStartRate,
			d.VideoCompletionRate, d.VideoSkipRate, d.QRScanRate,
			d.InteractiveRate, d.ErrorRate, d.TimeoutRate, d.SupplyFunnelEfficiency,
		); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy rate row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush rates copy: %w", err)
	}
	return stmt.Close()
}

// LoadHourlyPerformance retrieves the stored raw rows for a campaign
// ordered by hour.
func (p *Postgres) LoadHourlyPerformance(ctx context.Context, campaignID int) ([]models.RawHourlyMetrics, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT campaign_id, hour_ts, requests, responses, eligible_impressions,
        auctions_won, impressions, viewable_impressions, audible_impressions,
        video_starts, video_q25, video_q50, video_q75, video_q100,
        skips, avg_watch_time_seconds, clicks, qr_scans,
        interactive_engagements, reach, frequency, audience_mix,
        spend_cents, effective_cpm_cents, error_count, timeout_count,
        hour_of_day, day_of_week, is_business_hour, human_readable,
        daily_day_date, weekly_start_day_date, monthly_start_day_date
        FROM campaign_performance WHERE campaign_id=$1 ORDER BY hour_ts`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query hourly performance: %w", err)
	}
	defer rows.Close()

	var out []models.RawHourlyMetrics
	for rows.Next() {
		var r models.RawHourlyMetrics
		var mix []byte
		if err := rows.Scan(&r.CampaignID, &r.HourTS, &r.Requests, &r.Responses, &r.EligibleImpressions,
			&r.AuctionsWon, &r.Impressions, &r.ViewableImpressions, &r.AudibleImpressions,
			&r.VideoStarts, &r.VideoQ25, &r.VideoQ50, &r.VideoQ75, &r.VideoQ100,
			&r.Skips, &r.AvgWatchTimeSeconds, &r.Clicks, &r.QRScans,
			&r.InteractiveEngagements, &r.Reach, &r.Frequency, &mix,
			&r.SpendCents, &r.EffectiveCPMCents, &r.ErrorCount, &r.TimeoutCount,
			&r.HourOfDay, &r.DayOfWeek, &r.IsBusinessHour, &r.HumanReadable,
			&r.DailyDayDate, &r.WeeklyStartDayDate, &r.MonthlyStartDayDate,
		); err != nil {
			return nil, fmt.Errorf("scan hourly performance: %w", err)
		}
		if len(mix) > 0 {
			var am models.AudienceMix
			if err := json.Unmarshal(mix, &am); err != nil {
				return nil, fmt.Errorf("unmarshal audience mix: %w", err)
			}
			r.AudienceMix = &am
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// LoadHourlyRates retrieves the stored derived rows for a campaign ordered
// by hour.
func (p *Postgres) LoadHourlyRates(ctx context.Context, campaignID int) ([]models.DerivedHourlyMetrics, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT campaign_id, hour_ts, ctr, fill_rate, auction_win_rate,
        response_rate, viewability_rate, audibility_rate, video_start_rate,
        video_completion_rate, video_skip_rate, qr_scan_rate,
        interactive_rate, error_rate, timeout_rate, supply_funnel_efficiency
        FROM campaign_performance_rates WHERE campaign_id=$1 ORDER BY hour_ts`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query hourly rates: %w", err)
	}
	defer rows.Close()

	var out []models.DerivedHourlyMetrics
	for rows.Next() {
		var d models.DerivedHourlyMetrics
		if err := rows.Scan(&d.CampaignID, &d.HourTS, &d.CTR, &d.FillRate, &d.AuctionWinRate,
			&d.ResponseRate, &d.ViewabilityRate, &d.AudibilityRate, &d.VideoStartRate,
			&d.VideoCompletionRate, &d.VideoSkipRate, &d.QRScanRate,
			&d.InteractiveRate, &d.ErrorRate, &d.TimeoutRate, &d.SupplyFunnelEfficiency,
		); err != nil {
			return nil, fmt.Errorf("scan hourly rates: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
