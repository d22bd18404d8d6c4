// Package reporting provides campaign performance reporting functionality.
// It aggregates the persisted hourly performance rows into totals, daily
// rollups, averaged rates, and peak-hour highlights. The package is purely
// a reader; it never regenerates data.
package reporting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CampaignMetrics represents rolled-up performance for a campaign over a
// single day, or over the whole reporting window for totals. Monetary values
// are in USD. CTR is expressed as a percentage (0-100).
type CampaignMetrics struct {
	CampaignID  int       `json:"campaign_id"`  // Campaign identifier
	Date        time.Time `json:"date"`         // Day for daily rollups, newest day for totals
	Hours       int       `json:"hours"`        // Hourly rows aggregated into this rollup
	Impressions int64     `json:"impressions"`  // Total ad impressions served
	Clicks      int64     `json:"clicks"`       // Total clicks received
	VideoStarts int64     `json:"video_starts"` // Total video starts
	Completions int64     `json:"completions"`  // Total 100% video completions
	Spend       float64   `json:"spend"`        // Total amount spent in USD
	CTR         float64   `json:"ctr"`          // Click-through rate as percentage (clicks/impressions * 100)
	CPM         float64   `json:"cpm"`          // Cost per mille (cost per 1000 impressions) in USD
	CPC         float64   `json:"cpc"`          // Cost per click in USD
}

// RateAverages carries the mean of the stored per-hour rates across the
// reporting window. All values lie in [0,1].
type RateAverages struct {
	CTR                 float64 `json:"ctr"`                   // Mean hourly click-through rate
	FillRate            float64 `json:"fill_rate"`             // Mean eligible impressions / ad requests
	ViewabilityRate     float64 `json:"viewability_rate"`      // Mean viewable / impressions
	AudibilityRate      float64 `json:"audibility_rate"`       // Mean audible / impressions
	VideoStartRate      float64 `json:"video_start_rate"`      // Mean video starts / impressions
	VideoCompletionRate float64 `json:"video_completion_rate"` // Mean completions / starts
	VideoSkipRate       float64 `json:"video_skip_rate"`       // Mean skips / starts
	ErrorRate           float64 `json:"error_rate"`            // Mean errors / ad requests
}

// PeakHour highlights the busiest stored hour of the window by impressions.
type PeakHour struct {
	HourTS      time.Time `json:"hour_ts"`     // UTC hour boundary
	Impressions int64     `json:"impressions"` // Impressions served that hour
	Clicks      int64     `json:"clicks"`      // Clicks received that hour
	Spend       float64   `json:"spend"`       // Amount spent that hour in USD
}

// CampaignSummary contains comprehensive campaign performance data including
// window totals, day-by-day rollups, averaged rates, and the peak hour.
type CampaignSummary struct {
	CampaignID   int               `json:"campaign_id"`   // Campaign identifier
	TotalMetrics CampaignMetrics   `json:"total_metrics"` // Aggregated metrics for the entire reporting window
	DailyMetrics []CampaignMetrics `json:"daily_metrics"` // Day-by-day performance breakdown, newest first
	AverageRates RateAverages      `json:"average_rates"` // Mean stored rates across the window
	PeakHour     *PeakHour         `json:"peak_hour"`     // Busiest hour by impressions, nil when no rows exist
}

// windowClause restricts a query to the last N days of stored data. Flights
// are usually historical, so the window anchors on the newest persisted hour
// for the campaign rather than on wall-clock now().
const windowClause = `hour_ts >= (SELECT COALESCE(MAX(hour_ts), 'epoch'::timestamptz)
			FROM campaign_performance WHERE campaign_id = $1) - make_interval(days => $2)`

// GenerateCampaignReport aggregates the persisted hourly rows for a campaign
// and assembles a report including daily rollups, totals, averaged rates, and
// the peak hour. days bounds the reporting window counted back from the newest
// stored hour; days <= 0 reports the full history.
func GenerateCampaignReport(ctx context.Context, db *sql.DB, campaignID int, days int) (*CampaignSummary, error) {
	if days <= 0 {
		days = 36500
	}
	summary := &CampaignSummary{
		CampaignID: campaignID,
	}

	// Get daily rollups from the persisted hourly rows
	dailyMetrics, err := getDailyRollups(ctx, db, campaignID, days)
	if err != nil {
		return nil, fmt.Errorf("get daily rollups: %w", err)
	}
	summary.DailyMetrics = dailyMetrics

	// Calculate aggregated total metrics from daily data
	totalMetrics := CampaignMetrics{
		CampaignID: campaignID,
	}

	for _, dm := range dailyMetrics {
		if dm.Date.After(totalMetrics.Date) {
			totalMetrics.Date = dm.Date
		}
		totalMetrics.Hours += dm.Hours
		totalMetrics.Impressions += dm.Impressions
		totalMetrics.Clicks += dm.Clicks
		totalMetrics.VideoStarts += dm.VideoStarts
		totalMetrics.Completions += dm.Completions
		totalMetrics.Spend += dm.Spend
	}

	// Recompute derived metrics (CTR, CPM, CPC) from the summed counts so
	// the totals stay internally consistent
	fillDerivedMetrics(&totalMetrics)
	summary.TotalMetrics = totalMetrics

	// Get the mean stored rates across the window
	averages, err := getRateAverages(ctx, db, campaignID, days)
	if err != nil {
		return nil, fmt.Errorf("get rate averages: %w", err)
	}
	summary.AverageRates = averages

	// Get the busiest hour of the window
	peak, err := getPeakHour(ctx, db, campaignID, days)
	if err != nil {
		return nil, fmt.Errorf("get peak hour: %w", err)
	}
	summary.PeakHour = peak

	return summary, nil
}

// fillDerivedMetrics computes CTR, CPM, and CPC from the aggregated counts.
func fillDerivedMetrics(m *CampaignMetrics) {
	if m.Impressions > 0 {
		m.CTR = float64(m.Clicks) / float64(m.Impressions) * 100
		m.CPM = m.Spend / float64(m.Impressions) * 1000
	}
	if m.Clicks > 0 {
		m.CPC = m.Spend / float64(m.Clicks)
	}
}

// getDailyRollups groups the stored hourly rows by their day column and sums
// the headline counters. Returns metrics grouped by day with calculated CTR,
// CPM, and CPC for each day.
func getDailyRollups(ctx context.Context, db *sql.DB, campaignID int, days int) ([]CampaignMetrics, error) {
	query := `
		SELECT
			daily_day_date AS date,
			COUNT(*) AS hours,
			SUM(impressions) AS impressions,
			SUM(clicks) AS clicks,
			SUM(video_starts) AS video_starts,
			SUM(video_q100) AS completions,
			SUM(spend_cents) AS spend_cents
		FROM campaign_performance
		WHERE campaign_id = $1
			AND ` + windowClause + `
		GROUP BY daily_day_date
		ORDER BY daily_day_date DESC`

	rows, err := db.QueryContext(ctx, query, campaignID, days)
	if err != nil {
		return nil, fmt.Errorf("query daily rollups: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var metrics []CampaignMetrics
	for rows.Next() {
		var m CampaignMetrics
		var spendCents int64
		m.CampaignID = campaignID // Set it directly since we're filtering by it
		err := rows.Scan(&m.Date, &m.Hours, &m.Impressions, &m.Clicks,
			&m.VideoStarts, &m.Completions, &spendCents)
		if err != nil {
			return nil, fmt.Errorf("scan daily rollup: %w", err)
		}
		m.Spend = float64(spendCents) / 100
		fillDerivedMetrics(&m)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// getRateAverages computes the mean of the stored per-hour rates across the
// reporting window. An empty window yields all-zero averages.
func getRateAverages(ctx context.Context, db *sql.DB, campaignID int, days int) (RateAverages, error) {
	query := `
		SELECT
			COALESCE(AVG(ctr), 0),
			COALESCE(AVG(fill_rate), 0),
			COALESCE(AVG(viewability_rate), 0),
			COALESCE(AVG(audibility_rate), 0),
			COALESCE(AVG(video_start_rate), 0),
			COALESCE(AVG(video_completion_rate), 0),
			COALESCE(AVG(video_skip_rate), 0),
			COALESCE(AVG(error_rate), 0)
		FROM campaign_performance_rates
		WHERE campaign_id = $1
			AND ` + windowClause

	var avg RateAverages
	err := db.QueryRowContext(ctx, query, campaignID, days).Scan(
		&avg.CTR, &avg.FillRate, &avg.ViewabilityRate, &avg.AudibilityRate,
		&avg.VideoStartRate, &avg.VideoCompletionRate, &avg.VideoSkipRate, &avg.ErrorRate)
	if err != nil {
		return RateAverages{}, fmt.Errorf("query rate averages: %w", err)
	}
	return avg, nil
}

// getPeakHour returns the stored hour with the most impressions in the
// window, or nil when the campaign has no rows at all.
func getPeakHour(ctx context.Context, db *sql.DB, campaignID int, days int) (*PeakHour, error) {
	query := `
		SELECT hour_ts, impressions, clicks, spend_cents
		FROM campaign_performance
		WHERE campaign_id = $1
			AND ` + windowClause + `
		ORDER BY impressions DESC, hour_ts ASC
		LIMIT 1`

	var peak PeakHour
	var spendCents int64
	err := db.QueryRowContext(ctx, query, campaignID, days).Scan(
		&peak.HourTS, &peak.Impressions, &peak.Clicks, &spendCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query peak hour: %w", err)
	}
	peak.Spend = float64(spendCents) / 100
	return &peak, nil
}
