package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/patrickwarner/adsynth/internal/models"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Postgres{DB: db}, mock
}

func sampleRawRow(campaignID int, hour time.Time) models.RawHourlyMetrics {
	return models.RawHourlyMetrics{
		CampaignID:          campaignID,
		HourTS:              hour,
		Requests:            1200,
		Responses:           1150,
		EligibleImpressions: 1100,
		AuctionsWon:         1000,
		Impressions:         1000,
		ViewableImpressions: 950,
		AudibleImpressions:  500,
		VideoStarts:         900,
		VideoQ25:            800,
		VideoQ50:            700,
		VideoQ75:            600,
		VideoQ100:           500,
		Skips:               90,
		Clicks:              10,
		Reach:               400,
		Frequency:           2,
		AudienceMix:         &models.AudienceMix{Device: map[string]float64{"CTV": 1}},
		SpendCents:          2500,
		EffectiveCPMCents:   2500,
	}
}

func TestGetCampaignFlight(t *testing.T) {
	p, mock := newMockPostgres(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM campaigns WHERE id=`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "advertiser_id", "name", "status", "objective", "target_cpm_cents", "created_at"}).
			AddRow(7, 1, "Spring Launch", models.StatusActive, models.ObjectiveAwareness, int64(2500), created))
	mock.ExpectQuery(`SELECT (.+) FROM flights WHERE campaign_id=`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "start_date", "end_date", "created_at"}).
			AddRow(3, 7, start, end, created))

	campaign, flight, err := p.GetCampaignFlight(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, 7, campaign.ID)
	assert.Equal(t, "Spring Launch", campaign.Name)
	assert.Equal(t, 2500, campaign.TargetCPMCents)
	assert.True(t, flight.StartDate.Equal(start))
	assert.True(t, flight.EndDate.Equal(end))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCampaignFlightMissingCampaign(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT (.+) FROM campaigns WHERE id=`).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"id", "advertiser_id", "name", "status", "objective", "target_cpm_cents", "created_at"}))

	_, _, err := p.GetCampaignFlight(context.Background(), 404)
	assert.True(t, errors.Is(err, models.ErrNotFound), "want ErrNotFound, got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCampaignFlightMissingFlight(t *testing.T) {
	p, mock := newMockPostgres(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM campaigns WHERE id=`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "advertiser_id", "name", "status", "objective", "target_cpm_cents", "created_at"}).
			AddRow(7, 1, "Spring Launch", models.StatusDraft, "", int64(0), created))
	mock.ExpectQuery(`SELECT (.+) FROM flights WHERE campaign_id=`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "start_date", "end_date", "created_at"}))

	_, _, err := p.GetCampaignFlight(context.Background(), 7)
	assert.True(t, errors.Is(err, models.ErrNotFound), "want ErrNotFound, got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceHourlyPerformance(t *testing.T) {
	p, mock := newMockPostgres(t)
	hour := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := []models.RawHourlyMetrics{sampleRawRow(1, hour), sampleRawRow(1, hour.Add(time.Hour))}
	derived := []models.DerivedHourlyMetrics{
		{CampaignID: 1, HourTS: hour, CTR: 0.01},
		{CampaignID: 1, HourTS: hour.Add(time.Hour), CTR: 0.012},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM campaign_performance_rates WHERE campaign_id=`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 24))
	mock.ExpectExec(`DELETE FROM campaign_performance WHERE campaign_id=`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 24))
	mock.ExpectPrepare(`COPY "campaign_performance" `)
	mock.ExpectExec(`COPY "campaign_performance" `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`COPY "campaign_performance" `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`COPY "campaign_performance" `).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectPrepare(`COPY "campaign_performance_rates" `)
	mock.ExpectExec(`COPY "campaign_performance_rates" `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`COPY "campaign_performance_rates" `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`COPY "campaign_performance_rates" `).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	written, err := p.ReplaceHourlyPerformance(context.Background(), 1, raw, derived, true)
	assert.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceHourlyPerformanceInsertOnly(t *testing.T) {
	p, mock := newMockPostgres(t)
	hour := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := []models.RawHourlyMetrics{sampleRawRow(1, hour)}
	derived := []models.DerivedHourlyMetrics{{CampaignID: 1, HourTS: hour}}

	// Without replace the transaction skips the deletes entirely.
	mock.ExpectBegin()
	mock.ExpectPrepare(`COPY "campaign_performance" `)
	mock.ExpectExec(`COPY "campaign_performance" `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`COPY "campaign_performance" `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(`COPY "campaign_performance_rates" `)
	mock.ExpectExec(`COPY "campaign_performance_rates" `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`COPY "campaign_performance_rates" `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	written, err := p.ReplaceHourlyPerformance(context.Background(), 1, raw, derived, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceHourlyPerformanceRollsBackOnFailure(t *testing.T) {
	p, mock := newMockPostgres(t)
	hour := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := []models.RawHourlyMetrics{sampleRawRow(1, hour)}
	derived := []models.DerivedHourlyMetrics{{CampaignID: 1, HourTS: hour}}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM campaign_performance_rates WHERE campaign_id=`).
		WithArgs(1).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := p.ReplaceHourlyPerformance(context.Background(), 1, raw, derived, true)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCampaign(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`INSERT INTO campaigns`).
		WithArgs(1, "Spring Launch", models.StatusActive, models.ObjectiveConsideration, int64(1800)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	c := &models.Campaign{AdvertiserID: 1, Name: "Spring Launch", Status: models.StatusActive, Objective: models.ObjectiveConsideration, TargetCPMCents: 1800}
	assert.NoError(t, p.InsertCampaign(c))
	assert.Equal(t, 12, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFlight(t *testing.T) {
	p, mock := newMockPostgres(t)
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO flights`).
		WithArgs(12, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

	f := &models.Flight{CampaignID: 12, StartDate: start, EndDate: end}
	assert.NoError(t, p.InsertFlight(f))
	assert.Equal(t, 4, f.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCampaigns(t *testing.T) {
	p, mock := newMockPostgres(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM campaigns ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "advertiser_id", "name", "status", "objective", "target_cpm_cents", "created_at"}).
			AddRow(1, 1, "Spring Launch", models.StatusActive, models.ObjectiveAwareness, int64(2500), created).
			AddRow(2, 1, "Summer Push", models.StatusPaused, models.ObjectiveConversion, int64(3100), created))

	campaigns, err := p.LoadCampaigns()
	assert.NoError(t, err)
	assert.Len(t, campaigns, 2)
	assert.Equal(t, "Summer Push", campaigns[1].Name)
	assert.Equal(t, 3100, campaigns[1].TargetCPMCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHourlyPerformance(t *testing.T) {
	p, mock := newMockPostgres(t)
	hour := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{"campaign_id", "hour_ts", "requests", "responses", "eligible_impressions",
		"auctions_won", "impressions", "viewable_impressions", "audible_impressions",
		"video_starts", "video_q25", "video_q50", "video_q75", "video_q100",
		"skips", "avg_watch_time_seconds", "clicks", "qr_scans",
		"interactive_engagements", "reach", "frequency", "audience_mix",
		"spend_cents", "effective_cpm_cents", "error_count", "timeout_count",
		"hour_of_day", "day_of_week", "is_business_hour", "human_readable",
		"daily_day_date", "weekly_start_day_date", "monthly_start_day_date"}
	mock.ExpectQuery(`SELECT (.+) FROM campaign_performance WHERE campaign_id=`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, hour, 1200, 1150, 1100, 1000, 1000, 950, 500,
				900, 800, 700, 600, 500, 90, 21.5, 10, 2, 12, 400, 2,
				[]byte(`{"device":{"CTV":0.62,"Mobile":0.38}}`),
				2500, 2500, 3, 1, 13, 0, true, "2024-01-01 13:00:00 UTC", day, day, day).
			AddRow(1, hour.Add(time.Hour), 1100, 1050, 1000, 950, 950, 910, 480,
				860, 760, 660, 560, 470, 80, 21.1, 9, 1, 11, 380, 2,
				nil,
				2375, 2500, 2, 0, 14, 0, true, "2024-01-01 14:00:00 UTC", day, day, day))

	raw, err := p.LoadHourlyPerformance(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, raw, 2)
	assert.Equal(t, int64(1000), raw[0].Impressions)
	assert.True(t, raw[1].HourTS.Equal(hour.Add(time.Hour)))
	// A NULL audience_mix column leaves the pointer unset rather than
	// producing an empty struct.
	if assert.NotNil(t, raw[0].AudienceMix) {
		assert.Equal(t, 0.62, raw[0].AudienceMix.Device["CTV"])
	}
	assert.Nil(t, raw[1].AudienceMix)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHourlyRates(t *testing.T) {
	p, mock := newMockPostgres(t)
	hour := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{"campaign_id", "hour_ts", "ctr", "fill_rate", "auction_win_rate",
		"response_rate", "viewability_rate", "audibility_rate", "video_start_rate",
		"video_completion_rate", "video_skip_rate", "qr_scan_rate",
		"interactive_rate", "error_rate", "timeout_rate", "supply_funnel_efficiency"}
	mock.ExpectQuery(`SELECT (.+) FROM campaign_performance_rates WHERE campaign_id=`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, hour, 0.01, 0.92, 0.97, 0.95, 0.94, 0.5, 0.88, 0.45, 0.12, 0.002, 0.01, 0.001, 0.0008, 0.92).
			AddRow(1, hour.Add(time.Hour), 0.012, 0.93, 0.96, 0.94, 0.95, 0.52, 0.87, 0.44, 0.11, 0.003, 0.011, 0.001, 0.0007, 0.93))

	rates, err := p.LoadHourlyRates(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, rates, 2)
	assert.Equal(t, 0.01, rates[0].CTR)
	assert.True(t, rates[1].HourTS.Equal(hour.Add(time.Hour)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
