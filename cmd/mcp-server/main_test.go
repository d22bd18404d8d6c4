package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adsynth/internal/db"
	"github.com/patrickwarner/adsynth/internal/models"
	"github.com/patrickwarner/adsynth/internal/observability"
	"github.com/patrickwarner/adsynth/internal/perfgen"
)

func newTestServer(t *testing.T) (*AdSynthServer, *models.InMemoryPerformanceStore) {
	t.Helper()
	store := models.NewInMemoryPerformanceStore()
	store.PutAdvertiser(&models.Advertiser{ID: 1, Name: "Acme Brands", Status: models.StatusActive})
	store.PutCampaign(&models.Campaign{
		ID:           3,
		AdvertiserID: 1,
		Name:         "Winter Awareness Push",
		Status:       models.StatusActive,
		Objective:    models.ObjectiveAwareness,
	})
	store.PutFlight(&models.Flight{
		ID:         1,
		CampaignID: 3,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	engine := perfgen.NewEngine(store, nil, nil, observability.NewNoOpRegistry(), zap.NewNop())
	return &AdSynthServer{engine: engine, logger: zap.NewNop()}, store
}

func int64Ptr(v int64) *int64 { return &v }

func TestGeneratePerformanceTool(t *testing.T) {
	srv, store := newTestServer(t)

	_, out, err := srv.GeneratePerformance(context.Background(), nil, GeneratePerformanceInput{
		CampaignID: 3,
		Seed:       int64Ptr(42),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out.CampaignID)
	assert.Equal(t, int64(42), out.Seed)
	assert.Equal(t, 24, out.Rows)
	_, err = uuid.Parse(out.RunID)
	assert.NoError(t, err, "run_id should be a UUID")

	assert.Len(t, store.RawRows(3), 24)
}

func TestGeneratePerformanceToolDefaults(t *testing.T) {
	srv, _ := newTestServer(t)

	_, out, err := srv.GeneratePerformance(context.Background(), nil, GeneratePerformanceInput{CampaignID: 3})
	require.NoError(t, err)

	// Without an explicit seed the server picks a time-based one.
	assert.NotZero(t, out.Seed)
	assert.Equal(t, 24, out.Rows)
}

func TestGeneratePerformanceToolRequiresCampaignID(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.GeneratePerformance(context.Background(), nil, GeneratePerformanceInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "campaign_id")
}

func TestCampaignSummaryTool(t *testing.T) {
	srv, _ := newTestServer(t)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mockDB.Close()
	})
	srv.pg = &db.Postgres{DB: mockDB}

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Days defaults to 7 when the input omits it.
	mock.ExpectQuery(`daily_day_date AS date`).
		WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{
			"date", "hours", "impressions", "clicks", "video_starts", "completions", "spend_cents",
		}).AddRow(day, 24, int64(48000), int64(480), int64(42000), int64(21000), int64(144000)))

	mock.ExpectQuery(`FROM campaign_performance_rates`).
		WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{
			"ctr", "fill_rate", "viewability_rate", "audibility_rate",
			"video_start_rate", "video_completion_rate", "video_skip_rate", "error_rate",
		}).AddRow(0.01, 0.95, 0.94, 0.55, 0.88, 0.5, 0.2, 0.002))

	mock.ExpectQuery(`ORDER BY impressions DESC`).
		WithArgs(3, 7).
		WillReturnError(sql.ErrNoRows)

	_, summary, err := srv.CampaignSummary(context.Background(), nil, CampaignSummaryInput{CampaignID: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.CampaignID)
	assert.Equal(t, int64(48000), summary.TotalMetrics.Impressions)
	assert.Equal(t, 1440.0, summary.TotalMetrics.Spend)
	assert.Len(t, summary.DailyMetrics, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignSummaryToolRequiresCampaignID(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.CampaignSummary(context.Background(), nil, CampaignSummaryInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "campaign_id")
}
