package analytics

import (
	"context"
	"sync"

	"github.com/patrickwarner/adsynth/internal/models"
)

var _ Service = (*MockAnalytics)(nil)

// MockAnalytics is a mock implementation of the analytics mirror for testing.
// Recorded batches are kept in memory so tests can assert on what was mirrored.
type MockAnalytics struct {
	mu       sync.Mutex
	Batches  [][]models.RawHourlyMetrics
	FailNext bool
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordHourlyBatch captures the batch in memory (mock implementation)
func (m *MockAnalytics) RecordHourlyBatch(ctx context.Context, rows []models.RawHourlyMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return ErrUnavailable
	}
	batch := make([]models.RawHourlyMetrics, len(rows))
	copy(batch, rows)
	m.Batches = append(m.Batches, batch)
	return nil
}

// CampaignTotals aggregates the captured batches (mock implementation)
func (m *MockAnalytics) CampaignTotals(ctx context.Context, campaignID int) (*CampaignTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &CampaignTotals{CampaignID: campaignID}
	for _, batch := range m.Batches {
		for _, r := range batch {
			if r.CampaignID != campaignID {
				continue
			}
			t.Hours++
			t.Impressions += r.Impressions
			t.Clicks += r.Clicks
			t.VideoStarts += r.VideoStarts
			t.Completions += r.VideoQ100
			t.SpendCents += r.SpendCents
		}
	}
	if t.Impressions > 0 {
		t.CTR = float64(t.Clicks) / float64(t.Impressions)
	}
	return t, nil
}

// RecentRows is a mock implementation returning no rows.
func (m *MockAnalytics) RecentRows(ctx context.Context, campaignID, limit int) ([]HourlyRecord, error) {
	return nil, nil
}
