package observability

import (
	"sync"
	"time"
)

var _ MetricsRegistry = (*MockMetricsRegistry)(nil)

// MockMetricsRegistry is a MetricsRegistry that records every call so tests
// can assert on what the engine reported. Safe for concurrent use.
type MockMetricsRegistry struct {
	mu sync.Mutex

	RunsByStatus    map[string]int
	Durations       []time.Duration
	RowsGenerated   int
	SpendByCampaign map[string]float64
	PersistErrors   int
	MirrorFailures  int
}

// NewMockMetricsRegistry creates an empty recording registry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		RunsByStatus:    make(map[string]int),
		SpendByCampaign: make(map[string]float64),
	}
}

// Generation run metrics
func (m *MockMetricsRegistry) IncrementGenerationRuns(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsByStatus[status]++
}

func (m *MockMetricsRegistry) RecordGenerationDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Durations = append(m.Durations, duration)
}

// Row output metrics
func (m *MockMetricsRegistry) AddRowsGenerated(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RowsGenerated += count
}

func (m *MockMetricsRegistry) SetSpendCentsTotal(campaign string, cents float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SpendByCampaign[campaign] = cents
}

// Persistence metrics
func (m *MockMetricsRegistry) IncrementPersistErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistErrors++
}

func (m *MockMetricsRegistry) IncrementMirrorFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MirrorFailures++
}
