package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// Generation run metrics
	IncrementGenerationRuns(status string)
	RecordGenerationDuration(duration time.Duration)

	// Row output metrics
	AddRowsGenerated(count int)
	SetSpendCentsTotal(campaign string, cents float64)

	// Persistence metrics
	IncrementPersistErrors()
	IncrementMirrorFailures()
}

// PrometheusRegistry implements MetricsRegistry using the existing global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// Generation run metrics
func (r *PrometheusRegistry) IncrementGenerationRuns(status string) {
	GenerationRuns.WithLabelValues(status).Inc()
}

func (r *PrometheusRegistry) RecordGenerationDuration(duration time.Duration) {
	GenerationDuration.Observe(duration.Seconds())
}

// Row output metrics
func (r *PrometheusRegistry) AddRowsGenerated(count int) {
	RowsGenerated.Add(float64(count))
}

func (r *PrometheusRegistry) SetSpendCentsTotal(campaign string, cents float64) {
	SpendCentsTotal.WithLabelValues(campaign).Set(cents)
}

// Persistence metrics
func (r *PrometheusRegistry) IncrementPersistErrors() {
	PersistErrors.Inc()
}

func (r *PrometheusRegistry) IncrementMirrorFailures() {
	MirrorFailures.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

// Generation run metrics
func (r *NoOpRegistry) IncrementGenerationRuns(status string)           {}
func (r *NoOpRegistry) RecordGenerationDuration(duration time.Duration) {}

// Row output metrics
func (r *NoOpRegistry) AddRowsGenerated(count int)                        {}
func (r *NoOpRegistry) SetSpendCentsTotal(campaign string, cents float64) {}

// Persistence metrics
func (r *NoOpRegistry) IncrementPersistErrors()  {}
func (r *NoOpRegistry) IncrementMirrorFailures() {}
