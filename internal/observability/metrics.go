package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// generation runs per outcome
	GenerationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adsynth_generation_runs_total",
			Help: "Total performance generation runs",
		},
		[]string{"status"},
	)

	// generation run latency in seconds
	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adsynth_generation_duration_seconds",
			Help:    "Histogram of generation run latencies",
			Buckets: prometheus.DefBuckets,
		},
	)

	// number of hourly rows produced
	RowsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adsynth_rows_generated_total",
			Help: "Total hourly performance rows generated",
		},
	)

	// synthetic spend tracked per campaign
	SpendCentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adsynth_spend_cents_total",
			Help: "Total synthetic spend generated per campaign",
		},
		[]string{"campaign"},
	)

	// number of errors persisting generated rows
	PersistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adsynth_persist_errors_total",
			Help: "Total row persistence errors",
		},
	)

	// number of failed warehouse mirror writes
	MirrorFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adsynth_warehouse_mirror_failures_total",
			Help: "Total analytics mirror write failures",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		GenerationRuns,
		GenerationDuration,
		RowsGenerated,
		SpendCentsTotal,
		PersistErrors,
		MirrorFailures,
	)
}
