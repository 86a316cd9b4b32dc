// Package metrics provides Prometheus metrics for conversion jobs:
// counters for conversions and their outcomes, rows/chunks/bytes written,
// and a latency histogram for chunk writes. Metrics are registered once
// via promauto and are safe for concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConversionsStarted counts conversion jobs by processing mode.
	ConversionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genoconv",
			Name:      "conversions_started_total",
			Help:      "Total conversion jobs started",
		},
		[]string{"mode"},
	)

	// ConversionsCompleted counts conversion jobs that finished, by
	// mode and status (success or failure).
	ConversionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genoconv",
			Name:      "conversions_completed_total",
			Help:      "Total conversion jobs completed",
		},
		[]string{"mode", "status"},
	)

	// ChunksWritten counts chunks written to destination stores.
	ChunksWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "genoconv",
			Name:      "chunks_written_total",
			Help:      "Total row chunks written",
		},
	)

	// RowsWritten counts matrix rows written to destination stores.
	RowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "genoconv",
			Name:      "rows_written_total",
			Help:      "Total matrix rows written",
		},
	)

	// BytesWritten counts uncompressed bytes handed to the store layer.
	BytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "genoconv",
			Name:      "bytes_written_total",
			Help:      "Total uncompressed bytes written",
		},
	)

	// ChunkWriteDuration observes per-chunk read+write latency in seconds.
	ChunkWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "genoconv",
			Name:      "chunk_write_duration_seconds",
			Help:      "Latency of reading and writing one chunk",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
	)

	// VerificationFailures counts failed structural verifications.
	VerificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "genoconv",
			Name:      "verification_failures_total",
			Help:      "Total structural verification failures",
		},
	)
)

// Timer measures the duration of a single operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveChunkWrite records the elapsed time into ChunkWriteDuration and
// returns it.
func (t *Timer) ObserveChunkWrite() time.Duration {
	d := time.Since(t.start)
	ChunkWriteDuration.Observe(d.Seconds())
	return d
}
