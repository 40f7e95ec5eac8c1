// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	FilesIngested   *prometheus.CounterVec
	RowsNormalized  prometheus.Counter
	RowsDropped     prometheus.Counter
	IngestionErrors *prometheus.CounterVec
	IngestDuration  prometheus.Histogram

	// API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Snapshot metrics
	SnapshotFetches      *prometheus.CounterVec
	SnapshotFetchLatency prometheus.Histogram
	SnapshotsStored      prometheus.Counter
	StreamConnected      prometheus.Gauge
	StreamMessages       prometheus.Counter

	// Narrative metrics
	NarrativeRequests *prometheus.CounterVec
	NarrativeLatency  prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngest   prometheus.Gauge
	LastSuccessfulSnapshot prometheus.Gauge
	UptimeSeconds          prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fundamentals"
	}

	return &Metrics{
		// Ingestion metrics
		FilesIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "files_ingested_total",
			Help:      "Total number of source files ingested by format",
		}, []string{"format"}),
		RowsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_normalized_total",
			Help:      "Total number of rows normalized into financial records",
		}),
		RowsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_dropped_total",
			Help:      "Total number of rows dropped for missing a usable year",
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by format and type",
		}, []string{"format", "error_type"}),
		IngestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duration_seconds",
			Help:      "Per-file ingestion duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// API metrics
		APIRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		APIRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Snapshot metrics
		SnapshotFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "fetches_total",
			Help:      "Total number of market snapshot fetches by source and status",
		}, []string{"source", "status"}),
		SnapshotFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "fetch_latency_seconds",
			Help:      "Market snapshot fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "stored_total",
			Help:      "Total number of snapshot rows appended to the warehouse",
		}),
		StreamConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "stream_connected",
			Help:      "Whether the quote stream is currently connected (1) or not (0)",
		}),
		StreamMessages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "stream_messages_total",
			Help:      "Total number of quote stream messages received",
		}),

		// Narrative metrics
		NarrativeRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "narrative",
			Name:      "requests_total",
			Help:      "Total number of narrative generations by status",
		}, []string{"status"}),
		NarrativeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "narrative",
			Name:      "latency_seconds",
			Help:      "Narrative generation latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngest: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingest_timestamp",
			Help:      "Unix timestamp of last successful ingest run",
		}),
		LastSuccessfulSnapshot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of last successful snapshot refresh",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFileIngested increments the ingested-files counter for a format.
func RecordFileIngested(format string) {
	DefaultMetrics.FilesIngested.WithLabelValues(format).Inc()
}

// RecordRowsNormalized adds to the normalized-rows counter.
func RecordRowsNormalized(n int) {
	DefaultMetrics.RowsNormalized.Add(float64(n))
}

// RecordRowsDropped adds to the dropped-rows counter.
func RecordRowsDropped(n int) {
	DefaultMetrics.RowsDropped.Add(float64(n))
}

// RecordIngestionError records an ingestion error.
func RecordIngestionError(format, errorType string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(format, errorType).Inc()
}

// RecordIngestDuration records per-file ingestion latency.
func RecordIngestDuration(seconds float64) {
	DefaultMetrics.IngestDuration.Observe(seconds)
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(route, method, status string, seconds float64) {
	DefaultMetrics.APIRequestsTotal.WithLabelValues(route, method, status).Inc()
	DefaultMetrics.APIRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordSnapshotFetch records a snapshot fetch attempt.
func RecordSnapshotFetch(source, status string, seconds float64) {
	DefaultMetrics.SnapshotFetches.WithLabelValues(source, status).Inc()
	DefaultMetrics.SnapshotFetchLatency.Observe(seconds)
}

// RecordSnapshotsStored adds to the stored-snapshots counter.
func RecordSnapshotsStored(n int) {
	DefaultMetrics.SnapshotsStored.Add(float64(n))
}

// SetStreamConnected updates the quote stream connection gauge.
func SetStreamConnected(connected bool) {
	if connected {
		DefaultMetrics.StreamConnected.Set(1)
	} else {
		DefaultMetrics.StreamConnected.Set(0)
	}
}

// RecordStreamMessage increments the quote stream message counter.
func RecordStreamMessage() {
	DefaultMetrics.StreamMessages.Inc()
}

// RecordNarrative records a narrative generation.
func RecordNarrative(status string, seconds float64) {
	DefaultMetrics.NarrativeRequests.WithLabelValues(status).Inc()
	DefaultMetrics.NarrativeLatency.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkIngestSuccess sets the last successful ingest timestamp.
func MarkIngestSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulIngest.Set(float64(unixSeconds))
}

// MarkSnapshotSuccess sets the last successful snapshot timestamp.
func MarkSnapshotSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulSnapshot.Set(float64(unixSeconds))
}
