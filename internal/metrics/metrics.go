// Package metrics exposes prometheus collectors for the detection
// pipeline. Collectors are package-level and registered once at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesParsed counts raw entries successfully normalized.
	EntriesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_entries_parsed_total",
		Help: "Raw log entries successfully parsed into canonical records",
	})

	// EntriesDropped counts raw entries dropped during extraction.
	EntriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_entries_dropped_total",
		Help: "Raw log entries dropped as unparseable or featureless",
	})

	// AnomaliesDetected counts anomalies by detection phase.
	AnomaliesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_anomalies_detected_total",
		Help: "Anomalies detected, by phase",
	}, []string{"phase"}) // "rule" or "model"

	// ScorerFailures counts failed batch scorer invocations.
	ScorerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_scorer_failures_total",
		Help: "Outlier scorer invocations that returned an error",
	})

	// AlertsSent counts aggregate alerts dispatched by the rate throttle.
	AlertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_alerts_sent_total",
		Help: "Aggregate rate alerts dispatched",
	})

	// SnapshotFailures counts failed history snapshot writes.
	SnapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_snapshot_failures_total",
		Help: "History snapshot writes that failed",
	})

	// HistorySize tracks the number of records held in the history buffer.
	HistorySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_history_records",
		Help: "Anomaly records currently held in the history buffer",
	})

	// RequestDuration observes HTTP handler latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vigil_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
)
