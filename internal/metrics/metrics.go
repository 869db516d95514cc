package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryLatency tracks read operation latency
	QueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_query_latency_seconds",
			Help:    "Query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// QueryErrorsTotal tracks failed reads by error class
	QueryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_query_errors_total",
			Help: "Total number of failed queries",
		},
		[]string{"operation", "class"},
	)

	// IntegrityWarningsTotal tracks clamped anomalies in derived state
	IntegrityWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_integrity_warnings_total",
			Help: "Total number of integrity anomalies clamped during aggregation",
		},
		[]string{"kind"},
	)

	// DuplicateEventsTotal tracks transfer events skipped by identity dedup
	DuplicateEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorer_duplicate_events_total",
			Help: "Total number of duplicate transfer events skipped",
		},
	)

	// WindowWideningsTotal tracks recency window doublings
	WindowWideningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_window_widenings_total",
			Help: "Total number of recency window widenings",
		},
		[]string{"source"},
	)

	// FallbackScansTotal tracks recency queries that fell back to a full-range scan
	FallbackScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_fallback_scans_total",
			Help: "Total number of recency fallback scans",
		},
		[]string{"source"},
	)

	// CacheRequestsTotal tracks result cache lookups
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_cache_requests_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"},
	)

	// StreamHighWaterMark tracks the last observed block of each stream
	StreamHighWaterMark = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "explorer_stream_high_water_mark",
			Help: "Highest block number observed per stream",
		},
		[]string{"stream"},
	)

	// DBConnectionPoolUsage tracks the fraction of open connections in use
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "explorer_db_connection_pool_usage",
			Help: "Ratio of in-use to open database connections",
		},
	)
)
