// Package observability holds the process-wide Prometheus collectors and the
// OpenTelemetry tracer.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptorium_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by outcome (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptorium_cache_lookups_total",
		Help: "Cache-aside lookups by outcome",
	}, []string{"outcome"})

	// PostSaveDuration records how long a full save (render + transaction) takes.
	PostSaveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scriptorium_post_save_duration_seconds",
		Help:    "Duration of post saves in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	// PostsDrafted counts drafts allocated.
	PostsDrafted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scriptorium_posts_drafted_total",
		Help: "Total number of draft posts created",
	})

	// TagsCreated counts tags that did not exist before a save referenced them.
	TagsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scriptorium_tags_created_total",
		Help: "Total number of tags created by post saves",
	})

	// ErrorResponses counts failure envelopes by error kind.
	ErrorResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptorium_error_responses_total",
		Help: "Failure envelopes sent by error kind",
	}, []string{"kind"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scriptorium_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// ObserveSave records a finished save.
func ObserveSave(start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	PostSaveDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
