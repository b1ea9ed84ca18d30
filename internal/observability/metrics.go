// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	analysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Completed analysis runs by outcome.",
		},
		[]string{"status"},
	)

	analysisRunDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_run_duration_seconds",
			Help:    "End-to-end duration of analysis runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"status"},
	)

	analysisStageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_stage_duration_seconds",
			Help:    "Duration of individual analysis stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"stage"},
	)

	analysisLayersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_layers_total",
			Help: "Input layers processed, by role.",
		},
		[]string{"role"},
	)

	sliversRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_slivers_removed_total",
			Help: "Output fragments discarded by the sliver filter.",
		},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Result-cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of cache backend operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "ok"},
	)

	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_events_published_total",
			Help: "Run-completion events published, by outcome.",
		},
		[]string{"outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveAnalysisRun(status string, durationSeconds float64) {
	analysisRunsTotal.WithLabelValues(status).Inc()
	analysisRunDurationSeconds.WithLabelValues(status).Observe(durationSeconds)
}

func ObserveAnalysisStage(stage string, durationSeconds float64) {
	analysisStageDurationSeconds.WithLabelValues(stage).Observe(durationSeconds)
}

func AddAnalysisLayers(role string, n int) {
	if n <= 0 {
		return
	}
	analysisLayersTotal.WithLabelValues(role).Add(float64(n))
}

func AddSliversRemoved(n int) {
	if n <= 0 {
		return
	}
	sliversRemovedTotal.Add(float64(n))
}

func IncCacheHit()  { cacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	ok := "true"
	if err != nil {
		ok = "false"
	}
	cacheOpDurationSeconds.WithLabelValues(op, ok).Observe(durationSeconds)
}

func IncEventPublished(err error) {
	if err != nil {
		eventsPublishedTotal.WithLabelValues("error").Inc()
		return
	}
	eventsPublishedTotal.WithLabelValues("ok").Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
