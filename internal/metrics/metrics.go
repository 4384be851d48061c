// Package metrics exposes Prometheus instrumentation for the transcription pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts /transcribe requests by outcome status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yts_transcribe_requests_total",
			Help: "Transcription requests by HTTP status code",
		},
		[]string{"status"},
	)

	// StageDuration observes how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yts_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	// CacheLookups counts cache lookups by cache and result.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yts_cache_lookups_total",
			Help: "Cache lookups by cache name and result (hit or miss)",
		},
		[]string{"cache", "result"},
	)

	// StageErrors counts failed stages.
	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yts_stage_errors_total",
			Help: "Failed pipeline stages",
		},
		[]string{"stage"},
	)
)

// ObserveStage records the time since start for stage, and counts err if non-nil.
func ObserveStage(stage string, start time.Time, err error) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		StageErrors.WithLabelValues(stage).Inc()
	}
}

// CacheResult counts a cache lookup.
func CacheResult(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}
