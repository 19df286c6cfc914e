// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyBuckets covers fast store-backed requests through slow upstream calls.
var latencyBuckets = []float64{
	0.001, // 1ms
	0.005, // 5ms
	0.01,  // 10ms
	0.025, // 25ms
	0.05,  // 50ms
	0.1,   // 100ms
	0.25,  // 250ms
	0.5,   // 500ms
	1.0,   // 1s
	2.5,   // 2.5s
	5.0,   // 5s
	10.0,  // 10s
}

var (
	// HTTPRequestDuration tracks API latency per route template and status code
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segmentkeeper_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"route", "status"},
	)

	// SegmentCreateDuration tracks the latency of segment creation
	SegmentCreateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segmentkeeper_segment_create_duration_seconds",
			Help:    "Duration of segment creation in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"status"}, // persisted, rejected or failed
	)

	// SuggestionFallbacks counts enrichment failures replaced by templates
	SuggestionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segmentkeeper_suggestion_fallbacks_total",
			Help: "Message suggestions that fell back to canned templates",
		},
		[]string{"reason"},
	)

	// AudienceEstimateSize records the estimated audience sizes returned by previews
	AudienceEstimateSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "segmentkeeper_audience_estimate_size",
			Help:    "Estimated audience size returned by segment previews",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)
)

// RecordHTTPRequest records the duration of a request
func RecordHTTPRequest(route, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(route, status).Observe(duration)
}

// RecordSegmentCreate records the duration and outcome of a segment creation
func RecordSegmentCreate(status string, duration float64) {
	SegmentCreateDuration.WithLabelValues(status).Observe(duration)
}

// RecordSuggestionFallback counts a fallback to deterministic templates
func RecordSuggestionFallback(reason string) {
	SuggestionFallbacks.WithLabelValues(reason).Inc()
}

// RecordAudienceEstimate records an estimated audience size
func RecordAudienceEstimate(size int) {
	AudienceEstimateSize.Observe(float64(size))
}
