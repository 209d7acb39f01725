// Package metrics exposes Prometheus instrumentation for recommendations,
// the feature pipeline, the Spotify client and the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mias_recommendations_total",
			Help: "Total number of playlist submissions by outcome",
		},
		[]string{"status"}, // "completed", "failed"
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mias_pipeline_duration_seconds",
			Help:    "Duration of feature pipeline and engine construction",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mias_scoring_duration_seconds",
			Help:    "Duration of similarity scoring and ranking",
			Buckets: prometheus.DefBuckets,
		},
	)

	CorpusTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mias_corpus_tracks",
			Help: "Number of tracks in the stored corpus",
		},
	)

	// Spotify Metrics
	SpotifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mias_spotify_requests_total",
			Help: "Total number of Spotify Web API requests",
		},
		[]string{"endpoint", "status"},
	)

	SpotifyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mias_spotify_request_duration_seconds",
			Help:    "Duration of Spotify Web API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mias_cache_hits_total",
			Help: "Total number of Spotify lookup cache hits",
		},
		[]string{"kind"}, // "artist", "audio_features"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mias_cache_misses_total",
			Help: "Total number of Spotify lookup cache misses",
		},
		[]string{"kind"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mias_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mias_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRecommendation records the outcome of one playlist submission.
func RecordRecommendation(err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}
	RecommendationsTotal.WithLabelValues(status).Inc()
}

// RecordSpotifyRequest records one Spotify call. statusCode is 0 when the
// request never got a response.
func RecordSpotifyRequest(endpoint string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	SpotifyRequestsTotal.WithLabelValues(endpoint, status).Inc()
	SpotifyRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func RecordCacheLookup(kind string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(kind).Inc()
		return
	}
	CacheMisses.WithLabelValues(kind).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
