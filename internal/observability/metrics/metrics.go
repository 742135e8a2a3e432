// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_speech_transcribe"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Pool metrics
	PoolIdleHandles      prometheus.Gauge
	PoolHandlesCreated   *prometheus.CounterVec
	PoolHandlesDiscarded prometheus.Counter
	PoolAcquireTotal     *prometheus.CounterVec

	// Warm-up metrics
	WarmupsTotal        *prometheus.CounterVec
	CalibrationFailures *prometheus.CounterVec
	CalibrationDuration prometheus.Histogram

	// Transcription metrics
	TranscriptionsTotal   *prometheus.CounterVec
	TranscriptionDuration *prometheus.HistogramVec
	UploadBytes           prometheus.Counter
	CleanupFailures       prometheus.Counter
	KeepaliveCycles       *prometheus.CounterVec

	// Event publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PoolIdleHandles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_idle_handles",
			Help:      "Number of recognizer handles currently idle in the pool",
		}),
		PoolHandlesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_handles_created_total",
			Help:      "Total number of recognizer handles constructed",
		}, []string{"reason"}),
		PoolHandlesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_handles_discarded_total",
			Help:      "Total number of handles disposed because the pool was full",
		}),
		PoolAcquireTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_acquire_total",
			Help:      "Total number of handle acquisitions by source",
		}, []string{"source"}),

		WarmupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warmups_total",
			Help:      "Total number of pool warm-up passes",
		}, []string{"trigger"}),
		CalibrationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibration_failures_total",
			Help:      "Total number of handle calibrations that failed or timed out",
		}, []string{"reason"}),
		CalibrationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calibration_duration_seconds",
			Help:      "Duration of a single handle calibration",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		TranscriptionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Total number of transcription requests by outcome",
		}, []string{"provider", "outcome"}),
		TranscriptionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "End-to-end transcription processing time",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		UploadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total audio bytes written to scratch storage",
		}),
		CleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scratch_cleanup_failures_total",
			Help:      "Total number of temporary files that could not be deleted",
		}),
		KeepaliveCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keepalive_cycles_total",
			Help:      "Total number of keepalive loop cycles by action taken",
		}, []string{"action"}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"route"}),
	}
}

// RecordHandleCreated records a new recognizer handle.
func (m *Metrics) RecordHandleCreated(reason string) {
	m.PoolHandlesCreated.WithLabelValues(reason).Inc()
}

// RecordAcquire records a lease and the resulting idle count.
func (m *Metrics) RecordAcquire(source string, idle int) {
	m.PoolAcquireTotal.WithLabelValues(source).Inc()
	m.PoolIdleHandles.Set(float64(idle))
}

// RecordRelease records a handle returning to (or being dropped by) the pool.
func (m *Metrics) RecordRelease(discarded bool, idle int) {
	if discarded {
		m.PoolHandlesDiscarded.Inc()
	}
	m.PoolIdleHandles.Set(float64(idle))
}

// RecordWarmup records a warm-up pass.
func (m *Metrics) RecordWarmup(trigger string) {
	m.WarmupsTotal.WithLabelValues(trigger).Inc()
}

// RecordCalibration records one handle calibration.
func (m *Metrics) RecordCalibration(durationSeconds float64, failureReason string) {
	m.CalibrationDuration.Observe(durationSeconds)
	if failureReason != "" {
		m.CalibrationFailures.WithLabelValues(failureReason).Inc()
	}
}

// RecordTranscription records a finished transcription.
func (m *Metrics) RecordTranscription(provider, outcome string, durationSeconds float64) {
	m.TranscriptionsTotal.WithLabelValues(provider, outcome).Inc()
	m.TranscriptionDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordUpload records bytes written to scratch storage.
func (m *Metrics) RecordUpload(bytes int64) {
	m.UploadBytes.Add(float64(bytes))
}

// RecordCleanupFailure records a temporary file that could not be removed.
func (m *Metrics) RecordCleanupFailure() {
	m.CleanupFailures.Inc()
}

// RecordKeepalive records a keepalive cycle.
func (m *Metrics) RecordKeepalive(action string) {
	m.KeepaliveCycles.WithLabelValues(action).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, code int, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(route, httpCode(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
