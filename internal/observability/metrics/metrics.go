// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interview_voice"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Response stream metrics
	StreamsTotal   prometheus.Counter
	StreamsActive  prometheus.Gauge
	StreamsSuccess prometheus.Counter
	StreamsFailed  prometheus.Counter
	StreamDuration prometheus.Histogram

	// Token / segment metrics
	TokensEmitted   prometheus.Counter
	SegmentsCreated prometheus.Counter

	// Synthesis metrics
	SynthesisAttempts *prometheus.CounterVec
	SynthesisRetries  prometheus.Counter
	SegmentsSkipped   prometheus.Counter
	SynthesisLatency  prometheus.Histogram

	// Transcription session metrics
	TranscribeSessions  prometheus.Counter
	TranscribeActive    prometheus.Gauge
	TranscriptsPartial  prometheus.Counter
	TranscriptsFinal    prometheus.Counter
	AudioBytesReceived  prometheus.Counter
	AudioFramesReceived prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		StreamsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_total",
			Help:      "Total number of response streams started",
		}),
		StreamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of currently active response streams",
		}),
		StreamsSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_success_total",
			Help:      "Total number of streams terminated by a done event",
		}),
		StreamsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_failed_total",
			Help:      "Total number of streams terminated by an error event",
		}),
		StreamDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_duration_seconds",
			Help:      "Duration of response streams in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		TokensEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_emitted_total",
			Help:      "Total number of token events emitted",
		}),
		SegmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_created_total",
			Help:      "Total number of sentence segments created",
		}),

		SynthesisAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_attempts_total",
			Help:      "Total number of synthesis attempts",
		}, []string{"outcome"}),
		SynthesisRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_retries_total",
			Help:      "Total number of synthesis retry attempts",
		}),
		SegmentsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_skipped_total",
			Help:      "Total number of segments skipped after exhausting retries",
		}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_seconds",
			Help:      "Per-segment synthesis latency in seconds, retries included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		TranscribeSessions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcribe_sessions_total",
			Help:      "Total number of duplex transcription sessions",
		}),
		TranscribeActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcribe_sessions_active",
			Help:      "Number of currently active transcription sessions",
		}),
		TranscriptsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of interim transcripts forwarded",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcripts forwarded",
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received on transcription sockets",
		}),
		AudioFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total audio frames received on transcription sockets",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordStreamStart records a new response stream starting.
func (m *Metrics) RecordStreamStart() {
	m.StreamsTotal.Inc()
	m.StreamsActive.Inc()
}

// RecordStreamEnd records a response stream ending.
func (m *Metrics) RecordStreamEnd(success bool, durationSeconds float64) {
	m.StreamsActive.Dec()
	m.StreamDuration.Observe(durationSeconds)
	if success {
		m.StreamsSuccess.Inc()
	} else {
		m.StreamsFailed.Inc()
	}
}

// RecordToken records a token event emitted to the transport.
func (m *Metrics) RecordToken() {
	m.TokensEmitted.Inc()
}

// RecordSegmentCreated records a new sentence segment.
func (m *Metrics) RecordSegmentCreated() {
	m.SegmentsCreated.Inc()
}

// RecordSynthesisAttempt records one synthesis attempt with its outcome.
func (m *Metrics) RecordSynthesisAttempt(outcome string, retry bool) {
	m.SynthesisAttempts.WithLabelValues(outcome).Inc()
	if retry {
		m.SynthesisRetries.Inc()
	}
}

// RecordSegmentSkipped records a segment skipped after exhausting retries.
func (m *Metrics) RecordSegmentSkipped() {
	m.SegmentsSkipped.Inc()
}

// RecordSynthesisLatency records per-segment synthesis latency.
func (m *Metrics) RecordSynthesisLatency(seconds float64) {
	m.SynthesisLatency.Observe(seconds)
}

// RecordSessionStart records a transcription session starting.
func (m *Metrics) RecordSessionStart() {
	m.TranscribeSessions.Inc()
	m.TranscribeActive.Inc()
}

// RecordSessionEnd records a transcription session ending.
func (m *Metrics) RecordSessionEnd() {
	m.TranscribeActive.Dec()
}

// RecordPartialTranscript records an interim transcript forwarded to a client.
func (m *Metrics) RecordPartialTranscript() {
	m.TranscriptsPartial.Inc()
}

// RecordFinalTranscript records a final transcript forwarded to a client.
func (m *Metrics) RecordFinalTranscript() {
	m.TranscriptsFinal.Inc()
}

// RecordAudioReceived records audio bytes and frames received.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioFramesReceived.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
