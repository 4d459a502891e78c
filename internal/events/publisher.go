// Package events provides Kafka publishing for interview analytics events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"interview-voice-service/internal/observability/metrics"
)

// TurnCompleted is published after a response stream emits its done event.
type TurnCompleted struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
	FullText  string `json:"fullText"`
	Segments  int    `json:"segments"`
	Skipped   int    `json:"skipped"`
	Timestamp int64  `json:"timestamp"`
}

// TranscriptFinal is published for each final candidate transcript.
type TranscriptFinal struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// Publisher publishes analytics events to separate Kafka topics.
type Publisher struct {
	writerTurns       *kafka.Writer
	writerTranscripts *kafka.Writer
	principal         string
	topicTurns        string
	topicTranscripts  string
	enabled           bool
	metrics           *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers          []string
	TopicTurns       string
	TopicTranscripts string
	Principal        string
	Enabled          bool
}

// New creates a Kafka publisher. With Kafka disabled or unconfigured it
// runs in log-only mode so the rest of the pipeline is unaffected.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false, metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:        cfg.Principal,
			topicTurns:       cfg.TopicTurns,
			topicTranscripts: cfg.TopicTranscripts,
			enabled:          false,
			metrics:          m,
		}
	}

	// Longer dial timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerTurns := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTurns,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
	writerTranscripts := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTranscripts,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTurns", cfg.TopicTurns).
		Str("topicTranscripts", cfg.TopicTranscripts).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTurns:       writerTurns,
		writerTranscripts: writerTranscripts,
		principal:         cfg.Principal,
		topicTurns:        cfg.TopicTurns,
		topicTranscripts:  cfg.TopicTranscripts,
		enabled:           true,
		metrics:           m,
	}
}

// PublishTurnCompleted publishes a completed interviewer turn.
func (p *Publisher) PublishTurnCompleted(ctx context.Context, key string, event TurnCompleted) error {
	event.EventType = "interview.turn.completed"
	event.Timestamp = time.Now().UnixMilli()
	return p.publish(ctx, p.writerTurns, p.topicTurns, "turn", key, event)
}

// PublishTranscriptFinal publishes a final candidate transcript.
func (p *Publisher) PublishTranscriptFinal(ctx context.Context, key string, event TranscriptFinal) error {
	event.EventType = "interview.transcript.final"
	event.Timestamp = time.Now().UnixMilli()
	return p.publish(ctx, p.writerTranscripts, p.topicTranscripts, "transcript", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTurns != nil {
		if e := p.writerTurns.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing turns writer")
			err = e
		}
	}
	if p.writerTranscripts != nil {
		if e := p.writerTranscripts.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcripts writer")
			err = e
		}
	}
	return err
}
