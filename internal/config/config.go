// Package config loads service configuration from the environment. A
// local .env file is honored for development; real deployments set the
// variables directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Generation    GenerationConfig
	Synthesis     SynthesisConfig
	STT           STTConfig
	SessionLimits SessionLimitsConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsPort string
	// PublicHost is the host clients use to reach the transcription
	// socket, as advertised by the session endpoint.
	PublicHost string
}

// GenerationConfig configures the text-generation collaborator.
type GenerationConfig struct {
	APIKey string
	Model  string
}

// SynthesisConfig configures the speech-synthesis collaborator.
type SynthesisConfig struct {
	Endpoint string
	APIKey   string
	Voice    string
	Format   string
	Timeout  time.Duration
}

// STTConfig configures the speech-to-text provider.
type STTConfig struct {
	Provider       string // "mock" or "google"
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
	AudioEncoding  string
}

// SessionLimitsConfig bounds per-session transcription resource usage.
type SessionLimitsConfig struct {
	MaxAudioBytes int64
	MaxDuration   time.Duration
	MaxPartials   int
}

// KafkaConfig configures the analytics event publisher.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicTurns       string
	TopicTranscripts string
	Principal        string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel string
}

// Load reads configuration from the environment, applying defaults for
// anything unset. Invalid values fall back to their defaults.
func Load() *Config {
	_ = godotenv.Load()

	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-interview-voice")

	return &Config{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
			PublicHost:  envOrDefault("PUBLIC_HOST", "localhost:8080"),
		},
		Generation: GenerationConfig{
			APIKey: envOrDefault("GEMINI_API_KEY", ""),
			Model:  envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Synthesis: SynthesisConfig{
			Endpoint: envOrDefault("SYNTH_ENDPOINT", ""),
			APIKey:   envOrDefault("SYNTH_API_KEY", ""),
			Voice:    envOrDefault("SYNTH_VOICE", "alloy"),
			Format:   envOrDefault("SYNTH_FORMAT", "mp3"),
			Timeout:  envOrDefaultDuration("SYNTH_TIMEOUT", 30*time.Second),
		},
		STT: STTConfig{
			Provider:       envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			InterimResults: envOrDefaultBool("STT_INTERIM_RESULTS", true),
			AudioEncoding:  envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
		},
		SessionLimits: SessionLimitsConfig{
			MaxAudioBytes: envOrDefaultInt64("SESSION_MAX_AUDIO_BYTES", 20*1024*1024),
			MaxDuration:   envOrDefaultDuration("SESSION_MAX_DURATION", 15*time.Minute),
			MaxPartials:   envOrDefaultInt("SESSION_MAX_PARTIALS", 2000),
		},
		Kafka: KafkaConfig{
			Enabled:          envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:          envList("KAFKA_BROKERS"),
			TopicTurns:       envOrDefault("KAFKA_TOPIC_TURNS", "interview.turn.completed"),
			TopicTranscripts: envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", "interview.transcript.final"),
			Principal:        envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
		},
	}
}

// Validate checks values that cannot be defaulted away.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Service.HTTPPort); err != nil {
		return fmt.Errorf("invalid HTTP_PORT %q", c.Service.HTTPPort)
	}
	if _, err := strconv.Atoi(c.Service.MetricsPort); err != nil {
		return fmt.Errorf("invalid METRICS_PORT %q", c.Service.MetricsPort)
	}
	switch c.STT.Provider {
	case "mock", "google":
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q", c.STT.Provider)
	}
	if c.STT.SampleRateHz <= 0 {
		return fmt.Errorf("invalid STT_SAMPLE_RATE_HZ %d", c.STT.SampleRateHz)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_ENABLED requires KAFKA_BROKERS")
	}
	return nil
}

// CredentialsConfigured reports whether the generation and synthesis
// collaborators are usable. The stream endpoint returns 503 otherwise.
func (c *Config) CredentialsConfigured() bool {
	return c.Generation.APIKey != "" && c.Synthesis.Endpoint != ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
