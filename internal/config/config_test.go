package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	envVars := []string{
		"SERVICE_PRINCIPAL", "HTTP_PORT", "METRICS_PORT", "LOG_LEVEL",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ",
		"STT_INTERIM_RESULTS", "STT_AUDIO_ENCODING",
		"SESSION_MAX_AUDIO_BYTES", "SESSION_MAX_DURATION", "SESSION_MAX_PARTIALS",
		"GEMINI_MODEL", "SYNTH_VOICE", "KAFKA_ENABLED",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.Service.Principal != "svc-interview-voice" {
		t.Errorf("expected default principal 'svc-interview-voice', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default port '8080', got %s", cfg.Service.HTTPPort)
	}

	if cfg.Generation.Model != "gemini-2.0-flash" {
		t.Errorf("expected default model 'gemini-2.0-flash', got %s", cfg.Generation.Model)
	}

	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != true {
		t.Errorf("expected default interim results true, got %v", cfg.STT.InterimResults)
	}
	if cfg.STT.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.STT.AudioEncoding)
	}

	if cfg.SessionLimits.MaxAudioBytes != 20*1024*1024 {
		t.Errorf("expected default max audio bytes 20MB, got %d", cfg.SessionLimits.MaxAudioBytes)
	}
	if cfg.SessionLimits.MaxDuration != 15*time.Minute {
		t.Errorf("expected default max duration 15m, got %v", cfg.SessionLimits.MaxDuration)
	}
	if cfg.SessionLimits.MaxPartials != 2000 {
		t.Errorf("expected default max partials 2000, got %d", cfg.SessionLimits.MaxPartials)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicTurns != "interview.turn.completed" {
		t.Errorf("unexpected turns topic %s", cfg.Kafka.TopicTurns)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("STT_PROVIDER", "google")
	os.Setenv("STT_LANGUAGE_CODE", "es-ES")
	os.Setenv("STT_SAMPLE_RATE_HZ", "8000")
	os.Setenv("STT_INTERIM_RESULTS", "false")
	os.Setenv("SESSION_MAX_AUDIO_BYTES", "10485760")
	os.Setenv("SESSION_MAX_DURATION", "10m")
	os.Setenv("SESSION_MAX_PARTIALS", "1000")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	defer func() {
		os.Unsetenv("SERVICE_PRINCIPAL")
		os.Unsetenv("HTTP_PORT")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("STT_PROVIDER")
		os.Unsetenv("STT_LANGUAGE_CODE")
		os.Unsetenv("STT_SAMPLE_RATE_HZ")
		os.Unsetenv("STT_INTERIM_RESULTS")
		os.Unsetenv("SESSION_MAX_AUDIO_BYTES")
		os.Unsetenv("SESSION_MAX_DURATION")
		os.Unsetenv("SESSION_MAX_PARTIALS")
		os.Unsetenv("KAFKA_BROKERS")
	}()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "es-ES" {
		t.Errorf("expected language 'es-ES', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != false {
		t.Errorf("expected interim results false, got %v", cfg.STT.InterimResults)
	}
	if cfg.SessionLimits.MaxAudioBytes != 10485760 {
		t.Errorf("expected max audio bytes 10485760, got %d", cfg.SessionLimits.MaxAudioBytes)
	}
	if cfg.SessionLimits.MaxDuration != 10*time.Minute {
		t.Errorf("expected max duration 10m, got %v", cfg.SessionLimits.MaxDuration)
	}
	if cfg.SessionLimits.MaxPartials != 1000 {
		t.Errorf("expected max partials 1000, got %d", cfg.SessionLimits.MaxPartials)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}

	brokers := cfg.Kafka.Brokers
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Errorf("expected trimmed broker list, got %v", brokers)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	os.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	os.Setenv("STT_INTERIM_RESULTS", "invalid")
	os.Setenv("SESSION_MAX_AUDIO_BYTES", "invalid")
	os.Setenv("SESSION_MAX_DURATION", "invalid")
	os.Setenv("SESSION_MAX_PARTIALS", "invalid")

	defer func() {
		os.Unsetenv("STT_SAMPLE_RATE_HZ")
		os.Unsetenv("STT_INTERIM_RESULTS")
		os.Unsetenv("SESSION_MAX_AUDIO_BYTES")
		os.Unsetenv("SESSION_MAX_DURATION")
		os.Unsetenv("SESSION_MAX_PARTIALS")
	}()

	cfg := Load()

	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != true {
		t.Errorf("expected default interim results on invalid input, got %v", cfg.STT.InterimResults)
	}
	if cfg.SessionLimits.MaxAudioBytes != 20*1024*1024 {
		t.Errorf("expected default max audio bytes on invalid input, got %d", cfg.SessionLimits.MaxAudioBytes)
	}
	if cfg.SessionLimits.MaxDuration != 15*time.Minute {
		t.Errorf("expected default max duration on invalid input, got %v", cfg.SessionLimits.MaxDuration)
	}
	if cfg.SessionLimits.MaxPartials != 2000 {
		t.Errorf("expected default max partials on invalid input, got %d", cfg.SessionLimits.MaxPartials)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"bad http port", func(c *Config) { c.Service.HTTPPort = "http" }, true},
		{"bad metrics port", func(c *Config) { c.Service.MetricsPort = "" }, true},
		{"unknown stt provider", func(c *Config) { c.STT.Provider = "whisper" }, true},
		{"zero sample rate", func(c *Config) { c.STT.SampleRateHz = 0 }, true},
		{"kafka enabled without brokers", func(c *Config) { c.Kafka.Enabled = true }, true},
		{"kafka enabled with brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = []string{"k1:9092"}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentialsConfigured(t *testing.T) {
	cfg := Load()
	cfg.Generation.APIKey = ""
	cfg.Synthesis.Endpoint = ""
	if cfg.CredentialsConfigured() {
		t.Error("unconfigured credentials must report false")
	}

	cfg.Generation.APIKey = "key"
	if cfg.CredentialsConfigured() {
		t.Error("synthesis endpoint still missing")
	}

	cfg.Synthesis.Endpoint = "https://synth.example.com/v1/speech"
	if !cfg.CredentialsConfigured() {
		t.Error("expected configured credentials")
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
